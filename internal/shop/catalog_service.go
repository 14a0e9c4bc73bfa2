package shop

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// MinSecondaryImages is the number of gallery images a new product needs.
const MinSecondaryImages = 4

// ProductFilter narrows GET /products.
type ProductFilter struct {
	BestSeller bool
	Category   string
}

// catalogService implements CatalogService.
type catalogService struct {
	api    Requester
	logger zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(api Requester, logger zerolog.Logger) CatalogService {
	return &catalogService{
		api:    api,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

func (s *catalogService) Categories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := s.api.Get(ctx, "/categories", &categories); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// Products lists products. The category filter is applied locally and ignores case.
func (s *catalogService) Products(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	path := "/products"
	if filter.BestSeller {
		q := url.Values{}
		q.Set("bestseller", "true")
		path += "?" + q.Encode()
	}

	var products []model.Product
	if err := s.api.Get(ctx, path, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if filter.Category != "" {
		products = FilterByCategory(products, filter.Category)
	}
	return products, nil
}

func (s *catalogService) Product(ctx context.Context, id int) (*model.Product, error) {
	var product model.Product
	if err := s.api.Get(ctx, fmt.Sprintf("/products/%d", id), &product); err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in model.ProductInput, primary *apiclient.File, secondary []apiclient.File) (*model.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, model.NewDomainError(model.ErrCodeMissingImages, "A primary image is required")
	}
	if len(secondary) < MinSecondaryImages {
		return nil, model.NewDomainError(model.ErrCodeMissingImages,
			fmt.Sprintf("At least %d secondary images are required", MinSecondaryImages))
	}

	primaryPart := *primary
	primaryPart.Field = "image"
	form := &apiclient.Multipart{Fields: in.Fields(), Files: []apiclient.File{primaryPart}}

	var created model.Product
	if err := s.api.SendMultipart(ctx, http.MethodPost, "/products", form, &created); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if err := s.UploadImages(ctx, created.ID, secondary); err != nil {
		s.logger.Error().
			Err(err).
			Int("product_id", created.ID).
			Msg("product created but gallery upload failed")
		return &created, err
	}

	s.logger.Info().
		Int("product_id", created.ID).
		Int("image_count", len(secondary)+1).
		Msg("product created")
	return &created, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int, in model.ProductInput, primary *apiclient.File) error {
	if err := validateProductInput(in); err != nil {
		return err
	}

	form := &apiclient.Multipart{Fields: in.Fields()}
	if primary != nil {
		part := *primary
		part.Field = "image"
		form.Files = append(form.Files, part)
	}

	if err := s.api.SendMultipart(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), form, nil); err != nil {
		return fmt.Errorf("failed to update product %d: %w", id, err)
	}
	return nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/products/%d", id), nil); err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return nil
}

func (s *catalogService) UploadImages(ctx context.Context, productID int, files []apiclient.File) error {
	if len(files) == 0 {
		return nil
	}
	parts := make([]apiclient.File, len(files))
	for i, f := range files {
		f.Field = "images"
		parts[i] = f
	}

	path := fmt.Sprintf("/products/%d/images", productID)
	if err := s.api.SendMultipart(ctx, http.MethodPost, path, &apiclient.Multipart{Files: parts}, nil); err != nil {
		return fmt.Errorf("failed to upload images for product %d: %w", productID, err)
	}
	return nil
}

func (s *catalogService) DeleteImage(ctx context.Context, imageID int) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/product-images/%d", imageID), nil); err != nil {
		return fmt.Errorf("failed to delete image %d: %w", imageID, err)
	}
	return nil
}

func (s *catalogService) ReorderImages(ctx context.Context, productID int, order []int) error {
	body := struct {
		Order []int `json:"order"`
	}{Order: order}
	if err := s.api.Put(ctx, fmt.Sprintf("/products/%d/images/reorder", productID), body, nil); err != nil {
		return fmt.Errorf("failed to reorder images for product %d: %w", productID, err)
	}
	return nil
}

func validateProductInput(in model.ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Product name is required")
	}
	if !in.Price.IsPositive() {
		return model.NewDomainError(model.ErrCodeMissingField, "Price must be positive")
	}
	if in.Quantity < 0 {
		return model.NewDomainError(model.ErrCodeInvalidQuantity, "Stock cannot be negative")
	}
	return nil
}

// FilterByCategory keeps products whose category matches, ignoring case.
func FilterByCategory(products []model.Product, category string) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Category != "" && strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}

// TopDiscounted returns up to limit promoted products, largest discount first.
func TopDiscounted(products []model.Product, limit int) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.Discount() > 0 {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Discount() > out[j].Discount() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
