package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/apiclient"
	"storefront/internal/imageprep"
	"storefront/internal/model"
	"storefront/internal/shop"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxUploadMemory = 32 << 20
	maxImageBytes   = 10 << 20
)

// ManageProductHandler serves product management for staff and administrators.
type ManageProductHandler struct {
	base
}

// NewManageProductHandler creates a new product management handler.
func NewManageProductHandler(deps Deps, logger zerolog.Logger) *ManageProductHandler {
	return &ManageProductHandler{base: newBase(deps, "manage_product", logger)}
}

// productForm holds the raw product form values so they survive a failed submit.
type productForm struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Category    string
	PromotionID string
}

func parseProductForm(r *http.Request) productForm {
	return productForm{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Quantity:    strings.TrimSpace(r.FormValue("quantity")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		PromotionID: strings.TrimSpace(r.FormValue("promotionId")),
	}
}

func productFormFrom(p *model.Product) productForm {
	f := productForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.String(),
		Quantity:    strconv.Itoa(p.Quantity),
		Category:    p.Category,
	}
	if p.PromotionID != nil {
		f.PromotionID = strconv.Itoa(*p.PromotionID)
	}
	return f
}

// input converts the form. Malformed numbers become values the catalogue rejects.
func (f productForm) input() model.ProductInput {
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		price = decimal.Zero
	}
	quantity, err := strconv.Atoi(f.Quantity)
	if err != nil {
		quantity = -1
	}
	return model.ProductInput{
		Name:        f.Name,
		Description: f.Description,
		Price:       price,
		Quantity:    quantity,
		Category:    f.Category,
		PromotionID: f.PromotionID,
	}
}

type productListView struct {
	Products []model.Product
	Failed   bool
}

type productFormView struct {
	Product    *model.Product
	Form       productForm
	Promotions []model.Promotion
	MinImages  int
}

// List renders every product.
func (h *ManageProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := productListView{}
	products, err := q.Services.Catalog.Products(r.Context(), shop.ProductFilter{})
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load products")
		q.Notes.Error(apiclient.MessageOf(err, "Could not load products"))
		view.Failed = true
	}
	view.Products = products
	h.render(w, r, http.StatusOK, "manage_products.html", h.page(r, "Manage products", view))
}

// New renders the empty creation form.
func (h *ManageProductHandler) New(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, nil, productForm{})
}

// Create creates a product from a multipart form with a primary image and at least
// four secondary images.
func (h *ManageProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		q.Notes.Error("The upload could not be read")
		h.renderForm(w, r, http.StatusBadRequest, nil, productForm{})
		return
	}
	form := parseProductForm(r)
	if q.Session.Snapshot().Role() != model.RoleAdmin {
		form.PromotionID = ""
	}

	created, err := h.create(r, form)
	switch {
	case err == nil:
		q.Notes.Success("Product created")
		h.redirect(w, r, "/manage/products")
	case created != nil:
		q.Notes.Error("The product was created but its gallery could not be uploaded")
		h.redirect(w, r, fmt.Sprintf("/manage/products/%d/edit", created.ID))
	default:
		h.logger.Warn().Err(err).Msg("product creation failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not create the product"))
		h.renderForm(w, r, http.StatusUnprocessableEntity, nil, form)
	}
}

func (h *ManageProductHandler) create(r *http.Request, form productForm) (*model.Product, error) {
	primary, err := h.images(r, "image")
	if err != nil {
		return nil, err
	}
	secondary, err := h.images(r, "images")
	if err != nil {
		return nil, err
	}
	var first *apiclient.File
	if len(primary) > 0 {
		first = &primary[0]
	}
	return RequestFrom(r).Services.Catalog.CreateProduct(r.Context(), form.input(), first, secondary)
}

// Edit renders the edit form of the product in the path.
func (h *ManageProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, product, productFormFrom(product))
}

// Update saves the product fields and, when one was chosen, a new primary image.
func (h *ManageProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}
	q := RequestFrom(r)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		q.Notes.Error("The upload could not be read")
		h.renderForm(w, r, http.StatusBadRequest, product, productFormFrom(product))
		return
	}
	form := parseProductForm(r)
	if q.Session.Snapshot().Role() != model.RoleAdmin {
		// Only administrators assign promotions; keep the current one.
		form.PromotionID = productFormFrom(product).PromotionID
	}

	primary, err := h.images(r, "image")
	if err == nil {
		var first *apiclient.File
		if len(primary) > 0 {
			first = &primary[0]
		}
		err = q.Services.Catalog.UpdateProduct(r.Context(), product.ID, form.input(), first)
	}
	if err != nil {
		h.logger.Warn().Err(err).Int("product_id", product.ID).Msg("product update failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not update the product"))
		h.renderForm(w, r, http.StatusUnprocessableEntity, product, form)
		return
	}

	q.Notes.Success("Product updated")
	h.redirect(w, r, "/manage/products")
}

// Delete removes the product in the path.
func (h *ManageProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	if err := q.Services.Catalog.DeleteProduct(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Int("product_id", id).Msg("product delete failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not delete the product"))
	} else {
		q.Notes.Success("Product deleted")
	}
	h.redirect(w, r, "/manage/products")
}

// UploadImages appends secondary images to the gallery.
func (h *ManageProductHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	back := fmt.Sprintf("/manage/products/%d/edit", id)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		q.Notes.Error("The upload could not be read")
		h.redirect(w, r, back)
		return
	}
	files, err := h.images(r, "images")
	if err == nil && len(files) == 0 {
		err = model.NewDomainError(model.ErrCodeMissingImages, "Choose at least one image")
	}
	if err == nil {
		err = q.Services.Catalog.UploadImages(r.Context(), id, files)
	}
	if err != nil {
		h.logger.Warn().Err(err).Int("product_id", id).Msg("image upload failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not upload the images"))
	} else {
		q.Notes.Success(fmt.Sprintf("%d image(s) uploaded", len(files)))
	}
	h.redirect(w, r, back)
}

// DeleteImage removes one secondary image.
func (h *ManageProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	imageID, imageOK := pathID(r, "imageID")
	if !ok || !imageOK {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	if err := q.Services.Catalog.DeleteImage(r.Context(), imageID); err != nil {
		h.logger.Warn().Err(err).Int("image_id", imageID).Msg("image delete failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not delete the image"))
	} else {
		q.Notes.Success("Image deleted")
	}
	h.redirect(w, r, fmt.Sprintf("/manage/products/%d/edit", id))
}

// ReorderImages moves one image up or down in the gallery. The form carries the
// current order as repeated "order" values and the move as "id:up" or "id:down".
func (h *ManageProductHandler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}

	order, err := reorder(r.PostForm["order"], r.PostFormValue("move"))
	if err == nil {
		err = q.Services.Catalog.ReorderImages(r.Context(), id, order)
	}
	if err != nil {
		h.logger.Warn().Err(err).Int("product_id", id).Msg("image reorder failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not reorder the images"))
	}
	h.redirect(w, r, fmt.Sprintf("/manage/products/%d/edit", id))
}

// reorder parses the current image order and applies a single "id:up|down" move.
func reorder(current []string, move string) ([]int, error) {
	order := make([]int, 0, len(current))
	for _, v := range current {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid image id %q", v)
		}
		order = append(order, n)
	}

	idStr, dir, found := strings.Cut(move, ":")
	if !found {
		return order, nil
	}
	target, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid image id %q", idStr)
	}
	for i, v := range order {
		if v != target {
			continue
		}
		switch {
		case dir == "up" && i > 0:
			order[i-1], order[i] = order[i], order[i-1]
		case dir == "down" && i < len(order)-1:
			order[i+1], order[i] = order[i], order[i+1]
		}
		break
	}
	return order, nil
}

func (h *ManageProductHandler) product(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return nil, false
	}
	product, err := RequestFrom(r).Services.Catalog.Product(r.Context(), id)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			h.notFound(w, r)
			return nil, false
		}
		h.logger.Error().Err(err).Int("product_id", id).Msg("failed to load product")
		h.renderError(w, r, http.StatusBadGateway, "Could not load this product, please try again.")
		return nil, false
	}
	return product, true
}

// images reads and downscales the files uploaded under field.
func (h *ManageProductHandler) images(r *http.Request, field string) ([]apiclient.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	files := make([]apiclient.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		if len(content) > maxImageBytes {
			return nil, model.NewDomainError(model.ErrCodeMissingImages, fh.Filename+" is larger than 10 MB")
		}
		file, err := imageprep.Prepare(fh.Filename, content, h.ImageMaxWidth)
		if err != nil {
			if errors.Is(err, imageprep.ErrUnsupportedFormat) {
				return nil, model.NewDomainError(model.ErrCodeMissingImages, fh.Filename+": only PNG, JPG and JPEG are allowed")
			}
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// renderForm renders the product form. Administrators also get the promotion list.
func (h *ManageProductHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, product *model.Product, form productForm) {
	q := RequestFrom(r)
	view := productFormView{
		Product:   product,
		Form:      form,
		MinImages: shop.MinSecondaryImages,
	}
	if q.Session.Snapshot().Role() == model.RoleAdmin {
		promotions, err := q.Services.Promotions.List(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to load promotions")
			q.Notes.Error("Could not load promotions")
		}
		view.Promotions = promotions
	}

	title := "New product"
	if product != nil {
		title = "Edit " + product.Name
	}
	h.render(w, r, status, "product_form.html", h.page(r, title, view))
}
