// Package shop wraps the shop API resources behind typed services. Services hold no
// state; they are built per browser request around a token-bound API client.
package shop

import (
	"context"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Requester is the subset of *apiclient.Client the services use.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	SendMultipart(ctx context.Context, method, path string, form *apiclient.Multipart, out any) error
}

// AuthService defines account operations.
type AuthService interface {
	// Login exchanges credentials for an identity carrying a token.
	Login(ctx context.Context, creds model.Credentials) (model.Identity, error)

	// Register creates an account.
	Register(ctx context.Context, reg model.Registration) error

	// Me fetches the current identity's profile.
	Me(ctx context.Context) (*model.Profile, error)
}

// CatalogService defines product and category operations.
type CatalogService interface {
	Categories(ctx context.Context) ([]model.Category, error)
	Products(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	Product(ctx context.Context, id int) (*model.Product, error)

	// CreateProduct creates a product with its primary image, then uploads the
	// secondary images.
	CreateProduct(ctx context.Context, in model.ProductInput, primary *apiclient.File, secondary []apiclient.File) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int, in model.ProductInput, primary *apiclient.File) error
	DeleteProduct(ctx context.Context, id int) error
	UploadImages(ctx context.Context, productID int, files []apiclient.File) error
	DeleteImage(ctx context.Context, imageID int) error
	ReorderImages(ctx context.Context, productID int, order []int) error
}

// CartService defines operations on the remote cart resource.
type CartService interface {
	Lines(ctx context.Context) ([]model.CartLine, error)
	Add(ctx context.Context, productID, quantity int) error
	Update(ctx context.Context, lineID, quantity int) error
	Remove(ctx context.Context, lineID int) error
}

// OrderService defines the order lifecycle operations.
type OrderService interface {
	Place(ctx context.Context, req model.OrderRequest) (*model.Order, error)
	Mine(ctx context.Context) ([]model.Order, error)
	All(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id int) (*model.Order, error)
	UpdateStatus(ctx context.Context, id int, status model.OrderStatus) error
}

// PromotionService defines promotion CRUD.
type PromotionService interface {
	List(ctx context.Context) ([]model.Promotion, error)
	Get(ctx context.Context, id int) (*model.Promotion, error)
	Create(ctx context.Context, p model.Promotion) error
	Update(ctx context.Context, id int, p model.Promotion) error
	Delete(ctx context.Context, id int) error
}

// AddressService reads saved delivery addresses.
type AddressService interface {
	List(ctx context.Context) ([]model.Address, error)
}

// Services bundles every resource service for one browser request.
type Services struct {
	Auth       AuthService
	Catalog    CatalogService
	Cart       CartService
	Orders     OrderService
	Promotions PromotionService
	Addresses  AddressService
}

// NewServices builds all services around one API requester.
func NewServices(api Requester, logger zerolog.Logger) *Services {
	return &Services{
		Auth:       NewAuthService(api, logger),
		Catalog:    NewCatalogService(api, logger),
		Cart:       NewCartService(api, logger),
		Orders:     NewOrderService(api, logger),
		Promotions: NewPromotionService(api, logger),
		Addresses:  NewAddressService(api, logger),
	}
}
