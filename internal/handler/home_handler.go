package handler

import (
	"net/http"
	"strings"
	"time"

	"storefront/internal/content"
	"storefront/internal/model"
	"storefront/internal/shop"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// homeDiscountedLimit is the number of promoted products on the home page.
const homeDiscountedLimit = 8

// HomeHandler serves the public catalogue pages.
type HomeHandler struct {
	base
}

// NewHomeHandler creates a new home handler.
func NewHomeHandler(deps Deps, logger zerolog.Logger) *HomeHandler {
	return &HomeHandler{base: newBase(deps, "home", logger)}
}

type homeView struct {
	Content     *content.Home
	FlashSale   time.Duration
	Discounted  []model.Product
	BestSellers []model.Product
}

// Index renders the home page. Each product section degrades to empty on its own.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := homeView{Content: content.Default()}
	if h.Content != nil {
		view.Content = h.Content.Home()
	}
	view.FlashSale = view.Content.FlashSaleRemaining(h.Now())

	var g errgroup.Group
	g.Go(func() error {
		products, err := q.Services.Catalog.Products(r.Context(), shop.ProductFilter{})
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to load discounted products")
			return nil
		}
		view.Discounted = shop.TopDiscounted(products, homeDiscountedLimit)
		return nil
	})
	g.Go(func() error {
		products, err := q.Services.Catalog.Products(r.Context(), shop.ProductFilter{BestSeller: true})
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to load best sellers")
			return nil
		}
		view.BestSellers = products
		return nil
	})
	_ = g.Wait()

	h.render(w, r, http.StatusOK, "home.html", h.page(r, "Home", view))
}

// About renders the static about page.
func (h *HomeHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "about.html", h.page(r, "About us", nil))
}

type collectionsView struct {
	Category string
	Products []model.Product
	Failed   bool
}

// Collections lists products, optionally filtered by ?category= (case-insensitive).
func (h *HomeHandler) Collections(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := collectionsView{Category: strings.TrimSpace(r.URL.Query().Get("category"))}

	products, err := q.Services.Catalog.Products(r.Context(), shop.ProductFilter{Category: view.Category})
	if err != nil {
		h.logger.Warn().Err(err).Str("category", view.Category).Msg("failed to load collection")
		q.Notes.Error("Could not load products")
		view.Failed = true
	}
	view.Products = products

	title := "All products"
	if view.Category != "" {
		title = view.Category
	}
	h.render(w, r, http.StatusOK, "collections.html", h.page(r, title, view))
}

// NotFound renders the 404 page for unknown routes.
func (h *HomeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r)
}
