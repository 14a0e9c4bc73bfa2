package handler

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/apiclient"
	"storefront/internal/events"
	"storefront/internal/guard"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// ProductHandler serves the public product detail page.
type ProductHandler struct {
	base
}

// NewProductHandler creates a new product handler.
func NewProductHandler(deps Deps, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{base: newBase(deps, "product", logger)}
}

type productView struct {
	Product *model.Product
	Gallery []string
}

// Show renders the detail page of the product in the path.
func (h *ProductHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}

	product, err := RequestFrom(r).Services.Catalog.Product(r.Context(), id)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			h.notFound(w, r)
			return
		}
		h.logger.Error().Err(err).Int("product_id", id).Msg("failed to load product")
		h.renderError(w, r, http.StatusBadGateway, "Could not load this product, please try again.")
		return
	}

	h.render(w, r, http.StatusOK, "product.html", h.page(r, product.Name, productView{
		Product: product,
		Gallery: product.Gallery(),
	}))
}

// AddToCart adds the submitted quantity of the product. With buy_now set it continues
// to the cart page; anonymous visitors are sent to login first.
func (h *ProductHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	back := fmt.Sprintf("/products/%d", id)
	quantity := formInt(r, "quantity", 1)

	if err := q.Cart.AddLine(r.Context(), id, quantity); err != nil {
		if errors.Is(err, model.ErrNotAuthenticated) {
			q.Notes.Info("Please log in to add products to your cart")
			h.redirect(w, r, guard.LoginRedirect(back))
			return
		}
		h.logger.Warn().Err(err).Int("product_id", id).Msg("add to cart failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not add the product to your cart"))
		h.redirect(w, r, back)
		return
	}

	identity := q.Session.Snapshot().Identity
	h.publish(r, events.EventCartLineAdded, identity.ID, events.CartLineAddedPayload{
		UserID:    identity.ID,
		ProductID: id,
		Quantity:  quantity,
	})

	if r.FormValue("buy_now") != "" {
		h.redirect(w, r, "/cart")
		return
	}
	q.Notes.Success("Added to cart")
	h.redirect(w, r, back)
}
