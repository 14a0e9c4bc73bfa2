package handler

import (
	"net/http"

	"storefront/internal/apiclient"

	"github.com/rs/zerolog"
)

// CartHandler serves the cart page and its line edits.
type CartHandler struct {
	base
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(deps Deps, logger zerolog.Logger) *CartHandler {
	return &CartHandler{base: newBase(deps, "cart", logger)}
}

// Show renders the cart. The header data already carries the refreshed lines.
func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	q.LoadCart(r.Context())
	h.render(w, r, http.StatusOK, "cart.html", h.page(r, "Your cart", q.Cart.Lines()))
}

// UpdateQuantity sets the quantity of the line in the path. Quantities below one are
// rejected without contacting the API.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "lineID")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	quantity := formInt(r, "quantity", 0)

	if err := q.Cart.UpdateQuantity(r.Context(), lineID, quantity); err != nil {
		h.logger.Warn().Err(err).Int("line_id", lineID).Int("quantity", quantity).Msg("cart update failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not update the quantity"))
	}
	h.redirect(w, r, "/cart")
}

// Remove deletes the line in the path.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "lineID")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)

	if err := q.Cart.RemoveLine(r.Context(), lineID); err != nil {
		h.logger.Warn().Err(err).Int("line_id", lineID).Msg("cart remove failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not remove the product"))
	} else {
		q.Notes.Success("Removed from cart")
	}
	h.redirect(w, r, "/cart")
}
