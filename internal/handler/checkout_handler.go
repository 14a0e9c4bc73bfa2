package handler

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/checkout"
	"storefront/internal/events"
	"storefront/internal/geocode"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CheckoutHandler serves the checkout form and the address autocompletion endpoint.
type CheckoutHandler struct {
	base
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(deps Deps, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{base: newBase(deps, "checkout", logger)}
}

type checkoutView struct {
	Form           checkout.Form
	Errors         map[string]string
	Lines          []model.CartLine
	Total          decimal.Decimal
	PaymentMethods []checkout.PaymentMethod
}

func (h *CheckoutHandler) view(r *http.Request, form checkout.Form, fieldErrors map[string]string) checkoutView {
	q := RequestFrom(r)
	return checkoutView{
		Form:           form,
		Errors:         fieldErrors,
		Lines:          q.Cart.Lines(),
		Total:          q.Cart.Total(),
		PaymentMethods: checkout.PaymentMethods,
	}
}

// Show renders the checkout form. The saved default address, the profile and the
// cart are fetched concurrently; each failure leaves its section empty.
func (h *CheckoutHandler) Show(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	var (
		address *model.Address
		profile *model.Profile
	)

	var g errgroup.Group
	g.Go(func() error {
		list, err := q.Services.Addresses.List(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to load saved addresses")
			q.Notes.Error("Could not load your saved address")
			return nil
		}
		if a, ok := model.DefaultAddress(list); ok {
			address = &a
		}
		return nil
	})
	g.Go(func() error {
		p, err := q.Services.Auth.Me(r.Context())
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to load profile")
			q.Notes.Error("Could not load your profile")
			return nil
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		q.LoadCart(r.Context())
		return nil
	})
	_ = g.Wait()

	form := checkout.Prefill(address, profile)
	h.render(w, r, http.StatusOK, "checkout.html", h.page(r, "Checkout", h.view(r, form, nil)))
}

// Submit places the order. Validation failures and an empty cart re-render the form
// without calling the API; an API failure keeps the cart and allows resubmission.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	form := checkout.Form{
		Name:          r.FormValue("name"),
		Email:         r.FormValue("email"),
		Phone:         r.FormValue("phone"),
		Province:      r.FormValue("province"),
		District:      r.FormValue("district"),
		Ward:          r.FormValue("ward"),
		DetailAddress: r.FormValue("detailAddress"),
		PaymentMethod: r.FormValue("paymentMethod"),
	}

	q.LoadCart(r.Context())
	flow := checkout.NewFlow(q.Services.Orders, q.Cart, q.Notes, h.CheckoutDelay, h.logger)
	result, err := flow.Submit(r.Context(), form)
	if err != nil {
		var verr *checkout.ValidationError
		switch {
		case errors.As(err, &verr):
			h.render(w, r, http.StatusUnprocessableEntity, "checkout.html", h.page(r, "Checkout", h.view(r, form, verr.Fields)))
		case errors.Is(err, model.ErrEmptyCart):
			h.render(w, r, http.StatusUnprocessableEntity, "checkout.html", h.page(r, "Checkout", h.view(r, form, nil)))
		default:
			h.render(w, r, http.StatusBadGateway, "checkout.html", h.page(r, "Checkout", h.view(r, form, nil)))
		}
		return
	}

	identity := q.Session.Snapshot().Identity
	h.publish(r, events.EventOrderPlaced, strconv.Itoa(result.Order.ID), events.OrderPlacedPayload{
		OrderID:       result.Order.ID,
		UserID:        identity.ID,
		PaymentMethod: result.Order.PaymentMethod,
		Total:         result.Order.TotalAmount.StringFixed(2),
	})

	h.delayedRedirect(w, r, "Order placed", result.RedirectTo, result.RedirectAfter,
		"Thank you for your order. You will be taken to your orders shortly.")
}

// Suggest answers ?q= with up to five address completions as JSON. Short queries yield
// an empty list.
func (h *CheckoutHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.Geocoder == nil {
		writeJSON(w, http.StatusOK, []geocode.Suggestion{})
		return
	}
	suggestions, err := h.Geocoder.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "address lookup failed", h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []geocode.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}
