package handler

import (
	"fmt"
	"net/http"
	"sort"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// OrderHandler serves the customer order history and the order management screens.
type OrderHandler struct {
	base
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(deps Deps, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{base: newBase(deps, "order", logger)}
}

type ordersView struct {
	Orders   []model.Order
	Manage   bool
	Statuses []model.OrderStatus
	Failed   bool
}

type orderView struct {
	Order    *model.Order
	Manage   bool
	Statuses []model.OrderStatus
}

// Mine lists the signed-in user's orders, newest first.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := ordersView{}
	orders, err := q.Services.Orders.Mine(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load own orders")
		q.Notes.Error(apiclient.MessageOf(err, "Could not load your orders"))
		view.Failed = true
	}
	view.Orders = newestFirst(orders)
	h.render(w, r, http.StatusOK, "orders.html", h.page(r, "My orders", view))
}

// Show renders one of the user's orders.
func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, false)
}

// List renders every order with a status selector.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := ordersView{Manage: true, Statuses: model.OrderStatuses}
	orders, err := q.Services.Orders.All(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load orders")
		q.Notes.Error(apiclient.MessageOf(err, "Could not load orders"))
		view.Failed = true
	}
	view.Orders = newestFirst(orders)
	h.render(w, r, http.StatusOK, "orders.html", h.page(r, "Manage orders", view))
}

// ManageShow renders an order with its status selector.
func (h *OrderHandler) ManageShow(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, true)
}

func (h *OrderHandler) show(w http.ResponseWriter, r *http.Request, manage bool) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	order, err := RequestFrom(r).Services.Orders.Get(r.Context(), id)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) || apiclient.IsStatus(err, http.StatusForbidden) {
			h.notFound(w, r)
			return
		}
		h.logger.Error().Err(err).Int("order_id", id).Msg("failed to load order")
		h.renderError(w, r, http.StatusBadGateway, "Could not load this order, please try again.")
		return
	}

	view := orderView{Order: order, Manage: manage}
	if manage {
		view.Statuses = model.OrderStatuses
	}
	h.render(w, r, http.StatusOK, "order.html", h.page(r, fmt.Sprintf("Order #%d", order.ID), view))
}

// UpdateStatus changes the status of an order, then returns to the page it came from
// so the list is fetched again.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	back := "/manage/orders"
	if r.FormValue("from") == "detail" {
		back = fmt.Sprintf("/manage/orders/%d", id)
	}

	status, err := model.ParseOrderStatus(r.FormValue("status"))
	if err == nil {
		err = q.Services.Orders.UpdateStatus(r.Context(), id, status)
	}
	if err != nil {
		h.logger.Warn().Err(err).Int("order_id", id).Msg("order status update failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not update the order status"))
	} else {
		q.Notes.Success(fmt.Sprintf("Order #%d is now %s", id, status))
	}
	h.redirect(w, r, back)
}

func newestFirst(orders []model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
