package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// dateLayout is the layout of <input type="date"> values.
const dateLayout = "2006-01-02"

// PromotionHandler serves promotion management for administrators.
type PromotionHandler struct {
	base
}

// NewPromotionHandler creates a new promotion handler.
func NewPromotionHandler(deps Deps, logger zerolog.Logger) *PromotionHandler {
	return &PromotionHandler{base: newBase(deps, "promotion", logger)}
}

type promotionListView struct {
	Promotions []model.Promotion
	Now        time.Time
	Failed     bool
}

type promotionFormView struct {
	ID        int
	Promotion model.Promotion
}

// parsePromotionForm reads the promotion form. Unparseable dates and discounts are
// left zero so that Validate reports them.
func parsePromotionForm(r *http.Request) model.Promotion {
	p := model.Promotion{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(r.FormValue("discount"))); err == nil {
		p.Discount = n
	}
	if t, err := time.Parse(dateLayout, r.FormValue("startDate")); err == nil {
		p.StartDate = t
	}
	if t, err := time.Parse(dateLayout, r.FormValue("endDate")); err == nil {
		p.EndDate = t
	}
	return p
}

// List renders every promotion.
func (h *PromotionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	view := promotionListView{Now: h.Now()}
	promotions, err := q.Services.Promotions.List(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load promotions")
		q.Notes.Error(apiclient.MessageOf(err, "Could not load promotions"))
		view.Failed = true
	}
	view.Promotions = promotions
	h.render(w, r, http.StatusOK, "promotions.html", h.page(r, "Promotions", view))
}

// New renders the empty promotion form.
func (h *PromotionHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "promotion_form.html", h.page(r, "New promotion", promotionFormView{}))
}

// Create validates and creates a promotion.
func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	q := RequestFrom(r)
	promotion := parsePromotionForm(r)
	if err := q.Services.Promotions.Create(r.Context(), promotion); err != nil {
		h.logger.Warn().Err(err).Msg("promotion creation failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not create the promotion"))
		h.render(w, r, http.StatusUnprocessableEntity, "promotion_form.html",
			h.page(r, "New promotion", promotionFormView{Promotion: promotion}))
		return
	}
	q.Notes.Success("Promotion created")
	h.redirect(w, r, "/admin/promotions")
}

// Edit renders the form of the promotion in the path.
func (h *PromotionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	promotion, err := RequestFrom(r).Services.Promotions.Get(r.Context(), id)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			h.notFound(w, r)
			return
		}
		h.logger.Error().Err(err).Int("promotion_id", id).Msg("failed to load promotion")
		h.renderError(w, r, http.StatusBadGateway, "Could not load this promotion, please try again.")
		return
	}
	h.render(w, r, http.StatusOK, "promotion_form.html",
		h.page(r, "Edit "+promotion.Title, promotionFormView{ID: id, Promotion: *promotion}))
}

// Update validates and saves the promotion in the path.
func (h *PromotionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	promotion := parsePromotionForm(r)
	if err := q.Services.Promotions.Update(r.Context(), id, promotion); err != nil {
		h.logger.Warn().Err(err).Int("promotion_id", id).Msg("promotion update failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not update the promotion"))
		h.render(w, r, http.StatusUnprocessableEntity, "promotion_form.html",
			h.page(r, "Edit promotion", promotionFormView{ID: id, Promotion: promotion}))
		return
	}
	q.Notes.Success("Promotion updated")
	h.redirect(w, r, "/admin/promotions")
}

// Delete removes the promotion in the path.
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	q := RequestFrom(r)
	if err := q.Services.Promotions.Delete(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Int("promotion_id", id).Msg("promotion delete failed")
		q.Notes.Error(apiclient.MessageOf(err, "Could not delete the promotion"))
	} else {
		q.Notes.Success("Promotion deleted")
	}
	h.redirect(w, r, "/admin/promotions")
}
