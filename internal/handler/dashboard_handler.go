package handler

import (
	"net/http"
	"time"

	"storefront/internal/model"
	"storefront/internal/shop"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// lowStockThreshold flags products that need restocking.
const lowStockThreshold = 5

// DashboardHandler serves the admin and staff landing pages.
type DashboardHandler struct {
	base
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(deps Deps, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{base: newBase(deps, "dashboard", logger)}
}

// Stats summarises the shop for the dashboards. Sections that failed to load stay zero.
type Stats struct {
	Orders           int
	PendingOrders    int
	Revenue          decimal.Decimal
	Products         int
	LowStock         []model.Product
	ActivePromotions int
	RecentOrders     []model.Order
}

// collectStats aggregates the dashboard figures.
func collectStats(orders []model.Order, products []model.Product, promotions []model.Promotion, now time.Time) Stats {
	s := Stats{
		Orders:   len(orders),
		Products: len(products),
		Revenue:  decimal.Zero,
	}
	for _, o := range orders {
		if o.Status == model.OrderPending {
			s.PendingOrders++
		}
		if o.Status != model.OrderCancelled {
			s.Revenue = s.Revenue.Add(o.TotalAmount)
		}
	}
	for _, p := range products {
		if p.Quantity < lowStockThreshold {
			s.LowStock = append(s.LowStock, p)
		}
	}
	for _, p := range promotions {
		if p.Active(now) {
			s.ActivePromotions++
		}
	}
	recent := newestFirst(orders)
	if len(recent) > 5 {
		recent = recent[:5]
	}
	s.RecentOrders = recent
	return s
}

func (h *DashboardHandler) stats(r *http.Request, withPromotions bool) Stats {
	q := RequestFrom(r)
	var (
		orders     []model.Order
		products   []model.Product
		promotions []model.Promotion
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		if orders, err = q.Services.Orders.All(r.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("failed to load orders for dashboard")
			q.Notes.Error("Could not load orders")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if products, err = q.Services.Catalog.Products(r.Context(), shop.ProductFilter{}); err != nil {
			h.logger.Warn().Err(err).Msg("failed to load products for dashboard")
			q.Notes.Error("Could not load products")
		}
		return nil
	})
	if withPromotions {
		g.Go(func() error {
			var err error
			if promotions, err = q.Services.Promotions.List(r.Context()); err != nil {
				h.logger.Warn().Err(err).Msg("failed to load promotions for dashboard")
				q.Notes.Error("Could not load promotions")
			}
			return nil
		})
	}
	_ = g.Wait()

	return collectStats(orders, products, promotions, h.Now())
}

// Admin renders the administrator dashboard.
func (h *DashboardHandler) Admin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "admin_dashboard.html", h.page(r, "Admin dashboard", h.stats(r, true)))
}

// Staff renders the staff dashboard.
func (h *DashboardHandler) Staff(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "staff_dashboard.html", h.page(r, "Staff dashboard", h.stats(r, false)))
}
