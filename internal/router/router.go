package router

import (
	"net/http"
	"time"

	"storefront/internal/guard"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the page handlers mounted by New.
type Handlers struct {
	Home          *handler.HomeHandler
	Product       *handler.ProductHandler
	Cart          *handler.CartHandler
	Checkout      *handler.CheckoutHandler
	Auth          *handler.AuthHandler
	Order         *handler.OrderHandler
	Dashboard     *handler.DashboardHandler
	ManageProduct *handler.ManageProductHandler
	Promotion     *handler.PromotionHandler
}

// NewHandlers builds every page handler from the shared dependencies.
func NewHandlers(deps handler.Deps, logger zerolog.Logger) *Handlers {
	return &Handlers{
		Home:          handler.NewHomeHandler(deps, logger),
		Product:       handler.NewProductHandler(deps, logger),
		Cart:          handler.NewCartHandler(deps, logger),
		Checkout:      handler.NewCheckoutHandler(deps, logger),
		Auth:          handler.NewAuthHandler(deps, logger),
		Order:         handler.NewOrderHandler(deps, logger),
		Dashboard:     handler.NewDashboardHandler(deps, logger),
		ManageProduct: handler.NewManageProductHandler(deps, logger),
		Promotion:     handler.NewPromotionHandler(deps, logger),
	}
}

// Options configures the cross-cutting middleware.
type Options struct {
	CSRFKey        []byte
	Secure         bool // cookies over HTTPS only; false marks requests as plaintext for CSRF checks
	TrustedOrigins []string
	MetricsToken   string
	StaticDir      string
	RequestTimeout time.Duration
}

// New creates the HTTP router with all routes and middleware configured.
func New(h *Handlers, composer *handler.Composer, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> Logging -> Metrics -> SecurityHeaders, with request ids first
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})
	r.With(middleware.MetricsAuth(opts.MetricsToken, logger)).Handle("/metrics", promhttp.Handler())
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	pages := []func(http.Handler) http.Handler{
		plaintext(opts.Secure),
		csrf.Protect(opts.CSRFKey,
			csrf.Secure(opts.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.TrustedOrigins(opts.TrustedOrigins),
			csrf.ErrorHandler(csrfFailure(logger)),
		),
		composer.Middleware,
	}
	authenticated := guard.Middleware(composer.Snapshot)
	staff := guard.Middleware(composer.Snapshot, model.RoleStaff, model.RoleAdmin)
	admin := guard.Middleware(composer.Snapshot, model.RoleAdmin)

	r.Group(func(r chi.Router) {
		r.Use(pages...)

		// Public pages
		r.Get("/", h.Home.Index)
		r.Get("/about", h.Home.About)
		r.Get("/collections", h.Home.Collections)
		r.Get("/products/{id}", h.Product.Show)
		r.Post("/products/{id}/cart", h.Product.AddToCart)
		r.Get("/cart", h.Cart.Show)
		r.Post("/cart/{lineID}/quantity", h.Cart.UpdateQuantity)
		r.Post("/cart/{lineID}/remove", h.Cart.Remove)
		r.Get("/login", h.Auth.LoginForm)
		r.Post("/login", h.Auth.Login)
		r.Get("/register", h.Auth.RegisterForm)
		r.Post("/register", h.Auth.Register)
		r.Post("/logout", h.Auth.Logout)

		// Any signed-in role
		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/checkout", h.Checkout.Show)
			r.Post("/checkout", h.Checkout.Submit)
			r.Get("/checkout/suggest", h.Checkout.Suggest)
			r.Get("/orders/my", h.Order.Mine)
			r.Get("/orders/{id}", h.Order.Show)
		})

		// Staff and administrators
		r.Group(func(r chi.Router) {
			r.Use(staff)
			r.Get("/staff/dashboard", h.Dashboard.Staff)
			r.Route("/manage/products", func(r chi.Router) {
				r.Get("/", h.ManageProduct.List)
				r.Post("/", h.ManageProduct.Create)
				r.Get("/new", h.ManageProduct.New)
				r.Get("/{id}/edit", h.ManageProduct.Edit)
				r.Post("/{id}", h.ManageProduct.Update)
				r.Post("/{id}/delete", h.ManageProduct.Delete)
				r.Post("/{id}/images", h.ManageProduct.UploadImages)
				r.Post("/{id}/images/reorder", h.ManageProduct.ReorderImages)
				r.Post("/{id}/images/{imageID}/delete", h.ManageProduct.DeleteImage)
			})
			r.Route("/manage/orders", func(r chi.Router) {
				r.Get("/", h.Order.List)
				r.Get("/{id}", h.Order.ManageShow)
				r.Post("/{id}/status", h.Order.UpdateStatus)
			})
		})

		// Administrators only
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/admin/dashboard", h.Dashboard.Admin)
			r.Route("/admin/promotions", func(r chi.Router) {
				r.Get("/", h.Promotion.List)
				r.Post("/", h.Promotion.Create)
				r.Get("/new", h.Promotion.New)
				r.Get("/{id}/edit", h.Promotion.Edit)
				r.Post("/{id}", h.Promotion.Update)
				r.Post("/{id}/delete", h.Promotion.Delete)
			})
		})
	})

	notFound := chi.Chain(pages...).HandlerFunc(h.Home.NotFound)
	r.NotFound(notFound.ServeHTTP)

	return r
}

// plaintext marks requests as served over plain HTTP so that CSRF origin checks do
// not demand a TLS referer.
func plaintext(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secure {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}

func csrfFailure(logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Warn().
			Err(csrf.FailureReason(r)).
			Str("path", r.URL.Path).
			Msg("CSRF validation failed")
		http.Error(w, "Forbidden - the form has expired, please go back and try again.", http.StatusForbidden)
	})
}
