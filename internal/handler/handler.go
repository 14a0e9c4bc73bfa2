package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront/internal/content"
	"storefront/internal/events"
	"storefront/internal/geocode"
	"storefront/internal/imageprep"
	"storefront/internal/model"
	"storefront/internal/notify"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Default delays before the follow-up navigation of a successful form.
const (
	DefaultCheckoutDelay = 2 * time.Second
	DefaultRegisterDelay = 1500 * time.Millisecond
)

// cartPreviewSize is the number of lines in the header mini-cart.
const cartPreviewSize = 5

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Suggester completes partial addresses.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]geocode.Suggestion, error)
}

// Deps are shared by every handler.
type Deps struct {
	Templates     *TemplateCache
	Content       *content.Provider
	Geocoder      Suggester
	Events        events.Publisher
	CheckoutDelay time.Duration
	RegisterDelay time.Duration
	ImageMaxWidth uint
	Now           func() time.Time
}

type base struct {
	Deps
	logger zerolog.Logger
}

func newBase(deps Deps, name string, logger zerolog.Logger) base {
	if deps.Events == nil {
		deps.Events = events.NopPublisher{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CheckoutDelay == 0 {
		deps.CheckoutDelay = DefaultCheckoutDelay
	}
	if deps.RegisterDelay == 0 {
		deps.RegisterDelay = DefaultRegisterDelay
	}
	if deps.ImageMaxWidth == 0 {
		deps.ImageMaxWidth = imageprep.MaxWidth
	}
	return base{
		Deps:   deps,
		logger: logger.With().Str("handler", name).Logger(),
	}
}

// Page is the data every template receives.
type Page struct {
	Title         string
	Path          string
	Identity      model.Identity
	Authenticated bool
	Role          model.Role
	Categories    []model.Category
	CartCount     int
	CartUnits     int
	CartPreview   []model.CartLine
	CartTotal     decimal.Decimal
	Notifications []notify.Entry
	CSRFField     template.HTML
	Data          any
}

// IsAdmin reports whether the page is rendered for an administrator.
func (p *Page) IsAdmin() bool { return p.Role == model.RoleAdmin }

// IsStaff reports whether the page is rendered for staff or an administrator.
func (p *Page) IsStaff() bool { return p.Role.IsStaff() }

// page collects the header data (categories and mini-cart) around data.
func (b *base) page(r *http.Request, title string, data any) *Page {
	q := RequestFrom(r)
	snap := q.Session.Snapshot()
	p := &Page{
		Title:         title,
		Path:          r.URL.Path,
		Identity:      snap.Identity,
		Authenticated: snap.Authenticated(),
		Role:          snap.Role(),
		CSRFField:     csrf.TemplateField(r),
		Data:          data,
	}

	var g errgroup.Group
	g.Go(func() error {
		q.LoadCart(r.Context())
		return nil
	})
	g.Go(func() error {
		cats, err := q.Services.Catalog.Categories(r.Context())
		if err != nil {
			b.logger.Warn().Err(err).Msg("failed to load categories")
			return nil
		}
		p.Categories = cats
		return nil
	})
	_ = g.Wait()

	p.CartCount = q.Cart.Count()
	p.CartUnits = q.Cart.Units()
	p.CartPreview = q.Cart.Preview(cartPreviewSize)
	p.CartTotal = q.Cart.Total()
	p.Notifications = q.Notes.Active()
	return p
}

// render executes the named page through the layout. Nothing is written when the
// template fails.
func (b *base) render(w http.ResponseWriter, r *http.Request, status int, name string, p *Page) {
	tmpl := b.Templates.Get(name)
	if tmpl == nil {
		b.logger.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		b.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError renders the error page with message.
func (b *base) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	b.render(w, r, status, "error.html", b.page(r, http.StatusText(status), errorView{
		Status:  status,
		Message: message,
	}))
}

func (b *base) notFound(w http.ResponseWriter, r *http.Request) {
	b.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

type errorView struct {
	Status  int
	Message string
}

// redirect carries pending notifications into the session and answers 303.
func (b *base) redirect(w http.ResponseWriter, r *http.Request, target string) {
	RequestFrom(r).persistNotifications()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type delayedRedirectView struct {
	Target  string
	After   time.Duration
	Message string
}

// delayedRedirect renders a page that navigates to target once after has elapsed.
func (b *base) delayedRedirect(w http.ResponseWriter, r *http.Request, title, target string, after time.Duration, message string) {
	b.render(w, r, http.StatusOK, "redirect.html", b.page(r, title, delayedRedirectView{
		Target:  target,
		After:   after,
		Message: message,
	}))
}

// publish sends a storefront event. Failures are logged and never surface to the user.
func (b *base) publish(r *http.Request, eventType, key string, payload any) {
	env, err := events.NewEnvelope(eventType, chimw.GetReqID(r.Context()), payload)
	if err != nil {
		b.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := b.Events.Publish(r.Context(), key, env); err != nil {
		b.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formInt parses a form value, returning def when it is missing or malformed.
func formInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}
