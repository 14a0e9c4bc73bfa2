package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"storefront/internal/apiclient"
	"storefront/internal/cart"
	"storefront/internal/notify"
	"storefront/internal/session"
	"storefront/internal/shop"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
)

// notificationsKey holds notifications carried across a redirect.
const notificationsKey = "notifications"

type requestKey struct{}

// Request is the set of stores built for one browser request.
type Request struct {
	Session  *session.Store
	Cookies  *session.HTTPPersister
	Cart     *cart.Store
	Notes    *notify.Store
	Services *shop.Services

	cartOnce sync.Once
	logger   zerolog.Logger
}

// LoadCart refreshes the cart once per request. Anonymous requests keep it empty.
func (q *Request) LoadCart(ctx context.Context) {
	if !q.Session.Snapshot().Authenticated() {
		return
	}
	q.cartOnce.Do(func() { q.Cart.Refresh(ctx) })
}

// persistNotifications moves the pending notifications into the session so the next
// page can show them.
func (q *Request) persistNotifications() {
	entries := q.Notes.Export()
	if len(entries) == 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		q.logger.Error().Err(err).Msg("failed to encode notifications")
		return
	}
	if err := q.Cookies.SetString(notificationsKey, string(raw)); err != nil {
		q.logger.Warn().Err(err).Msg("failed to persist notifications")
	}
}

func (q *Request) restoreNotifications() {
	raw, ok, err := q.Cookies.String(notificationsKey)
	if err != nil || !ok {
		return
	}
	if err := q.Cookies.Delete(notificationsKey); err != nil {
		q.logger.Warn().Err(err).Msg("failed to clear notifications")
	}
	var entries []notify.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		q.logger.Warn().Err(err).Msg("discarding malformed notifications")
		return
	}
	q.Notes.Restore(entries)
}

// RequestFrom returns the stores attached by Composer, or nil.
func RequestFrom(r *http.Request) *Request {
	q, _ := r.Context().Value(requestKey{}).(*Request)
	return q
}

// Composer builds the per-request stores and attaches them to the request context.
type Composer struct {
	store  sessions.Store
	name   string
	api    *apiclient.Client
	clock  notify.Clock
	logger zerolog.Logger
}

// NewComposer creates a composer. Sessions are read from store under the cookie name.
func NewComposer(store sessions.Store, name string, api *apiclient.Client, clock notify.Clock, logger zerolog.Logger) *Composer {
	return &Composer{
		store:  store,
		name:   name,
		api:    api,
		clock:  clock,
		logger: logger,
	}
}

// Middleware restores the session, binds the cart to it and restores carried
// notifications before calling next.
func (c *Composer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookies := session.NewHTTPPersister(c.store, c.name, w, r)
		sess := session.NewStore(cookies, c.logger)
		if err := sess.Restore(r.Context()); err != nil {
			c.logger.Warn().Err(err).Msg("session restore failed")
		}

		services := shop.NewServices(c.api.WithTokenSource(sess), c.logger)
		carts := cart.NewStore(services.Cart, sess, c.logger)
		unbind := carts.Bind(sess)
		defer unbind()

		q := &Request{
			Session:  sess,
			Cookies:  cookies,
			Cart:     carts,
			Notes:    notify.NewStore(c.clock),
			Services: services,
			logger:   c.logger,
		}
		q.restoreNotifications()
		// Whatever was not carried across a redirect has been shown or is dropped.
		defer q.Notes.Export()

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestKey{}, q)))
	})
}

// Snapshot reports the session state of a composed request. Requests that did not pass
// through Middleware are still loading.
func (c *Composer) Snapshot(r *http.Request) session.Snapshot {
	if q := RequestFrom(r); q != nil {
		return q.Session.Snapshot()
	}
	return session.Snapshot{State: session.StateUnknown}
}
