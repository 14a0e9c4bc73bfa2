package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"storefront/internal/model"

	"github.com/gorilla/sessions"
)

const identityKey = "identity"

// Options configures the browser cookie that carries the session.
type Options struct {
	Domain string
	Secure bool
	MaxAge int
}

func (o Options) cookieOptions() *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewCookieStore keeps the whole session in a signed cookie.
func NewCookieStore(authKey []byte, opts Options) *sessions.CookieStore {
	store := sessions.NewCookieStore(authKey)
	store.Options = opts.cookieOptions()
	store.MaxAge(opts.MaxAge)
	return store
}

// HTTPPersister persists an identity in a gorilla session bound to one request.
type HTTPPersister struct {
	store sessions.Store
	name  string
	w     http.ResponseWriter
	r     *http.Request
}

// NewHTTPPersister binds a session store to one request/response pair.
func NewHTTPPersister(store sessions.Store, name string, w http.ResponseWriter, r *http.Request) *HTTPPersister {
	return &HTTPPersister{store: store, name: name, w: w, r: r}
}

func (p *HTTPPersister) session() (*sessions.Session, error) {
	sess, err := p.store.Get(p.r, p.name)
	if err != nil {
		// A cookie signed with a rotated key decodes as an error plus a fresh session.
		if sess != nil {
			return sess, nil
		}
		return nil, fmt.Errorf("failed to open session %q: %w", p.name, err)
	}
	return sess, nil
}

// Load returns the stored identity, or nil when nothing is stored.
func (p *HTTPPersister) Load(ctx context.Context) (*model.Identity, error) {
	raw, ok, err := p.String(identityKey)
	if err != nil || !ok {
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("failed to decode stored identity: %w", err)
	}
	return &identity, nil
}

// Save writes identity into the session cookie.
func (p *HTTPPersister) Save(ctx context.Context, identity model.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	return p.SetString(identityKey, string(raw))
}

// Clear removes the identity. Other session values survive.
func (p *HTTPPersister) Clear(ctx context.Context) error {
	return p.Delete(identityKey)
}

// String reads a string value from the session.
func (p *HTTPPersister) String(key string) (string, bool, error) {
	sess, err := p.session()
	if err != nil {
		return "", false, err
	}
	v, ok := sess.Values[key].(string)
	return v, ok, nil
}

// SetString writes a string value and saves the session.
func (p *HTTPPersister) SetString(key, value string) error {
	sess, err := p.session()
	if err != nil {
		return err
	}
	sess.Values[key] = value
	if err := sess.Save(p.r, p.w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a value and saves the session.
func (p *HTTPPersister) Delete(key string) error {
	sess, err := p.session()
	if err != nil {
		return err
	}
	if _, ok := sess.Values[key]; !ok {
		return nil
	}
	delete(sess.Values, key)
	if err := sess.Save(p.r, p.w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
