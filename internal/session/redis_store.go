package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore is a sessions.Store that keeps values in Redis and only a signed session
// ID in the cookie.
type RedisStore struct {
	client  redis.UniversalClient
	codecs  []securecookie.Codec
	prefix  string
	Options *sessions.Options
	logger  zerolog.Logger
}

var gobEncoder = securecookie.GobEncoder{}

// DefaultSessionTTL bounds Redis sessions whose cookie lives for the browser session.
const DefaultSessionTTL = 7 * 24 * time.Hour

// sessionTTL maps a cookie MaxAge onto a Redis expiry. Redis treats zero as "never
// expire", so browser-session cookies get DefaultSessionTTL.
func sessionTTL(maxAge int) time.Duration {
	if maxAge <= 0 {
		return DefaultSessionTTL
	}
	return time.Duration(maxAge) * time.Second
}

// NewRedisStore creates a Redis-backed store. keyPairs sign the session ID cookie.
func NewRedisStore(client redis.UniversalClient, prefix string, opts Options, logger zerolog.Logger, keyPairs ...[]byte) *RedisStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(opts.MaxAge)
		}
	}
	return &RedisStore{
		client:  client,
		codecs:  codecs,
		prefix:  prefix,
		Options: opts.cookieOptions(),
		logger:  logger.With().Str("component", "redis_session_store").Logger(),
	}
}

// Get returns the session for name, cached per request.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie, or returns a fresh one.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.codecs...); err != nil {
		return session, fmt.Errorf("failed to decode session cookie: %w", err)
	}

	data, err := s.client.Get(r.Context(), s.key(session.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		session.ID = ""
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("failed to load session: %w", err)
	}
	if err := gobEncoder.Deserialize(data, &session.Values); err != nil {
		return session, fmt.Errorf("failed to decode session values: %w", err)
	}
	session.IsNew = false
	return session, nil
}

// Save writes the session to Redis and refreshes the cookie. A negative MaxAge deletes
// both.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(ctx, s.key(session.ID)).Err(); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := gobEncoder.Serialize(session.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}

	ttl := sessionTTL(session.Options.MaxAge)
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))

	s.logger.Debug().Str("session_id", session.ID).Dur("ttl", ttl).Msg("session saved")
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
