// Package geocode suggests street addresses for the checkout form using a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	// MinQueryLength is the shortest query that is looked up; shorter input yields
	// no suggestions.
	MinQueryLength = 4
	// MaxSuggestions caps the number of suggestions returned.
	MaxSuggestions = 5
)

// Suggestion is one candidate address.
type Suggestion struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Cache stores encoded suggestion lists.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client queries the geocoder.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	cache      Cache
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewClient creates a geocoding client. A nil cache disables caching.
func NewClient(baseURL, userAgent string, httpClient *http.Client, cache Cache, cacheTTL time.Duration, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.With().Str("component", "geocode").Logger(),
	}
}

// Suggest returns up to MaxSuggestions addresses matching query.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Suggestion{}, nil
	}

	key := "geocode:" + strings.ToLower(query)
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn().Err(err).Msg("geocode cache read failed")
		} else if ok {
			var cached []Suggestion
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	suggestions, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if raw, err := json.Marshal(suggestions); err == nil {
			if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
				c.logger.Warn().Err(err).Msg("geocode cache write failed")
			}
		}
	}
	return suggestions, nil
}

func (c *Client) search(ctx context.Context, query string) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", fmt.Sprint(MaxSuggestions))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request failed: status %d", resp.StatusCode)
	}

	var results []Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) > MaxSuggestions {
		results = results[:MaxSuggestions]
	}
	return results, nil
}
