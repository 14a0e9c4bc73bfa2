// Package content loads the editorial content of the home page: headline, featured
// categories and the flash-sale deadline.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// Home is the editorial content of the home page.
type Home struct {
	Headline           string             `json:"headline"`
	Subheadline        string             `json:"subheadline"`
	FlashSaleEndsAt    time.Time          `json:"flashSaleEndsAt"`
	FeaturedCategories []FeaturedCategory `json:"featuredCategories"`
}

// FeaturedCategory is a category tile linking to the collections page.
type FeaturedCategory struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Link is the collections URL for the category.
func (c FeaturedCategory) Link() string {
	return "/collections?category=" + url.QueryEscape(c.Name)
}

// FlashSaleRemaining is the time left until the flash sale ends, or 0.
func (h *Home) FlashSaleRemaining(now time.Time) time.Duration {
	if h.FlashSaleEndsAt.IsZero() || !now.Before(h.FlashSaleEndsAt) {
		return 0
	}
	return h.FlashSaleEndsAt.Sub(now)
}

// Default is the content shown when nothing could be loaded.
func Default() *Home {
	return &Home{Headline: "Welcome to the shop"}
}

// Loader defines the interface for loading home content.
type Loader interface {
	// Load reads the content document stored under key.
	Load(ctx context.Context, key string) (*Home, error)
}

// decode parses and validates a content document.
func decode(r io.Reader) (*Home, error) {
	var home Home
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&home); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	for i, c := range home.FeaturedCategories {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("featured category %d has no name", i)
		}
	}
	return &home, nil
}
