package model

import (
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalogue entry as served by GET /products and GET /products/{id}.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	FinalPrice  decimal.Decimal `json:"finalPrice"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Images      []ProductImage  `json:"images"`
	PromotionID *int            `json:"promotionId,omitempty"`
	Promotion   *Promotion      `json:"promotion,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ProductImage is a secondary image. Order is its position in the gallery.
type ProductImage struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Order int    `json:"order"`
}

// Discount returns the active promotion's percentage, or 0.
func (p Product) Discount() int {
	if p.Promotion == nil {
		return 0
	}
	return p.Promotion.Discount
}

// EffectivePrice is the price a buyer pays. It never exceeds Price and equals Price
// when no promotion is active. A fully discounted product costs zero.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.Discount() <= 0 || p.FinalPrice.IsNegative() || p.FinalPrice.GreaterThan(p.Price) {
		return p.Price
	}
	return p.FinalPrice
}

// Gallery returns the primary image followed by the secondary images by position.
func (p Product) Gallery() []string {
	images := p.orderedImages()
	out := make([]string, 0, len(images)+1)
	if p.Image != "" {
		out = append(out, p.Image)
	}
	for _, img := range images {
		out = append(out, img.URL)
	}
	return out
}

// Thumbnail is the first secondary image by position, falling back to the primary image.
func (p Product) Thumbnail() string {
	if images := p.orderedImages(); len(images) > 0 && images[0].URL != "" {
		return images[0].URL
	}
	if p.Image != "" {
		return p.Image
	}
	return "/static/fallback.svg"
}

func (p Product) orderedImages() []ProductImage {
	images := make([]ProductImage, len(p.Images))
	copy(images, p.Images)
	sort.SliceStable(images, func(i, j int) bool { return images[i].Order < images[j].Order })
	return images
}

// ProductInput carries the fields of the product create/edit forms.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	Category    string
	PromotionID string
}

// Fields renders the input as multipart form fields. Empty description and category
// are omitted; promotionId is always sent and an empty value detaches the promotion.
func (in ProductInput) Fields() map[string]string {
	fields := map[string]string{
		"name":        in.Name,
		"price":       in.Price.String(),
		"quantity":    strconv.Itoa(in.Quantity),
		"promotionId": in.PromotionID,
	}
	optional := map[string]string{
		"description": in.Description,
		"category":    in.Category,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}
