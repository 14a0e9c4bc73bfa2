package shop

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// cartService implements CartService.
type cartService struct {
	api    Requester
	logger zerolog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(api Requester, logger zerolog.Logger) CartService {
	return &cartService{
		api:    api,
		logger: logger.With().Str("service", "cart").Logger(),
	}
}

func (s *cartService) Lines(ctx context.Context) ([]model.CartLine, error) {
	var resp model.CartResponse
	if err := s.api.Get(ctx, "/cart", &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	if resp.Items == nil {
		return []model.CartLine{}, nil
	}
	return resp.Items, nil
}

func (s *cartService) Add(ctx context.Context, productID, quantity int) error {
	req := model.CartAddRequest{ProductID: productID, Quantity: quantity}
	if err := s.api.Post(ctx, "/cart", req, nil); err != nil {
		return fmt.Errorf("failed to add product %d to cart: %w", productID, err)
	}
	return nil
}

func (s *cartService) Update(ctx context.Context, lineID, quantity int) error {
	req := model.CartUpdateRequest{Quantity: quantity}
	if err := s.api.Put(ctx, fmt.Sprintf("/cart/%d", lineID), req, nil); err != nil {
		return fmt.Errorf("failed to update cart line %d: %w", lineID, err)
	}
	return nil
}

func (s *cartService) Remove(ctx context.Context, lineID int) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/cart/%d", lineID), nil); err != nil {
		return fmt.Errorf("failed to remove cart line %d: %w", lineID, err)
	}
	return nil
}
