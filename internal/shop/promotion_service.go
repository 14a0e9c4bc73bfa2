package shop

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// promotionService implements PromotionService.
type promotionService struct {
	api    Requester
	logger zerolog.Logger
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(api Requester, logger zerolog.Logger) PromotionService {
	return &promotionService{
		api:    api,
		logger: logger.With().Str("service", "promotion").Logger(),
	}
}

func (s *promotionService) List(ctx context.Context) ([]model.Promotion, error) {
	var promotions []model.Promotion
	if err := s.api.Get(ctx, "/promotions", &promotions); err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	return promotions, nil
}

func (s *promotionService) Get(ctx context.Context, id int) (*model.Promotion, error) {
	var promotion model.Promotion
	if err := s.api.Get(ctx, fmt.Sprintf("/promotions/%d", id), &promotion); err != nil {
		return nil, fmt.Errorf("failed to get promotion %d: %w", id, err)
	}
	return &promotion, nil
}

func (s *promotionService) Create(ctx context.Context, p model.Promotion) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.api.Post(ctx, "/promotions", p, nil); err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	s.logger.Info().Str("title", p.Title).Int("discount", p.Discount).Msg("promotion created")
	return nil
}

func (s *promotionService) Update(ctx context.Context, id int, p model.Promotion) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.api.Put(ctx, fmt.Sprintf("/promotions/%d", id), p, nil); err != nil {
		return fmt.Errorf("failed to update promotion %d: %w", id, err)
	}
	return nil
}

func (s *promotionService) Delete(ctx context.Context, id int) error {
	if err := s.api.Delete(ctx, fmt.Sprintf("/promotions/%d", id), nil); err != nil {
		return fmt.Errorf("failed to delete promotion %d: %w", id, err)
	}
	return nil
}
