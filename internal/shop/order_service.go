package shop

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	api    Requester
	logger zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(api Requester, logger zerolog.Logger) OrderService {
	return &orderService{
		api:    api,
		logger: logger.With().Str("service", "order").Logger(),
	}
}

// Place creates an order from the server-side cart.
func (s *orderService) Place(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	var order model.Order
	if err := s.api.Post(ctx, "/orders", req, &order); err != nil {
		s.logger.Warn().Err(err).Str("payment_method", req.PaymentMethod).Msg("order placement failed")
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.logger.Info().
		Int("order_id", order.ID).
		Str("payment_method", req.PaymentMethod).
		Msg("order placed")
	return &order, nil
}

// Mine lists the current user's orders.
func (s *orderService) Mine(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := s.api.Get(ctx, "/orders/my", &orders); err != nil {
		return nil, fmt.Errorf("failed to list own orders: %w", err)
	}
	return orders, nil
}

// All lists every order (staff and admin).
func (s *orderService) All(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := s.api.Get(ctx, "/orders", &orders); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Get(ctx context.Context, id int) (*model.Order, error) {
	var order model.Order
	if err := s.api.Get(ctx, fmt.Sprintf("/orders/%d", id), &order); err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id int, status model.OrderStatus) error {
	if _, err := model.ParseOrderStatus(string(status)); err != nil {
		return err
	}

	path := fmt.Sprintf("/orders/%d/status", id)
	if err := s.api.Put(ctx, path, model.OrderStatusRequest{Status: status}, nil); err != nil {
		return fmt.Errorf("failed to update order %d status: %w", id, err)
	}

	s.logger.Info().Int("order_id", id).Str("status", string(status)).Msg("order status updated")
	return nil
}
