package shop

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

type addressService struct {
	api    Requester
	logger zerolog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(api Requester, logger zerolog.Logger) AddressService {
	return &addressService{
		api:    api,
		logger: logger.With().Str("service", "address").Logger(),
	}
}

func (s *addressService) List(ctx context.Context) ([]model.Address, error) {
	var addresses []model.Address
	if err := s.api.Get(ctx, "/userAddress", &addresses); err != nil {
		return nil, fmt.Errorf("failed to list saved addresses: %w", err)
	}
	return addresses, nil
}
