package shop

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// authService implements AuthService.
type authService struct {
	api    Requester
	logger zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(api Requester, logger zerolog.Logger) AuthService {
	return &authService{
		api:    api,
		logger: logger.With().Str("service", "auth").Logger(),
	}
}

// Login exchanges credentials for an identity carrying a token.
func (s *authService) Login(ctx context.Context, creds model.Credentials) (model.Identity, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return model.Identity{}, model.NewDomainError(model.ErrCodeMissingField, "Email and password are required")
	}

	var resp model.LoginResponse
	if err := s.api.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return model.Identity{}, fmt.Errorf("login failed: %w", err)
	}
	if resp.Token == "" {
		return model.Identity{}, fmt.Errorf("login failed: response carried no token")
	}

	identity := resp.Identity()
	s.logger.Info().
		Str("user_id", identity.ID).
		Str("role", identity.Role.String()).
		Msg("login succeeded")
	return identity, nil
}

// Register creates an account.
func (s *authService) Register(ctx context.Context, reg model.Registration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Name == "" || reg.Email == "" || reg.Password == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "Name, email and password are required")
	}

	if err := s.api.Post(ctx, "/auth/register", reg, nil); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Me fetches the current identity's profile.
func (s *authService) Me(ctx context.Context) (*model.Profile, error) {
	var profile model.Profile
	if err := s.api.Get(ctx, "/auth/me", &profile); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return &profile, nil
}
