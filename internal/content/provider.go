package content

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Provider serves the last successfully loaded content.
type Provider struct {
	mu     sync.RWMutex
	home   *Home
	loader Loader
	key    string
	logger zerolog.Logger
}

// NewProvider creates a provider that serves Default until Reload succeeds.
func NewProvider(loader Loader, key string, logger zerolog.Logger) *Provider {
	return &Provider{
		home:   Default(),
		loader: loader,
		key:    key,
		logger: logger.With().Str("component", "content-provider").Logger(),
	}
}

// Reload loads the content again. On failure the previous content is kept.
func (p *Provider) Reload(ctx context.Context) error {
	home, err := p.loader.Load(ctx, p.key)
	if err != nil {
		p.logger.Warn().Err(err).Msg("content reload failed, keeping previous content")
		return err
	}
	p.mu.Lock()
	p.home = home
	p.mu.Unlock()
	return nil
}

// Home returns the current content.
func (p *Provider) Home() *Home {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.home
}
