package settings

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"rentaldesk/internal/models"
	"rentaldesk/internal/store"
)

// PesosPerPoint is the fixed currency value of one loyalty point when
// redeemed for a discount.
const PesosPerPoint = 20.0

// Provider serves the current rental settings. It loads the persisted
// snapshot on construction and follows writes from other contexts through
// the store subscription; the engines only ever read from it.
type Provider struct {
	mu      sync.RWMutex
	store   store.Store
	logger  *zap.Logger
	current models.RentalSettings
}

// NewProvider builds a provider seeded from the store, falling back to the
// default rates when nothing is persisted.
func NewProvider(ctx context.Context, st store.Store, logger *zap.Logger) *Provider {
	p := &Provider{
		store:   st,
		logger:  logger,
		current: models.DefaultRentalSettings(),
	}
	if st != nil {
		st.Get(ctx, store.KeySettings, &p.current)
		st.Subscribe(ctx, store.KeySettings, func() { p.reload(ctx) })
	}
	return p
}

// Current returns the settings snapshot in effect.
func (p *Provider) Current() models.RentalSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Update persists new settings and makes them current.
func (p *Provider) Update(ctx context.Context, s models.RentalSettings) error {
	if p.store != nil {
		if err := p.store.Set(ctx, store.KeySettings, s); err != nil {
			return err
		}
	}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	return nil
}

func (p *Provider) reload(ctx context.Context) {
	var s models.RentalSettings
	if !p.store.Get(ctx, store.KeySettings, &s) {
		return
	}
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
	p.logger.Debug("rental settings reloaded")
}
