package tax

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var _ ports.TaxProvider = (*StaticProvider)(nil)

// StaticProvider serves one process-wide tax configuration, optionally
// overridden per restaurant. Rate changes only ever affect bills computed
// after the change; issued bills are immutable.
type StaticProvider struct {
	defaults  domain.TaxConfig
	overrides map[string]domain.TaxConfig
}

// NewStaticProvider builds a provider with a default rate expressed as a
// percentage, e.g. 8.25.
func NewStaticProvider(enabled bool, rate decimal.Decimal) *StaticProvider {
	return &StaticProvider{
		defaults:  domain.TaxConfig{Enabled: enabled, Rate: rate},
		overrides: map[string]domain.TaxConfig{},
	}
}

// SetOverride pins a restaurant-specific tax configuration.
func (p *StaticProvider) SetOverride(restaurantID string, config domain.TaxConfig) {
	p.overrides[restaurantID] = config
}

func (p *StaticProvider) TaxConfigFor(_ context.Context, restaurantID string) (domain.TaxConfig, error) {
	if config, ok := p.overrides[restaurantID]; ok {
		return config, nil
	}
	return p.defaults, nil
}
