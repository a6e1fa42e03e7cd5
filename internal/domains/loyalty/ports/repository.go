package ports

import (
	"context"
	"errors"

	"github.com/dinecore/order-engine/internal/domains/loyalty/domain"
)

var ErrNotFound = errors.New("loyalty program not found")

// Store resolves program configuration and records accruals.
type Store interface {
	// ActiveProgram returns the restaurant's program, or nil when the
	// restaurant runs none. Inactive programs are returned too; the domain
	// decides they earn zero.
	ActiveProgram(ctx context.Context, restaurantID string) (*domain.Program, error)
	// RecordAccrual credits points for an order exactly once. Replaying a
	// recorded orderID is a no-op, keeping completion retries safe.
	RecordAccrual(ctx context.Context, programID, orderID string, points int64) error
	// Save upserts program configuration for the restaurant surface.
	Save(ctx context.Context, program *domain.Program) (*domain.Program, error)
}
