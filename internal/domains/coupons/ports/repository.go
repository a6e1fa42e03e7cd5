package ports

import (
	"context"
	"errors"

	"github.com/dinecore/order-engine/internal/domains/coupons/domain"
)

var ErrNotFound = errors.New("coupon not found")

// Store loads coupon configuration and commits redemptions. Validation is a
// read-only concern handled by the domain; Consume is the only write.
type Store interface {
	// FindByCode resolves a coupon by its case-insensitive code within a
	// restaurant.
	FindByCode(ctx context.Context, restaurantID, code string) (*domain.Coupon, error)
	// Consume records one redemption of the coupon by the given order. It is
	// idempotent per orderID: replaying a committed redemption is a no-op.
	// When the usage limit is already reached it returns
	// domain.ErrCouponExhausted without recording anything.
	Consume(ctx context.Context, couponID, orderID string) error
	// Save upserts coupon configuration. Owned by the restaurant's
	// configuration surface; the engine itself only reads and consumes.
	Save(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error)
}
