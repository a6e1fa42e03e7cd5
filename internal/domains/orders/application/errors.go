package application

import (
	"errors"
	"fmt"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/shared/money"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrCouponConsumptionFailed signals completion was aborted because the
	// coupon could not be consumed at commit time, e.g. concurrently
	// exhausted. The order keeps its prior status.
	ErrCouponConsumptionFailed = errors.New("coupon consumption failed")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNoLineItems) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, money.ErrInvalidAmount) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
