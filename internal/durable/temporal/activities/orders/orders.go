package orders

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/dinecore/order-engine/internal/domains/orders/application"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

const (
	// CompleteOrderActivityName commits the COMPLETED transition with its billing side effects.
	CompleteOrderActivityName = "orders.activities.CompleteOrder"

	// Application error types surfaced as non-retryable to the workflow.
	ErrTypeOrderFinalized    = "OrderFinalized"
	ErrTypeInvalidTransition = "InvalidTransition"
	ErrTypeCouponConsumption = "CouponConsumptionFailed"
)

// Activities groups activities that operate on the orders bounded context.
type Activities struct {
	service ports.Service
}

// NewActivities wires the order lifecycle service into the Temporal activities bundle.
func NewActivities(service ports.Service) *Activities {
	return &Activities{service: service}
}

// CompleteOrder runs the transactional completion and returns the finalized
// order. Deterministic rejections are wrapped as typed application errors so
// the retry policy can stop immediately.
func (a *Activities) CompleteOrder(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.service == nil {
		logger.Error("order completion activity not initialized", "orderId", input.OrderID)
		return nil, errors.New("order completion activity not initialized")
	}
	logger.Info("CompleteOrder activity started", "orderId", input.OrderID)
	input.Target = domain.StatusCompleted
	order, err := a.service.Transition(ctx, input)
	if err != nil {
		logger.Error("CompleteOrder activity failed", "orderId", input.OrderID, "error", err)
		return nil, asApplicationError(err)
	}
	logger.Info("CompleteOrder activity completed", "orderId", input.OrderID, "status", string(order.Status))
	return order, nil
}

func asApplicationError(err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderFinalized):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeOrderFinalized, err)
	case errors.Is(err, domain.ErrInvalidTransition):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidTransition, err)
	case errors.Is(err, application.ErrCouponConsumptionFailed):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeCouponConsumption, err)
	default:
		return err
	}
}
