package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	orderactivities "github.com/dinecore/order-engine/internal/durable/temporal/activities/orders"
)

// RunOrderCompletionSequence executes the activity that commits the
// COMPLETED transition. Conflict errors are non-retryable: a finalized order
// stays finalized no matter how often the workflow retries.
func RunOrderCompletionSequence(ctx workflow.Context, input ports.TransitionInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order completion sequence started", "orderId", input.OrderID)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
			NonRetryableErrorTypes: []string{
				orderactivities.ErrTypeOrderFinalized,
				orderactivities.ErrTypeInvalidTransition,
				orderactivities.ErrTypeCouponConsumption,
			},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var order domain.Order
	err := workflow.ExecuteActivity(ctx, orderactivities.CompleteOrderActivityName, input).Get(ctx, &order)
	if err != nil {
		logger.Error("order completion sequence failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}
	logger.Info("order completion sequence completed", "orderId", input.OrderID)
	return &order, nil
}
