package orders

import (
	"go.temporal.io/sdk/workflow"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/durable/temporal/sequences"
)

const (
	// OrderCompletionWorkflowName is the public identifier for registering the workflow.
	OrderCompletionWorkflowName = "orders.workflows.Completion"
	// OrderCompletionTaskQueue is the queue consumed by the worker processing order workflows.
	OrderCompletionTaskQueue = "ORDER_COMPLETION"
)

// OrderCompletionWorkflowInput captures the payload required to complete and bill an order.
type OrderCompletionWorkflowInput struct {
	Command ports.TransitionInput
	TraceID string
}

// OrderCompletionWorkflow orchestrates the activities that finalize an order:
// coupon redemption, billing, and loyalty accrual through the application
// service's transactional completion.
func OrderCompletionWorkflow(ctx workflow.Context, input OrderCompletionWorkflowInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("OrderCompletionWorkflow started", withTraceID(input.TraceID, "orderId", input.Command.OrderID)...)
	order, err := sequences.RunOrderCompletionSequence(ctx, input.Command)
	if err != nil {
		logger.Error("OrderCompletionWorkflow failed", withTraceID(input.TraceID, "orderId", input.Command.OrderID, "error", err)...)
		return nil, err
	}
	logger.Info("OrderCompletionWorkflow completed", withTraceID(input.TraceID, "orderId", input.Command.OrderID)...)
	return order, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
