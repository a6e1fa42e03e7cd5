package ports

import (
	"context"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
)

// WorkflowOrchestrator routes the COMPLETED transition, whose side effects
// deserve durable execution, through a workflow engine or inline fallback.
type WorkflowOrchestrator interface {
	CompleteOrder(ctx context.Context, input TransitionInput) (*domain.Order, error)
}
