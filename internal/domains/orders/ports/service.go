package ports

import (
	"context"

	"github.com/shopspring/decimal"

	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
)

// LineItemInput is one requested order line. UnitPrice is the menu price
// the caller observed; it becomes the immutable snapshot on the order.
type LineItemInput struct {
	MenuItemID string
	Quantity   int64
	UnitPrice  decimal.Decimal
}

// CreateOrderInput opens a new order for a table.
type CreateOrderInput struct {
	RestaurantID string
	TableID      string
	CouponCode   string
	Lines        []LineItemInput
}

// TransitionInput requests a status change.
type TransitionInput struct {
	OrderID       string
	Target        domain.Status
	CustomerClass coupondomain.CustomerClass
	// IdempotencyKey lets retried completion requests collapse onto one
	// durable execution.
	IdempotencyKey string
}

// PreviewDiscountInput validates a coupon against an order without
// consuming it.
type PreviewDiscountInput struct {
	OrderID       string
	Code          string
	CustomerClass coupondomain.CustomerClass
}

// Service is the order lifecycle application port.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	GetBill(ctx context.Context, orderID string) (*domain.Bill, error)
	PayBill(ctx context.Context, orderID string) (*domain.Bill, error)
	PreviewDiscount(ctx context.Context, input PreviewDiscountInput) (*coupondomain.AppliedDiscount, error)
}
