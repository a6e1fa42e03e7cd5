package ports

import (
	"context"
	"errors"
	"time"

	couponports "github.com/dinecore/order-engine/internal/domains/coupons/ports"
	loyaltyports "github.com/dinecore/order-engine/internal/domains/loyalty/ports"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
)

var (
	ErrNotFound     = errors.New("order not found")
	ErrBillNotFound = errors.New("bill not found")
	// ErrStatusConflict signals a compare-and-swap failure: another caller
	// moved the order since it was loaded.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrUnavailable wraps store outages so callers can retry with backoff.
	ErrUnavailable = errors.New("persistence unavailable")
)

// OrderStore persists order aggregates.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// UpdateStatus persists the order's current status and newly appended
	// history entries, guarded by the status the caller loaded. A mismatch
	// returns ErrStatusConflict and writes nothing.
	UpdateStatus(ctx context.Context, order *domain.Order, expected domain.Status) (*domain.Order, error)
}

// BillStore persists bills and allocates restaurant-scoped bill numbers.
type BillStore interface {
	// AllocateNumber returns the next bill number for the restaurant.
	// Allocation is serialized per restaurant and gap-free when called
	// inside the completion transaction.
	AllocateNumber(ctx context.Context, restaurantID string) (int64, error)
	Save(ctx context.Context, bill *domain.Bill) (*domain.Bill, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Bill, error)
	// MarkPaid stamps paidAt exactly once; a paid bill returns
	// domain.ErrBillAlreadyPaid.
	MarkPaid(ctx context.Context, orderID string, at time.Time) (*domain.Bill, error)
}

// TxStores bundles the stores visible inside one transaction.
type TxStores struct {
	Orders  OrderStore
	Bills   BillStore
	Coupons couponports.Store
	Loyalty loyaltyports.Store
}

// UnitOfWork runs fn inside a single all-or-nothing commit. The COMPLETED
// transition uses it so coupon consumption, bill creation, and loyalty
// accrual either all land or none do.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

// TaxProvider resolves the tax configuration in force for a restaurant.
type TaxProvider interface {
	TaxConfigFor(ctx context.Context, restaurantID string) (domain.TaxConfig, error)
}
