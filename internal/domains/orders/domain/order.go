package domain

import (
	"errors"
	"time"

	"github.com/dinecore/order-engine/internal/shared/money"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the authoritative edge table. Any target absent from the
// current status's set is rejected. CANCELLED is deliberately unreachable
// from READY: prepared food is handed over through completion only.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

var (
	ErrNoLineItems       = errors.New("order requires at least one line item")
	ErrInvalidQuantity   = errors.New("line quantity must be at least one")
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrOrderFinalized    = errors.New("order is already finalized")
)

// LineItem is one order line. UnitPrice is snapshotted at order creation;
// later menu price changes never touch an existing order.
type LineItem struct {
	MenuItemID string
	Quantity   int64
	UnitPrice  money.Money
}

// Subtotal returns unitPrice * quantity for the line.
func (l LineItem) Subtotal() money.Money {
	total, err := l.UnitPrice.MulInt(l.Quantity)
	if err != nil {
		return money.Zero()
	}
	return total
}

// StatusChange is one append-only history entry.
type StatusChange struct {
	Status Status
	At     time.Time
}

// Order is the aggregate root for the order lifecycle. It owns its line
// items and status history exclusively; both are immutable once the order
// moves past PENDING.
type Order struct {
	ID           string
	RestaurantID string
	TableID      string
	Lines        []LineItem
	Status       Status
	CouponCode   string
	CreatedAt    time.Time
	History      []StatusChange
}

// NewOrder validates line items and constructs an order in PENDING with its
// first history entry.
func NewOrder(id, restaurantID, tableID string, lines []LineItem, couponCode string, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoLineItems
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}
	order := &Order{
		ID:           id,
		RestaurantID: restaurantID,
		TableID:      tableID,
		Lines:        append([]LineItem(nil), lines...),
		Status:       StatusPending,
		CouponCode:   couponCode,
		CreatedAt:    now,
		History:      []StatusChange{{Status: StatusPending, At: now}},
	}
	return order, nil
}

// Subtotal sums every line's subtotal.
func (o *Order) Subtotal() money.Money {
	total := money.Zero()
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// Terminal reports whether the order has reached a status with no outgoing
// transitions.
func (o *Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// CanTransition reports whether target is in the allowed-next set.
func (o *Order) CanTransition(target Status) bool {
	for _, next := range transitions[o.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition advances the order to target and appends to the status
// history. Terminal orders reject every request with ErrOrderFinalized;
// edges outside the table fail with ErrInvalidTransition.
func (o *Order) Transition(target Status, now time.Time) error {
	if o.Terminal() {
		return ErrOrderFinalized
	}
	if !o.CanTransition(target) {
		return ErrInvalidTransition
	}
	o.Status = target
	o.History = append(o.History, StatusChange{Status: target, At: now})
	return nil
}

// Clone returns a deep copy so stores can hand out aggregates without
// sharing slices.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]LineItem(nil), o.Lines...)
	clone.History = append([]StatusChange(nil), o.History...)
	return &clone
}

// ParseStatus validates a wire-format status string.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !isValidStatus(status) {
		return "", ErrInvalidStatus
	}
	return status, nil
}

func isValidStatus(status Status) bool {
	_, ok := transitions[status]
	return ok
}
