package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dinecore/order-engine/internal/shared/money"
)

var ErrBillAlreadyPaid = errors.New("bill is already paid")

// TaxConfig is the restaurant's tax setting applied at billing time.
type TaxConfig struct {
	Enabled bool
	// Rate is a percentage, e.g. 8 or 8.25.
	Rate decimal.Decimal
}

// Bill is the immutable billing record produced exactly once per order, at
// the COMPLETED transition. After creation only PaidAt may be set, once.
type Bill struct {
	ID           string
	OrderID      string
	RestaurantID string
	// Number is the restaurant-scoped gap-free sequence, allocated inside
	// the completion transaction.
	Number    int64
	Subtotal  money.Money
	Tax       money.Money
	Discount  money.Money
	Total     money.Money
	PaidAt    *time.Time
	CreatedAt time.Time
}

// Clone returns a copy that shares no pointers with the original.
func (b *Bill) Clone() *Bill {
	if b == nil {
		return nil
	}
	clone := *b
	if b.PaidAt != nil {
		at := *b.PaidAt
		clone.PaidAt = &at
	}
	return &clone
}

// MarkPaid stamps the payment time. A paid bill stays paid.
func (b *Bill) MarkPaid(now time.Time) error {
	if b.PaidAt != nil {
		return ErrBillAlreadyPaid
	}
	at := now
	b.PaidAt = &at
	return nil
}

// ComputeBill derives the monetary breakdown for an order. The step order
// is fixed: tax applies to the pre-discount subtotal, the discount is then
// clamped against subtotal+tax, and the total never goes below zero.
// The bill number is assigned by the store at commit time.
func ComputeBill(order *Order, tax TaxConfig, discount money.Money, now time.Time) (*Bill, error) {
	subtotal := order.Subtotal()

	taxAmount := money.Zero()
	if tax.Enabled {
		var err error
		taxAmount, err = subtotal.Percent(tax.Rate)
		if err != nil {
			return nil, err
		}
	}

	gross := subtotal.Add(taxAmount)
	discount = money.Min(discount, gross)
	total := gross.SubClamped(discount)

	return &Bill{
		ID:           uuid.NewString(),
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		Subtotal:     subtotal,
		Tax:          taxAmount,
		Discount:     discount,
		Total:        total,
		CreatedAt:    now,
	}, nil
}
