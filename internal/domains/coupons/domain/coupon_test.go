package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dinecore/order-engine/internal/shared/money"
)

var (
	windowStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
	midWindow   = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
)

func activeCoupon() *Coupon {
	return &Coupon{
		ID:           "c-1",
		RestaurantID: "r-1",
		Code:         "SAVE10",
		Type:         TypePercentage,
		Value:        decimal.NewFromInt(10),
		ValidFrom:    windowStart,
		ValidUntil:   windowEnd,
		Status:       StatusActive,
		ApplicableTo: ApplicableToAll,
	}
}

func orderOf(subtotalCents int64) OrderContext {
	return OrderContext{Subtotal: money.MustFromCents(subtotalCents)}
}

func TestValidate_CheckOrderAndErrorPriority(t *testing.T) {
	limit := int64(1)
	minOrder := money.MustFromCents(100000)

	// A coupon failing every check must report the highest-priority error.
	c := activeCoupon()
	c.Status = StatusPaused
	c.ValidUntil = windowStart
	c.UsageLimit = &limit
	c.UsedCount = 1
	c.ApplicableTo = ApplicableToNewCustomers
	c.MinOrderAmount = &minOrder

	_, err := c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrCouponInactive)

	c.Status = StatusActive
	_, err = c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrCouponExpired)

	c.ValidUntil = windowEnd
	_, err = c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrCouponExhausted)

	c.UsedCount = 0
	_, err = c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrCouponNotApplicable)

	c.ApplicableTo = ApplicableToAll
	_, err = c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrBelowMinimumOrder)

	c.MinOrderAmount = nil
	applied, err := c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(250), applied.Amount.Cents())
}

func TestValidate_ExpiredBeforeWindow(t *testing.T) {
	c := activeCoupon()
	_, err := c.Validate(orderOf(2500), CustomerClassNew, windowStart.Add(-time.Hour))
	require.ErrorIs(t, err, ErrCouponExpired)
}

func TestValidate_PercentageCappedByMaxDiscount(t *testing.T) {
	// SAVE10: 10% of $25.00 = $2.50, cap $3.00 leaves $2.50.
	c := activeCoupon()
	cap := money.MustFromCents(300)
	c.MaxDiscount = &cap

	applied, err := c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(250), applied.Amount.Cents())

	// A tight cap clamps the discount.
	cap = money.MustFromCents(100)
	c.MaxDiscount = &cap
	applied, err = c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(100), applied.Amount.Cents())
}

func TestValidate_PercentageNeverExceedsSubtotal(t *testing.T) {
	c := activeCoupon()
	c.Value = decimal.NewFromInt(150)

	applied, err := c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(2500), applied.Amount.Cents())
}

func TestValidate_FixedClampedToSubtotal(t *testing.T) {
	c := activeCoupon()
	c.Type = TypeFixed
	c.Value = decimal.RequireFromString("40.00")

	applied, err := c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(2500), applied.Amount.Cents())

	c.Value = decimal.RequireFromString("5.00")
	applied, err = c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(500), applied.Amount.Cents())
}

func TestValidate_FreeItemPicksCheapestQualifyingLine(t *testing.T) {
	c := activeCoupon()
	c.Type = TypeFreeItem

	order := OrderContext{
		Subtotal: money.MustFromCents(2500),
		Lines: []LineQuote{
			{MenuItemID: "burger", UnitPrice: money.MustFromCents(1000)},
			{MenuItemID: "fries", UnitPrice: money.MustFromCents(500)},
			{MenuItemID: "slaw", UnitPrice: money.MustFromCents(500)},
		},
	}

	applied, err := c.Validate(order, CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(500), applied.Amount.Cents())

	// Restricting qualification skips non-matching lines.
	c.QualifyingItemIDs = []string{"burger"}
	applied, err = c.Validate(order, CustomerClassNew, midWindow)
	require.NoError(t, err)
	require.Equal(t, int64(1000), applied.Amount.Cents())

	// No qualifying line at all is a validation failure.
	c.QualifyingItemIDs = []string{"shake"}
	_, err = c.Validate(order, CustomerClassNew, midWindow)
	require.ErrorIs(t, err, ErrCouponNotApplicable)
}

func TestValidate_CustomerClassMatching(t *testing.T) {
	c := activeCoupon()
	c.ApplicableTo = ApplicableToNewCustomers

	_, err := c.Validate(orderOf(2500), CustomerClassExisting, midWindow)
	require.ErrorIs(t, err, ErrCouponNotApplicable)

	_, err = c.Validate(orderOf(2500), CustomerClassNew, midWindow)
	require.NoError(t, err)
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "SAVE10", NormalizeCode("  save10 "))
}
