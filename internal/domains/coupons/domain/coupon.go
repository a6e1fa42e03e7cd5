package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dinecore/order-engine/internal/shared/money"
)

// Type enumerates the discount mechanics a coupon can carry.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
	TypeFreeItem   Type = "free_item"
)

// Status enumerates coupon availability.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
	StatusPaused   Status = "paused"
)

// Applicability restricts which customer classes may redeem a coupon.
type Applicability string

const (
	ApplicableToAll               Applicability = "all"
	ApplicableToNewCustomers      Applicability = "new_customers"
	ApplicableToExistingCustomers Applicability = "existing_customers"
)

// CustomerClass describes the caller on whose behalf a coupon is validated.
type CustomerClass string

const (
	CustomerClassNew      CustomerClass = "new"
	CustomerClassExisting CustomerClass = "existing"
)

var (
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponExpired       = errors.New("coupon is outside its validity window")
	ErrCouponExhausted     = errors.New("coupon usage limit reached")
	ErrCouponNotApplicable = errors.New("coupon does not apply to this customer or order")
	ErrBelowMinimumOrder   = errors.New("order subtotal below coupon minimum")
)

// Coupon is a read-only promotional configuration owned by the restaurant.
// The engine only ever advances UsedCount, and that through the store's
// consumption step, never through this type.
type Coupon struct {
	ID           string
	RestaurantID string
	Code         string
	Type         Type
	// Value is the percentage for percentage coupons and the currency
	// amount for fixed coupons. Unused for free_item.
	Value          decimal.Decimal
	MinOrderAmount *money.Money
	// MaxDiscount caps percentage discounts only.
	MaxDiscount *money.Money
	ValidFrom   time.Time
	ValidUntil  time.Time
	UsageLimit  *int64
	UsedCount   int64
	Status      Status
	ApplicableTo Applicability
	// QualifyingItemIDs limits which menu items a free_item coupon can
	// discount. Empty means every line qualifies.
	QualifyingItemIDs []string
}

// Clone returns a copy that shares no pointers with the original.
func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	clone := *c
	if c.MinOrderAmount != nil {
		v := *c.MinOrderAmount
		clone.MinOrderAmount = &v
	}
	if c.MaxDiscount != nil {
		v := *c.MaxDiscount
		clone.MaxDiscount = &v
	}
	if c.UsageLimit != nil {
		v := *c.UsageLimit
		clone.UsageLimit = &v
	}
	clone.QualifyingItemIDs = append([]string(nil), c.QualifyingItemIDs...)
	return &clone
}

// LineQuote is the slice of an order a coupon needs to see: the menu item
// reference and its snapshotted unit price, in kitchen display order.
type LineQuote struct {
	MenuItemID string
	UnitPrice  money.Money
}

// OrderContext carries the order facts coupon validation reads.
type OrderContext struct {
	Subtotal money.Money
	Lines    []LineQuote
}

// AppliedDiscount is the outcome of a successful validation. It has not
// consumed anything; redemption is committed separately at completion.
type AppliedDiscount struct {
	CouponID string
	Code     string
	Amount   money.Money
}

// NormalizeCode canonicalizes a coupon code for case-insensitive matching.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate decides whether the coupon applies to the order and computes the
// discount. It is a pure function: checks run in a fixed order and the first
// failure wins, so concurrent callers always observe the same error for the
// same inputs. UsedCount is read but never advanced here.
func (c *Coupon) Validate(order OrderContext, class CustomerClass, now time.Time) (*AppliedDiscount, error) {
	if c.Status != StatusActive {
		return nil, ErrCouponInactive
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, ErrCouponExhausted
	}
	if !c.appliesTo(class) {
		return nil, ErrCouponNotApplicable
	}
	if c.MinOrderAmount != nil && order.Subtotal.Cmp(*c.MinOrderAmount) < 0 {
		return nil, ErrBelowMinimumOrder
	}
	amount, err := c.discountFor(order)
	if err != nil {
		return nil, err
	}
	return &AppliedDiscount{CouponID: c.ID, Code: c.Code, Amount: amount}, nil
}

func (c *Coupon) appliesTo(class CustomerClass) bool {
	switch c.ApplicableTo {
	case ApplicableToAll, "":
		return true
	case ApplicableToNewCustomers:
		return class == CustomerClassNew
	case ApplicableToExistingCustomers:
		return class == CustomerClassExisting
	default:
		return false
	}
}

func (c *Coupon) discountFor(order OrderContext) (money.Money, error) {
	switch c.Type {
	case TypePercentage:
		discount, err := order.Subtotal.Percent(c.Value)
		if err != nil {
			return money.Zero(), err
		}
		if c.MaxDiscount != nil {
			discount = money.Min(discount, *c.MaxDiscount)
		}
		return money.Min(discount, order.Subtotal), nil
	case TypeFixed:
		amount, err := money.FromDecimal(c.Value)
		if err != nil {
			return money.Zero(), err
		}
		return money.Min(amount, order.Subtotal), nil
	case TypeFreeItem:
		return c.cheapestQualifyingLine(order)
	default:
		return money.Zero(), ErrCouponNotApplicable
	}
}

// cheapestQualifyingLine discounts one unit of the cheapest qualifying line
// item. Ties keep the earliest line, preserving kitchen display order as the
// tie-break.
func (c *Coupon) cheapestQualifyingLine(order OrderContext) (money.Money, error) {
	var (
		found    bool
		cheapest money.Money
	)
	for _, line := range order.Lines {
		if !c.itemQualifies(line.MenuItemID) {
			continue
		}
		if !found || line.UnitPrice.Cmp(cheapest) < 0 {
			found = true
			cheapest = line.UnitPrice
		}
	}
	if !found {
		return money.Zero(), ErrCouponNotApplicable
	}
	return cheapest, nil
}

func (c *Coupon) itemQualifies(menuItemID string) bool {
	if len(c.QualifyingItemIDs) == 0 {
		return true
	}
	for _, id := range c.QualifyingItemIDs {
		if id == menuItemID {
			return true
		}
	}
	return false
}
