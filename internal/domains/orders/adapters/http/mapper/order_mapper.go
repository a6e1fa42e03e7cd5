package mapper

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var (
	errMissingLines  = errors.New("lines is required")
	errMissingTarget = errors.New("target is required")
	errInvalidPrice  = errors.New("unitPrice must be a decimal number")
	errInvalidTarget = errors.New("target is not a recognized status")
)

// LineItem is the HTTP representation of one order line.
type LineItem struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
}

// CreateOrderRequest captures the inbound order payload.
type CreateOrderRequest struct {
	RestaurantID string     `json:"restaurantId"`
	TableID      string     `json:"tableId,omitempty"`
	CouponCode   string     `json:"couponCode,omitempty"`
	Lines        []LineItem `json:"lines"`
}

// TransitionRequest captures a status change request.
type TransitionRequest struct {
	Target         string `json:"target"`
	CustomerClass  string `json:"customerClass,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// PreviewDiscountRequest captures a coupon preview request.
type PreviewDiscountRequest struct {
	Code          string `json:"code"`
	CustomerClass string `json:"customerClass,omitempty"`
}

// StatusChange is one history entry on the wire.
type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Order is the HTTP representation of an order aggregate.
type Order struct {
	ID           string         `json:"id"`
	RestaurantID string         `json:"restaurantId"`
	TableID      string         `json:"tableId,omitempty"`
	Status       string         `json:"status"`
	CouponCode   string         `json:"couponCode,omitempty"`
	Lines        []LineItem     `json:"lines"`
	Subtotal     string         `json:"subtotal"`
	CreatedAt    time.Time      `json:"createdAt"`
	History      []StatusChange `json:"history,omitempty"`
}

// Bill is the HTTP representation of a bill.
type Bill struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"orderId"`
	RestaurantID string     `json:"restaurantId"`
	Number       int64      `json:"number"`
	Subtotal     string     `json:"subtotal"`
	Tax          string     `json:"tax"`
	Discount     string     `json:"discount"`
	Total        string     `json:"total"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Discount is the HTTP representation of a validated coupon outcome.
type Discount struct {
	CouponID string `json:"couponId"`
	Code     string `json:"code"`
	Amount   string `json:"amount"`
}

// ToCreateOrderInput validates the payload and produces the application DTO.
func ToCreateOrderInput(req CreateOrderRequest) (ports.CreateOrderInput, error) {
	if len(req.Lines) == 0 {
		return ports.CreateOrderInput{}, errMissingLines
	}
	lines := make([]ports.LineItemInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			return ports.CreateOrderInput{}, errInvalidPrice
		}
		lines = append(lines, ports.LineItemInput{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  price,
		})
	}
	return ports.CreateOrderInput{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
		CouponCode:   req.CouponCode,
		Lines:        lines,
	}, nil
}

// ToTransitionInput validates the payload and produces the application DTO.
func ToTransitionInput(orderID string, req TransitionRequest) (ports.TransitionInput, error) {
	if req.Target == "" {
		return ports.TransitionInput{}, errMissingTarget
	}
	target, err := domain.ParseStatus(req.Target)
	if err != nil {
		return ports.TransitionInput{}, errInvalidTarget
	}
	return ports.TransitionInput{
		OrderID:        orderID,
		Target:         target,
		CustomerClass:  toCustomerClass(req.CustomerClass),
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

// ToPreviewDiscountInput produces the application DTO for a coupon preview.
func ToPreviewDiscountInput(orderID string, req PreviewDiscountRequest) ports.PreviewDiscountInput {
	return ports.PreviewDiscountInput{
		OrderID:       orderID,
		Code:          req.Code,
		CustomerClass: toCustomerClass(req.CustomerClass),
	}
}

func toCustomerClass(s string) coupondomain.CustomerClass {
	if s == string(coupondomain.CustomerClassNew) {
		return coupondomain.CustomerClassNew
	}
	return coupondomain.CustomerClassExisting
}

// FromDomainOrder maps the aggregate into its transport shape.
func FromDomainOrder(order *domain.Order) Order {
	lines := make([]LineItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, LineItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice.String(),
		})
	}
	history := make([]StatusChange, 0, len(order.History))
	for _, change := range order.History {
		history = append(history, StatusChange{Status: string(change.Status), At: change.At})
	}
	return Order{
		ID:           order.ID,
		RestaurantID: order.RestaurantID,
		TableID:      order.TableID,
		Status:       string(order.Status),
		CouponCode:   order.CouponCode,
		Lines:        lines,
		Subtotal:     order.Subtotal().String(),
		CreatedAt:    order.CreatedAt,
		History:      history,
	}
}

// FromDomainBill maps a bill into its transport shape.
func FromDomainBill(bill *domain.Bill) Bill {
	resp := Bill{
		ID:           bill.ID,
		OrderID:      bill.OrderID,
		RestaurantID: bill.RestaurantID,
		Number:       bill.Number,
		Subtotal:     bill.Subtotal.String(),
		Tax:          bill.Tax.String(),
		Discount:     bill.Discount.String(),
		Total:        bill.Total.String(),
		CreatedAt:    bill.CreatedAt,
	}
	if bill.PaidAt != nil {
		at := *bill.PaidAt
		resp.PaidAt = &at
	}
	return resp
}

// FromAppliedDiscount maps a validated coupon into its transport shape.
func FromAppliedDiscount(d *coupondomain.AppliedDiscount) Discount {
	return Discount{CouponID: d.CouponID, Code: d.Code, Amount: d.Amount.String()}
}
