package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	couponports "github.com/dinecore/order-engine/internal/domains/coupons/ports"
	loyaltyports "github.com/dinecore/order-engine/internal/domains/loyalty/ports"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/shared/clock"
	"github.com/dinecore/order-engine/internal/shared/money"
)

// Service orchestrates the order lifecycle: creation, status transitions,
// and the billing, coupon, and loyalty side effects of completion.
type Service struct {
	stores ports.TxStores
	uow    ports.UnitOfWork
	taxes  ports.TaxProvider
	clock  clock.Clock
	locks  *keyedMutex
}

type Option func(*Service)

// WithClock overrides the time source for deterministic testing.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewService wires the lifecycle service with its collaborators. The stores
// are used for autocommit reads and simple transitions; the unit of work
// carries the completion commit.
func NewService(stores ports.TxStores, uow ports.UnitOfWork, taxes ports.TaxProvider, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		uow:    uow,
		taxes:  taxes,
		clock:  clock.System{},
		locks:  newKeyedMutex(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrder snapshots the requested lines at their current prices and
// opens the order in PENDING.
func (s *Service) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	lines := make([]domain.LineItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		price, err := money.FromDecimal(line.UnitPrice)
		if err != nil {
			return nil, mapError(err)
		}
		lines = append(lines, domain.LineItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  price,
		})
	}
	order, err := domain.NewOrder(
		uuid.NewString(),
		input.RestaurantID,
		input.TableID,
		lines,
		coupondomain.NormalizeCode(input.CouponCode),
		s.clock.Now(),
	)
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := s.stores.Orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Transition advances the order toward a terminal status. Transitions for
// the same order are mutually exclusive; concurrent losers observe the
// conflict as a finalized or invalid-transition error, never a double
// commit.
func (s *Service) Transition(ctx context.Context, input ports.TransitionInput) (*domain.Order, error) {
	unlock := s.locks.Lock(input.OrderID)
	defer unlock()

	order, err := s.stores.Orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.Target == domain.StatusCompleted {
		return s.complete(ctx, order, input.CustomerClass)
	}

	prior := order.Status
	if err := order.Transition(input.Target, s.clock.Now()); err != nil {
		return nil, err
	}
	saved, err := s.stores.Orders.UpdateStatus(ctx, order, prior)
	if err != nil {
		return nil, s.resolveConflict(ctx, input.OrderID, err)
	}
	return saved, nil
}

// complete commits the COMPLETED transition and all of its side effects in
// one transaction: coupon consumption, bill creation with a sequenced
// number, and loyalty accrual. Coupon validation failures degrade to a zero
// discount; a consumption failure aborts the whole completion.
func (s *Service) complete(ctx context.Context, order *domain.Order, class coupondomain.CustomerClass) (*domain.Order, error) {
	now := s.clock.Now()
	prior := order.Status
	if err := order.Transition(domain.StatusCompleted, now); err != nil {
		return nil, err
	}
	taxCfg, err := s.taxes.TaxConfigFor(ctx, order.RestaurantID)
	if err != nil {
		return nil, err
	}

	var completed *domain.Order
	err = s.uow.WithinTx(ctx, func(ctx context.Context, st ports.TxStores) error {
		discount := money.Zero()
		if order.CouponCode != "" {
			applied, err := s.redeemCoupon(ctx, st.Coupons, order, class, now)
			if err != nil {
				return err
			}
			if applied != nil {
				discount = applied.Amount
			}
		}

		bill, err := domain.ComputeBill(order, taxCfg, discount, now)
		if err != nil {
			return err
		}
		bill.Number, err = st.Bills.AllocateNumber(ctx, order.RestaurantID)
		if err != nil {
			return err
		}

		saved, err := st.Orders.UpdateStatus(ctx, order, prior)
		if err != nil {
			return err
		}
		if _, err := st.Bills.Save(ctx, bill); err != nil {
			return err
		}
		if err := s.accrueLoyalty(ctx, st.Loyalty, order, bill); err != nil {
			return err
		}
		completed = saved
		return nil
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, order.ID, err)
	}
	return completed, nil
}

// redeemCoupon validates and consumes the order's coupon inside the
// completion transaction. A coupon that fails validation yields no discount
// but does not block completion; a coupon that cannot be consumed at commit
// time aborts it.
func (s *Service) redeemCoupon(ctx context.Context, store couponports.Store, order *domain.Order, class coupondomain.CustomerClass, now time.Time) (*coupondomain.AppliedDiscount, error) {
	coupon, err := store.FindByCode(ctx, order.RestaurantID, order.CouponCode)
	if err != nil {
		if errors.Is(err, couponports.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	applied, err := coupon.Validate(couponContext(order), class, now)
	if err != nil {
		// Validation failures are not consumption failures: the order still
		// completes, just without a discount.
		return nil, nil
	}
	if err := store.Consume(ctx, coupon.ID, order.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouponConsumptionFailed, err)
	}
	return applied, nil
}

func (s *Service) accrueLoyalty(ctx context.Context, store loyaltyports.Store, order *domain.Order, bill *domain.Bill) error {
	program, err := store.ActiveProgram(ctx, order.RestaurantID)
	if err != nil {
		if errors.Is(err, loyaltyports.ErrNotFound) {
			return nil
		}
		return err
	}
	points := program.Accrue(bill.Total)
	if points == 0 {
		return nil
	}
	return store.RecordAccrual(ctx, program.ID, order.ID, points)
}

// resolveConflict translates a compare-and-swap failure into the error the
// caller should see: finalized when another request already closed the
// order, invalid transition otherwise.
func (s *Service) resolveConflict(ctx context.Context, orderID string, err error) error {
	if !errors.Is(err, ports.ErrStatusConflict) {
		return err
	}
	current, loadErr := s.stores.Orders.GetByID(ctx, orderID)
	if loadErr != nil || current.Terminal() {
		return domain.ErrOrderFinalized
	}
	return domain.ErrInvalidTransition
}

// GetOrder loads an order with its status history.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.stores.Orders.GetByID(ctx, id)
}

// GetBill returns the bill created at completion.
func (s *Service) GetBill(ctx context.Context, orderID string) (*domain.Bill, error) {
	return s.stores.Bills.GetByOrderID(ctx, orderID)
}

// PayBill stamps the bill's payment time, once.
func (s *Service) PayBill(ctx context.Context, orderID string) (*domain.Bill, error) {
	return s.stores.Bills.MarkPaid(ctx, orderID, s.clock.Now())
}

// PreviewDiscount validates a coupon against an order without consuming a
// redemption. The same validation runs again at completion.
func (s *Service) PreviewDiscount(ctx context.Context, input ports.PreviewDiscountInput) (*coupondomain.AppliedDiscount, error) {
	order, err := s.stores.Orders.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	code := coupondomain.NormalizeCode(input.Code)
	coupon, err := s.stores.Coupons.FindByCode(ctx, order.RestaurantID, code)
	if err != nil {
		return nil, err
	}
	return coupon.Validate(couponContext(order), input.CustomerClass, s.clock.Now())
}

func couponContext(order *domain.Order) coupondomain.OrderContext {
	lines := make([]coupondomain.LineQuote, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, coupondomain.LineQuote{
			MenuItemID: line.MenuItemID,
			UnitPrice:  line.UnitPrice,
		})
	}
	return coupondomain.OrderContext{Subtotal: order.Subtotal(), Lines: lines}
}

var _ ports.Service = (*Service)(nil)
