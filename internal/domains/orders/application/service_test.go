package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	couponmemory "github.com/dinecore/order-engine/internal/domains/coupons/adapters/memory"
	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	couponports "github.com/dinecore/order-engine/internal/domains/coupons/ports"
	loyaltymemory "github.com/dinecore/order-engine/internal/domains/loyalty/adapters/memory"
	loyaltydomain "github.com/dinecore/order-engine/internal/domains/loyalty/domain"
	ordersmemory "github.com/dinecore/order-engine/internal/domains/orders/adapters/memory"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/shared/clock"
	"github.com/dinecore/order-engine/internal/shared/money"
)

const testRestaurant = "rest-1"

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	orders  *ordersmemory.OrderStore
	bills   *ordersmemory.BillStore
	coupons *couponmemory.Store
	loyalty *loyaltymemory.Store
	taxes   *staticTaxes
}

type staticTaxes struct {
	config domain.TaxConfig
}

func (s *staticTaxes) TaxConfigFor(context.Context, string) (domain.TaxConfig, error) {
	return s.config, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orders := ordersmemory.NewOrderStore()
	bills := ordersmemory.NewBillStore()
	coupons := couponmemory.NewStore()
	loyalty := loyaltymemory.NewStore()
	stores := ports.TxStores{Orders: orders, Bills: bills, Coupons: coupons, Loyalty: loyalty}
	uow := ordersmemory.NewUnitOfWork(stores, orders, bills, coupons, loyalty)
	taxes := &staticTaxes{config: domain.TaxConfig{Enabled: true, Rate: decimal.NewFromInt(8)}}
	svc := NewService(stores, uow, taxes, WithClock(clock.Fixed{Instant: testNow}))
	return &fixture{svc: svc, orders: orders, bills: bills, coupons: coupons, loyalty: loyalty, taxes: taxes}
}

func (f *fixture) seedCoupon(t *testing.T, coupon *coupondomain.Coupon) {
	t.Helper()
	coupon.RestaurantID = testRestaurant
	if coupon.Status == "" {
		coupon.Status = coupondomain.StatusActive
	}
	if coupon.ValidFrom.IsZero() {
		coupon.ValidFrom = testNow.Add(-24 * time.Hour)
	}
	if coupon.ValidUntil.IsZero() {
		coupon.ValidUntil = testNow.Add(24 * time.Hour)
	}
	_, err := f.coupons.Save(context.Background(), coupon)
	require.NoError(t, err)
}

func (f *fixture) seedProgram(t *testing.T, program *loyaltydomain.Program) {
	t.Helper()
	program.RestaurantID = testRestaurant
	_, err := f.loyalty.Save(context.Background(), program)
	require.NoError(t, err)
}

func (f *fixture) createOrder(t *testing.T, couponCode string, lines ...ports.LineItemInput) *domain.Order {
	t.Helper()
	order, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		RestaurantID: testRestaurant,
		TableID:      "table-4",
		CouponCode:   couponCode,
		Lines:        lines,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) advanceToReady(t *testing.T, orderID string) {
	t.Helper()
	for _, target := range []domain.Status{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady} {
		_, err := f.svc.Transition(context.Background(), ports.TransitionInput{OrderID: orderID, Target: target})
		require.NoError(t, err)
	}
}

func (f *fixture) complete(orderID string) (*domain.Order, error) {
	return f.svc.Transition(context.Background(), ports.TransitionInput{
		OrderID:       orderID,
		Target:        domain.StatusCompleted,
		CustomerClass: coupondomain.CustomerClassExisting,
	})
}

func line(itemID string, qty int64, price string) ports.LineItemInput {
	return ports.LineItemInput{MenuItemID: itemID, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestCreateOrder_SnapshotsPricesAndStartsPending(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 2, "10.00"), line("fries", 1, "5.00"))

	require.Equal(t, domain.StatusPending, order.Status)
	require.Equal(t, money.MustFromCents(2500), order.Subtotal())
	require.Len(t, order.History, 1)
	require.Equal(t, domain.StatusPending, order.History[0].Status)
}

func TestCreateOrder_RejectsEmptyAndInvalidLines(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{RestaurantID: testRestaurant})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		RestaurantID: testRestaurant,
		Lines:        []ports.LineItemInput{line("burger", 0, "10.00")},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		RestaurantID: testRestaurant,
		Lines:        []ports.LineItemInput{line("burger", 1, "-1.00")},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompletion_BillsWithCouponAndLoyalty(t *testing.T) {
	f := newFixture(t)
	maxDiscount := money.MustFromCents(250)
	limit := int64(100)
	f.seedCoupon(t, &coupondomain.Coupon{
		ID:          "coupon-save10",
		Code:        "SAVE10",
		Type:        coupondomain.TypePercentage,
		Value:       decimal.NewFromInt(10),
		MaxDiscount: &maxDiscount,
		UsageLimit:  &limit,
	})
	f.seedProgram(t, &loyaltydomain.Program{
		ID:              "prog-1",
		Type:            loyaltydomain.ProgramTypePoints,
		Status:          loyaltydomain.StatusActive,
		PointsPerDollar: decimal.NewFromInt(1),
		PointsPerOrder:  10,
	})

	order := f.createOrder(t, "save10", line("burger", 2, "10.00"), line("fries", 1, "5.00"))
	f.advanceToReady(t, order.ID)

	completed, err := f.complete(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, completed.Status)
	require.Len(t, completed.History, 5)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, money.MustFromCents(2500), bill.Subtotal)
	require.Equal(t, money.MustFromCents(200), bill.Tax)
	require.Equal(t, money.MustFromCents(250), bill.Discount)
	require.Equal(t, money.MustFromCents(2450), bill.Total)
	require.Equal(t, int64(1), bill.Number)

	// floor(24.50 * 1) + 10
	program, err := f.loyalty.ActiveProgram(context.Background(), testRestaurant)
	require.NoError(t, err)
	require.Equal(t, int64(34), program.TotalPointsIssued)

	coupon, err := f.coupons.FindByCode(context.Background(), testRestaurant, "SAVE10")
	require.NoError(t, err)
	require.Equal(t, int64(1), coupon.UsedCount)
}

func TestCompletion_InvalidCouponDegradesToZeroDiscount(t *testing.T) {
	f := newFixture(t)
	minOrder := money.MustFromCents(5000)
	f.seedCoupon(t, &coupondomain.Coupon{
		ID:             "coupon-big",
		Code:           "BIGSPENDER",
		Type:           coupondomain.TypeFixed,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: &minOrder,
	})

	order := f.createOrder(t, "BIGSPENDER", line("burger", 2, "10.00"), line("fries", 1, "5.00"))
	f.advanceToReady(t, order.ID)

	completed, err := f.complete(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, completed.Status)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, bill.Discount.IsZero())
	require.Equal(t, money.MustFromCents(2700), bill.Total)

	// The failed coupon consumed nothing.
	coupon, err := f.coupons.FindByCode(context.Background(), testRestaurant, "BIGSPENDER")
	require.NoError(t, err)
	require.Zero(t, coupon.UsedCount)
}

func TestCompletion_UnknownCouponCodeIsIgnored(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "NOSUCHCODE", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)

	_, err := f.complete(order.ID)
	require.NoError(t, err)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, bill.Discount.IsZero())
}

func TestCompletion_DuplicateRequestDoesNotDoubleBill(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)

	_, err := f.complete(order.ID)
	require.NoError(t, err)

	_, err = f.complete(order.ID)
	require.ErrorIs(t, err, domain.ErrOrderFinalized)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), bill.Number)
}

func TestCancellation_SkipsBilling(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))

	cancelled, err := f.svc.Transition(context.Background(), ports.TransitionInput{
		OrderID: order.ID,
		Target:  domain.StatusCancelled,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = f.svc.GetBill(context.Background(), order.ID)
	require.ErrorIs(t, err, ports.ErrBillNotFound)

	_, err = f.complete(order.ID)
	require.ErrorIs(t, err, domain.ErrOrderFinalized)
}

func TestCancellation_RejectedFromReady(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)

	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{
		OrderID: order.ID,
		Target:  domain.StatusCancelled,
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompletion_SequentialBillNumbersPerRestaurant(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 3; i++ {
		order := f.createOrder(t, "", line("burger", 1, "10.00"))
		f.advanceToReady(t, order.ID)
		_, err := f.complete(order.ID)
		require.NoError(t, err)

		bill, err := f.svc.GetBill(context.Background(), order.ID)
		require.NoError(t, err)
		require.Equal(t, int64(i), bill.Number)
	}
}

func TestCompletion_ConcurrentOrdersShareLimitedCoupon(t *testing.T) {
	const totalOrders = 8
	limit := int64(3)

	f := newFixture(t)
	f.seedCoupon(t, &coupondomain.Coupon{
		ID:         "coupon-limited",
		Code:       "LIMITED",
		Type:       coupondomain.TypeFixed,
		Value:      decimal.NewFromInt(2),
		UsageLimit: &limit,
	})

	ids := make([]string, 0, totalOrders)
	for i := 0; i < totalOrders; i++ {
		order := f.createOrder(t, "LIMITED", line("burger", 1, "10.00"))
		f.advanceToReady(t, order.ID)
		ids = append(ids, order.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, totalOrders)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.complete(id)
		}(i, id)
	}
	wg.Wait()

	var discounted, undiscounted int
	for i, id := range ids {
		require.NoError(t, errs[i])
		bill, err := f.svc.GetBill(context.Background(), id)
		require.NoError(t, err)
		if bill.Discount.IsZero() {
			undiscounted++
		} else {
			require.Equal(t, money.MustFromCents(200), bill.Discount)
			discounted++
		}
	}
	require.Equal(t, int(limit), discounted)
	require.Equal(t, totalOrders-int(limit), undiscounted)

	coupon, err := f.coupons.FindByCode(context.Background(), testRestaurant, "LIMITED")
	require.NoError(t, err)
	require.Equal(t, limit, coupon.UsedCount)
}

func TestCompletion_ConcurrentDuplicatesProduceOneBill(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.complete(order.ID)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, domain.ErrOrderFinalized)
		}
	}
	require.Equal(t, 1, succeeded)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), bill.Number)
}

// failingConsumeStore validates normally but refuses consumption, simulating
// a coupon exhausted between validation and commit.
type failingConsumeStore struct {
	couponports.Store
}

func (f *failingConsumeStore) Consume(context.Context, string, string) error {
	return coupondomain.ErrCouponExhausted
}

func TestCompletion_ConsumptionFailureRollsBackEverything(t *testing.T) {
	orders := ordersmemory.NewOrderStore()
	bills := ordersmemory.NewBillStore()
	coupons := couponmemory.NewStore()
	loyalty := loyaltymemory.NewStore()
	stores := ports.TxStores{
		Orders:  orders,
		Bills:   bills,
		Coupons: &failingConsumeStore{Store: coupons},
		Loyalty: loyalty,
	}
	uow := ordersmemory.NewUnitOfWork(stores, orders, bills, coupons, loyalty)
	taxes := &staticTaxes{config: domain.TaxConfig{Enabled: true, Rate: decimal.NewFromInt(8)}}
	svc := NewService(stores, uow, taxes, WithClock(clock.Fixed{Instant: testNow}))

	_, err := coupons.Save(context.Background(), &coupondomain.Coupon{
		ID:           "coupon-doomed",
		RestaurantID: testRestaurant,
		Code:         "DOOMED",
		Type:         coupondomain.TypeFixed,
		Value:        decimal.NewFromInt(2),
		Status:       coupondomain.StatusActive,
		ValidFrom:    testNow.Add(-time.Hour),
		ValidUntil:   testNow.Add(time.Hour),
	})
	require.NoError(t, err)

	order, err := svc.CreateOrder(context.Background(), ports.CreateOrderInput{
		RestaurantID: testRestaurant,
		CouponCode:   "DOOMED",
		Lines:        []ports.LineItemInput{line("burger", 1, "10.00")},
	})
	require.NoError(t, err)
	for _, target := range []domain.Status{domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReady} {
		_, err := svc.Transition(context.Background(), ports.TransitionInput{OrderID: order.ID, Target: target})
		require.NoError(t, err)
	}

	_, err = svc.Transition(context.Background(), ports.TransitionInput{
		OrderID: order.ID,
		Target:  domain.StatusCompleted,
	})
	require.ErrorIs(t, err, ErrCouponConsumptionFailed)
	require.ErrorIs(t, err, coupondomain.ErrCouponExhausted)

	// Nothing committed: the order is still READY and no bill exists.
	current, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusReady, current.Status)
	_, err = svc.GetBill(context.Background(), order.ID)
	require.ErrorIs(t, err, ports.ErrBillNotFound)
}

func TestCompletion_RequiresReady(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))

	_, err := f.complete(order.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompletion_TaxDisabled(t *testing.T) {
	f := newFixture(t)
	f.taxes.config = domain.TaxConfig{Enabled: false}

	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)
	_, err := f.complete(order.ID)
	require.NoError(t, err)

	bill, err := f.svc.GetBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.True(t, bill.Tax.IsZero())
	require.Equal(t, money.MustFromCents(1000), bill.Total)
}

func TestCompletion_InactiveLoyaltyProgramEarnsNothing(t *testing.T) {
	f := newFixture(t)
	f.seedProgram(t, &loyaltydomain.Program{
		ID:              "prog-paused",
		Type:            loyaltydomain.ProgramTypePoints,
		Status:          loyaltydomain.StatusPaused,
		PointsPerDollar: decimal.NewFromInt(1),
	})

	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)
	_, err := f.complete(order.ID)
	require.NoError(t, err)

	program, err := f.loyalty.ActiveProgram(context.Background(), testRestaurant)
	require.NoError(t, err)
	require.Zero(t, program.TotalPointsIssued)
}

func TestPayBill_StampsOnce(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	f.advanceToReady(t, order.ID)
	_, err := f.complete(order.ID)
	require.NoError(t, err)

	paid, err := f.svc.PayBill(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	_, err = f.svc.PayBill(context.Background(), order.ID)
	require.ErrorIs(t, err, domain.ErrBillAlreadyPaid)
}

func TestPreviewDiscount_DoesNotConsume(t *testing.T) {
	f := newFixture(t)
	limit := int64(5)
	f.seedCoupon(t, &coupondomain.Coupon{
		ID:         "coupon-preview",
		Code:       "PREVIEW5",
		Type:       coupondomain.TypeFixed,
		Value:      decimal.RequireFromString("5.00"),
		UsageLimit: &limit,
	})

	order := f.createOrder(t, "", line("burger", 2, "10.00"))
	applied, err := f.svc.PreviewDiscount(context.Background(), ports.PreviewDiscountInput{
		OrderID:       order.ID,
		Code:          "preview5",
		CustomerClass: coupondomain.CustomerClassExisting,
	})
	require.NoError(t, err)
	require.Equal(t, money.MustFromCents(500), applied.Amount)

	coupon, err := f.coupons.FindByCode(context.Background(), testRestaurant, "PREVIEW5")
	require.NoError(t, err)
	require.Zero(t, coupon.UsedCount)
}

func TestPreviewDiscount_SurfacesValidationError(t *testing.T) {
	f := newFixture(t)
	f.seedCoupon(t, &coupondomain.Coupon{
		ID:           "coupon-new-only",
		Code:         "WELCOME",
		Type:         coupondomain.TypePercentage,
		Value:        decimal.NewFromInt(20),
		ApplicableTo: coupondomain.ApplicableToNewCustomers,
	})

	order := f.createOrder(t, "", line("burger", 1, "10.00"))
	_, err := f.svc.PreviewDiscount(context.Background(), ports.PreviewDiscountInput{
		OrderID:       order.ID,
		Code:          "WELCOME",
		CustomerClass: coupondomain.CustomerClassExisting,
	})
	require.ErrorIs(t, err, coupondomain.ErrCouponNotApplicable)
}

func TestTransition_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transition(context.Background(), ports.TransitionInput{
		OrderID: fmt.Sprintf("missing-%d", time.Now().UnixNano()),
		Target:  domain.StatusConfirmed,
	})
	require.ErrorIs(t, err, ports.ErrNotFound)
}
