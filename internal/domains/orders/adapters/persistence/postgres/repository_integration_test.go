//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	couponpostgres "github.com/dinecore/order-engine/internal/domains/coupons/adapters/persistence/postgres"
	coupondomain "github.com/dinecore/order-engine/internal/domains/coupons/domain"
	orderspostgres "github.com/dinecore/order-engine/internal/domains/orders/adapters/persistence/postgres"
	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/platform/migrations"
	"github.com/dinecore/order-engine/internal/shared/money"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("orderengine_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func seedOrder(t *testing.T, store *orderspostgres.OrderStore, id string) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(id, "rest-1", "table-1", []domain.LineItem{
		{MenuItemID: "burger", Quantity: 2, UnitPrice: money.MustFromCents(1000)},
		{MenuItemID: "fries", Quantity: 1, UnitPrice: money.MustFromCents(500)},
	}, "", time.Now().UTC())
	require.NoError(t, err)
	saved, err := store.Create(context.Background(), order)
	require.NoError(t, err)
	return saved
}

func TestOrderStore_CreateAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewOrderStore(db)
	saved := seedOrder(t, store, "order-1")

	retrieved, err := store.GetByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, retrieved.Status)
	assert.Len(t, retrieved.Lines, 2)
	assert.Equal(t, money.MustFromCents(2500), retrieved.Subtotal())
	assert.Len(t, retrieved.History, 1)

	_, err = store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestOrderStore_UpdateStatusCompareAndSwap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewOrderStore(db)
	order := seedOrder(t, store, "order-cas")

	require.NoError(t, order.Transition(domain.StatusConfirmed, time.Now().UTC()))
	updated, err := store.UpdateStatus(context.Background(), order, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)
	assert.Len(t, updated.History, 2)

	// Replaying against the stale expected status loses.
	_, err = store.UpdateStatus(context.Background(), order, domain.StatusPending)
	assert.ErrorIs(t, err, ports.ErrStatusConflict)
}

func TestBillStore_AllocateNumberSequences(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewBillStore(db)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := store.AllocateNumber(ctx, "rest-1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	// Another restaurant gets its own sequence.
	n, err := store.AllocateNumber(ctx, "rest-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBillStore_AllocateNumberConcurrent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewBillStore(db)
	ctx := context.Background()

	const allocations = 10
	var wg sync.WaitGroup
	numbers := make([]int64, allocations)
	for i := 0; i < allocations; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := store.AllocateNumber(ctx, "rest-1")
			assert.NoError(t, err)
			numbers[i] = n
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, n := range numbers {
		assert.False(t, seen[n], "bill number %d allocated twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, allocations)
}

func TestBillStore_SaveAndMarkPaid(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewBillStore(db)
	ctx := context.Background()

	bill := &domain.Bill{
		ID:           "bill-1",
		OrderID:      "order-1",
		RestaurantID: "rest-1",
		Number:       1,
		Subtotal:     money.MustFromCents(2500),
		Tax:          money.MustFromCents(200),
		Discount:     money.MustFromCents(250),
		Total:        money.MustFromCents(2450),
		CreatedAt:    time.Now().UTC(),
	}
	saved, err := store.Save(ctx, bill)
	require.NoError(t, err)
	assert.Equal(t, money.MustFromCents(2450), saved.Total)

	// A second bill for the same order violates the unique index.
	dup := *bill
	dup.ID = "bill-2"
	dup.Number = 2
	_, err = store.Save(ctx, &dup)
	assert.Error(t, err)

	paid, err := store.MarkPaid(ctx, "order-1", time.Now().UTC())
	require.NoError(t, err)
	assert.NotNil(t, paid.PaidAt)

	_, err = store.MarkPaid(ctx, "order-1", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrBillAlreadyPaid)
}

func TestCouponStore_ConsumeGuardsLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := couponpostgres.NewStore(db)
	ctx := context.Background()

	limit := int64(2)
	_, err := store.Save(ctx, &coupondomain.Coupon{
		ID:           "coupon-1",
		RestaurantID: "rest-1",
		Code:         "limited",
		Type:         coupondomain.TypeFixed,
		Value:        decimal.NewFromInt(2),
		Status:       coupondomain.StatusActive,
		ValidFrom:    time.Now().Add(-time.Hour),
		ValidUntil:   time.Now().Add(time.Hour),
		UsageLimit:   &limit,
	})
	require.NoError(t, err)

	// Lookup is case-insensitive.
	coupon, err := store.FindByCode(ctx, "rest-1", "LIMITED")
	require.NoError(t, err)

	require.NoError(t, store.Consume(ctx, coupon.ID, "order-a"))
	// Replay for the same order is a no-op.
	require.NoError(t, store.Consume(ctx, coupon.ID, "order-a"))
	require.NoError(t, store.Consume(ctx, coupon.ID, "order-b"))

	err = store.Consume(ctx, coupon.ID, "order-c")
	assert.ErrorIs(t, err, coupondomain.ErrCouponExhausted)

	current, err := store.FindByCode(ctx, "rest-1", "limited")
	require.NoError(t, err)
	assert.Equal(t, limit, current.UsedCount)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	orderStore := orderspostgres.NewOrderStore(db)
	order := seedOrder(t, orderStore, "order-rollback")
	require.NoError(t, order.Transition(domain.StatusConfirmed, time.Now().UTC()))

	uow := orderspostgres.NewUnitOfWork(db)
	sentinel := assert.AnError
	err := uow.WithinTx(context.Background(), func(ctx context.Context, stores ports.TxStores) error {
		if _, err := stores.Orders.UpdateStatus(ctx, order, domain.StatusPending); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	current, err := orderStore.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, current.Status)
}
