package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	couponpostgres "github.com/dinecore/order-engine/internal/domains/coupons/adapters/persistence/postgres"
	loyaltypostgres "github.com/dinecore/order-engine/internal/domains/loyalty/adapters/persistence/postgres"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
)

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs completion commits inside a database transaction. Every
// store handed to fn is rebound to the transaction connection, so coupon
// consumption, the bill row, and loyalty accrual land or roll back together.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork wires a transaction-scoped unit of work. Caller manages DB lifecycle.
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.TxStores) error) error {
	if u == nil || u.db == nil {
		return errors.New("postgres unit of work not configured")
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stores := ports.TxStores{
			Orders:  NewOrderStore(tx),
			Bills:   NewBillStore(tx),
			Coupons: couponpostgres.NewStore(tx),
			Loyalty: loyaltypostgres.NewStore(tx),
		}
		return fn(ctx, stores)
	})
}
