package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dinecore/order-engine/internal/domains/orders/domain"
	"github.com/dinecore/order-engine/internal/domains/orders/ports"
	"github.com/dinecore/order-engine/internal/shared/money"
)

var _ ports.BillStore = (*BillStore)(nil)

// BillStore persists bills in PostgreSQL using GORM. Bill numbers come from
// a per-restaurant counter row so the sequence is gap-free under the
// completion transaction.
type BillStore struct {
	db *gorm.DB
}

// NewBillStore wires a PostgreSQL-backed bill store. Caller manages DB lifecycle.
func NewBillStore(db *gorm.DB) *BillStore {
	return &BillStore{db: db}
}

type billRecord struct {
	ID            string     `gorm:"primaryKey;column:id;size:64"`
	OrderID       string     `gorm:"column:order_id;size:64;uniqueIndex"`
	RestaurantID  string     `gorm:"column:restaurant_id;size:64;index:idx_bills_restaurant_number,unique"`
	Number        int64      `gorm:"column:number;index:idx_bills_restaurant_number,unique"`
	SubtotalCents int64      `gorm:"column:subtotal_cents"`
	TaxCents      int64      `gorm:"column:tax_cents"`
	DiscountCents int64      `gorm:"column:discount_cents"`
	TotalCents    int64      `gorm:"column:total_cents"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
}

func (billRecord) TableName() string { return "bills" }

type billCounterRecord struct {
	RestaurantID string `gorm:"primaryKey;column:restaurant_id;size:64"`
	NextNumber   int64  `gorm:"column:next_number"`
}

func (billCounterRecord) TableName() string { return "bill_counters" }

// AllocateNumber increments the restaurant's counter row and returns the new
// value. The upsert-and-return runs as one statement, so concurrent
// transactions serialize on the row and never see the same number.
func (s *BillStore) AllocateNumber(ctx context.Context, restaurantID string) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	var number int64
	err := s.db.WithContext(ctx).Raw(`
		INSERT INTO bill_counters (restaurant_id, next_number)
		VALUES (?, 1)
		ON CONFLICT (restaurant_id)
		DO UPDATE SET next_number = bill_counters.next_number + 1
		RETURNING next_number`, restaurantID).Scan(&number).Error
	if err != nil {
		return 0, err
	}
	return number, nil
}

// Save inserts the bill. A second bill for the same order violates the unique
// index and fails, preserving the one-bill-per-order invariant at the schema
// level too.
func (s *BillStore) Save(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, errors.New("bill is nil")
	}
	record := toBillRecord(bill)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return s.GetByOrderID(ctx, bill.OrderID)
}

// GetByOrderID fetches the bill issued for an order.
func (s *BillStore) GetByOrderID(ctx context.Context, orderID string) (*domain.Bill, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record billRecord
	if err := s.db.WithContext(ctx).First(&record, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrBillNotFound
		}
		return nil, err
	}
	return record.toDomain()
}

// MarkPaid stamps paid_at only when it is still null.
func (s *BillStore) MarkPaid(ctx context.Context, orderID string, at time.Time) (*domain.Bill, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	result := s.db.WithContext(ctx).
		Model(&billRecord{}).
		Where("order_id = ? AND paid_at IS NULL", orderID).
		Update("paid_at", at)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&billRecord{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrBillNotFound
		}
		return nil, domain.ErrBillAlreadyPaid
	}
	return s.GetByOrderID(ctx, orderID)
}

func (s *BillStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres bill store not configured")
	}
	return nil
}

func toBillRecord(bill *domain.Bill) billRecord {
	return billRecord{
		ID:            bill.ID,
		OrderID:       bill.OrderID,
		RestaurantID:  bill.RestaurantID,
		Number:        bill.Number,
		SubtotalCents: bill.Subtotal.Cents(),
		TaxCents:      bill.Tax.Cents(),
		DiscountCents: bill.Discount.Cents(),
		TotalCents:    bill.Total.Cents(),
		PaidAt:        bill.PaidAt,
		CreatedAt:     bill.CreatedAt,
	}
}

func (r billRecord) toDomain() (*domain.Bill, error) {
	subtotal, err := money.FromCents(r.SubtotalCents)
	if err != nil {
		return nil, err
	}
	tax, err := money.FromCents(r.TaxCents)
	if err != nil {
		return nil, err
	}
	discount, err := money.FromCents(r.DiscountCents)
	if err != nil {
		return nil, err
	}
	total, err := money.FromCents(r.TotalCents)
	if err != nil {
		return nil, err
	}
	bill := &domain.Bill{
		ID:           r.ID,
		OrderID:      r.OrderID,
		RestaurantID: r.RestaurantID,
		Number:       r.Number,
		Subtotal:     subtotal,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
		CreatedAt:    r.CreatedAt,
	}
	if r.PaidAt != nil {
		at := *r.PaidAt
		bill.PaidAt = &at
	}
	return bill, nil
}
