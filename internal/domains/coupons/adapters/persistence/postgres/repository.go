package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dinecore/order-engine/internal/domains/coupons/domain"
	"github.com/dinecore/order-engine/internal/domains/coupons/ports"
	"github.com/dinecore/order-engine/internal/shared/money"
)

var _ ports.Store = (*Store)(nil)

// Store persists coupons in PostgreSQL using GORM. Redemptions are recorded
// as rows keyed by (coupon, order), which gives Consume its per-order
// idempotence, and the usage counter is advanced with a guarded update so
// concurrent redemptions cannot overrun the limit.
type Store struct {
	db *gorm.DB
}

// NewStore wires a PostgreSQL-backed coupon store. Caller manages DB lifecycle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

type couponRecord struct {
	ID                string          `gorm:"primaryKey;column:id;size:64"`
	RestaurantID      string          `gorm:"column:restaurant_id;size:64;index:idx_coupons_restaurant_code,unique"`
	Code              string          `gorm:"column:code;size:64;index:idx_coupons_restaurant_code,unique"`
	Type              string          `gorm:"column:type;type:varchar(32)"`
	Value             decimal.Decimal `gorm:"column:value;type:numeric(12,4)"`
	MinOrderCents     *int64          `gorm:"column:min_order_cents"`
	MaxDiscountCents  *int64          `gorm:"column:max_discount_cents"`
	ValidFrom         time.Time       `gorm:"column:valid_from"`
	ValidUntil        time.Time       `gorm:"column:valid_until"`
	UsageLimit        *int64          `gorm:"column:usage_limit"`
	UsedCount         int64           `gorm:"column:used_count"`
	Status            string          `gorm:"column:status;type:varchar(32)"`
	ApplicableTo      string          `gorm:"column:applicable_to;type:varchar(32)"`
	QualifyingItemIDs pq.StringArray  `gorm:"column:qualifying_item_ids;type:text[]"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (couponRecord) TableName() string { return "coupons" }

type redemptionRecord struct {
	CouponID  string    `gorm:"primaryKey;column:coupon_id;size:64"`
	OrderID   string    `gorm:"primaryKey;column:order_id;size:64"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (redemptionRecord) TableName() string { return "coupon_redemptions" }

// FindByCode resolves a coupon by normalized code within a restaurant.
func (s *Store) FindByCode(ctx context.Context, restaurantID, code string) (*domain.Coupon, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record couponRecord
	err := s.db.WithContext(ctx).
		First(&record, "restaurant_id = ? AND code = ?", restaurantID, domain.NormalizeCode(code)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain()
}

// Consume records the redemption row first; a conflict on (coupon, order)
// means this order already redeemed and the call is a no-op. Only a fresh
// row advances used_count, and the guarded update loses when the limit is
// already reached.
func (s *Store) Consume(ctx context.Context, couponID, orderID string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	redemption := redemptionRecord{CouponID: couponID, OrderID: orderID, CreatedAt: time.Now().UTC()}
	insert := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&redemption)
	if insert.Error != nil {
		return insert.Error
	}
	if insert.RowsAffected == 0 {
		// Replay of a committed redemption.
		return nil
	}
	update := s.db.WithContext(ctx).
		Model(&couponRecord{}).
		Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&couponRecord{}).Where("id = ?", couponID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ports.ErrNotFound
		}
		return domain.ErrCouponExhausted
	}
	return nil
}

// Save upserts coupon configuration keyed by (restaurant, code).
func (s *Store) Save(ctx context.Context, coupon *domain.Coupon) (*domain.Coupon, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, errors.New("coupon is nil")
	}
	record := toCouponRecord(coupon)
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "restaurant_id"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type", "value", "min_order_cents", "max_discount_cents",
				"valid_from", "valid_until", "usage_limit", "status",
				"applicable_to", "qualifying_item_ids", "updated_at",
			}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return s.FindByCode(ctx, coupon.RestaurantID, record.Code)
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres coupon store not configured")
	}
	return nil
}

func toCouponRecord(coupon *domain.Coupon) couponRecord {
	record := couponRecord{
		ID:                coupon.ID,
		RestaurantID:      coupon.RestaurantID,
		Code:              domain.NormalizeCode(coupon.Code),
		Type:              string(coupon.Type),
		Value:             coupon.Value,
		ValidFrom:         coupon.ValidFrom,
		ValidUntil:        coupon.ValidUntil,
		UsageLimit:        coupon.UsageLimit,
		UsedCount:         coupon.UsedCount,
		Status:            string(coupon.Status),
		ApplicableTo:      string(coupon.ApplicableTo),
		QualifyingItemIDs: pq.StringArray(coupon.QualifyingItemIDs),
	}
	if coupon.MinOrderAmount != nil {
		cents := coupon.MinOrderAmount.Cents()
		record.MinOrderCents = &cents
	}
	if coupon.MaxDiscount != nil {
		cents := coupon.MaxDiscount.Cents()
		record.MaxDiscountCents = &cents
	}
	return record
}

func (r couponRecord) toDomain() (*domain.Coupon, error) {
	coupon := &domain.Coupon{
		ID:                r.ID,
		RestaurantID:      r.RestaurantID,
		Code:              r.Code,
		Type:              domain.Type(r.Type),
		Value:             r.Value,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
		UsageLimit:        r.UsageLimit,
		UsedCount:         r.UsedCount,
		Status:            domain.Status(r.Status),
		ApplicableTo:      domain.Applicability(r.ApplicableTo),
		QualifyingItemIDs: []string(r.QualifyingItemIDs),
	}
	if r.MinOrderCents != nil {
		min, err := money.FromCents(*r.MinOrderCents)
		if err != nil {
			return nil, err
		}
		coupon.MinOrderAmount = &min
	}
	if r.MaxDiscountCents != nil {
		max, err := money.FromCents(*r.MaxDiscountCents)
		if err != nil {
			return nil, err
		}
		coupon.MaxDiscount = &max
	}
	return coupon, nil
}
