package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the bounded contexts. Intended to replace adapter-level automigrate.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&orderRecord{},
		&orderLineRecord{},
		&statusChangeRecord{},
		&billRecord{},
		&billCounterRecord{},
		&couponRecord{},
		&redemptionRecord{},
		&programRecord{},
		&accrualRecord{},
	)
}

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID           string    `gorm:"primaryKey;column:id;size:64"`
	RestaurantID string    `gorm:"column:restaurant_id;size:64;index"`
	TableID      string    `gorm:"column:table_id;size:64"`
	Status       string    `gorm:"column:status;type:varchar(32);index"`
	CouponCode   string    `gorm:"column:coupon_code;size:64"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }

type orderLineRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID        string `gorm:"column:order_id;size:64;index"`
	Position       int    `gorm:"column:position"`
	MenuItemID     string `gorm:"column:menu_item_id;size:64"`
	Quantity       int64  `gorm:"column:quantity"`
	UnitPriceCents int64  `gorm:"column:unit_price_cents"`
}

func (orderLineRecord) TableName() string { return "order_lines" }

type statusChangeRecord struct {
	ID      int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OrderID string    `gorm:"column:order_id;size:64;index"`
	Status  string    `gorm:"column:status;type:varchar(32)"`
	At      time.Time `gorm:"column:changed_at"`
}

func (statusChangeRecord) TableName() string { return "order_status_changes" }

// Bill schema mirrors the bills Postgres adapter.
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

// Coupon schema mirrors the coupons Postgres adapter.
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

// Loyalty schema mirrors the loyalty Postgres adapter.
type programRecord struct {
	ID                string          `gorm:"primaryKey;column:id;size:64"`
	RestaurantID      string          `gorm:"column:restaurant_id;size:64;uniqueIndex"`
	Type              string          `gorm:"column:type;type:varchar(32)"`
	Status            string          `gorm:"column:status;type:varchar(32)"`
	PointsPerDollar   decimal.Decimal `gorm:"column:points_per_dollar;type:numeric(12,4)"`
	PointsPerOrder    int64           `gorm:"column:points_per_order"`
	TotalPointsIssued int64           `gorm:"column:total_points_issued"`
	TotalMembers      int64           `gorm:"column:total_members"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

func (programRecord) TableName() string { return "loyalty_programs" }

type accrualRecord struct {
	OrderID   string    `gorm:"primaryKey;column:order_id;size:64"`
	ProgramID string    `gorm:"column:program_id;size:64;index"`
	Points    int64     `gorm:"column:points"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (accrualRecord) TableName() string { return "loyalty_accruals" }
