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

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore persists orders in PostgreSQL using GORM. Status updates are
// compare-and-swap against the expected prior status so concurrent
// transitions cannot both win.
type OrderStore struct {
	db *gorm.DB
}

// NewOrderStore wires a PostgreSQL-backed order store. Caller manages DB lifecycle.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db}
}

type orderRecord struct {
	ID           string    `gorm:"primaryKey;column:id;size:64"`
	RestaurantID string    `gorm:"column:restaurant_id;size:64;index"`
	TableID      string    `gorm:"column:table_id;size:64"`
	Status       string    `gorm:"column:status;type:varchar(32);index"`
	CouponCode   string    `gorm:"column:coupon_code;size:64"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`

	Lines         []orderLineRecord    `gorm:"foreignKey:OrderID;references:ID"`
	StatusChanges []statusChangeRecord `gorm:"foreignKey:OrderID;references:ID"`
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

// Create inserts a new order with its lines and initial status history.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	record := toOrderRecord(order)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, order.ID)
}

// GetByID fetches an order with its lines and status history.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record orderRecord
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("StatusChanges", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain()
}

// UpdateStatus persists the order's current status only if the stored row
// still carries the expected prior status.
func (s *OrderStore) UpdateStatus(ctx context.Context, order *domain.Order, expected domain.Status) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.New("order is nil")
	}
	result := s.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ? AND status = ?", order.ID, string(expected)).
		Updates(map[string]any{"status": string(order.Status), "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&orderRecord{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ports.ErrNotFound
		}
		return nil, ports.ErrStatusConflict
	}
	if len(order.History) > 0 {
		last := order.History[len(order.History)-1]
		change := statusChangeRecord{
			OrderID: order.ID,
			Status:  string(last.Status),
			At:      last.At,
		}
		if err := s.db.WithContext(ctx).Create(&change).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, order.ID)
}

func (s *OrderStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres order store not configured")
	}
	return nil
}

func toOrderRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		ID:           order.ID,
		RestaurantID: order.RestaurantID,
		TableID:      order.TableID,
		Status:       string(order.Status),
		CouponCode:   order.CouponCode,
		CreatedAt:    order.CreatedAt,
	}
	for i, line := range order.Lines {
		record.Lines = append(record.Lines, orderLineRecord{
			OrderID:        order.ID,
			Position:       i,
			MenuItemID:     line.MenuItemID,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPrice.Cents(),
		})
	}
	for _, change := range order.History {
		record.StatusChanges = append(record.StatusChanges, statusChangeRecord{
			OrderID: order.ID,
			Status:  string(change.Status),
			At:      change.At,
		})
	}
	return record
}

func (r orderRecord) toDomain() (*domain.Order, error) {
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}
	order := &domain.Order{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		TableID:      r.TableID,
		Status:       status,
		CouponCode:   r.CouponCode,
		CreatedAt:    r.CreatedAt,
	}
	for _, line := range r.Lines {
		price, err := money.FromCents(line.UnitPriceCents)
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, domain.LineItem{
			MenuItemID: line.MenuItemID,
			Quantity:   line.Quantity,
			UnitPrice:  price,
		})
	}
	for _, change := range r.StatusChanges {
		entry, err := domain.ParseStatus(change.Status)
		if err != nil {
			return nil, err
		}
		order.History = append(order.History, domain.StatusChange{Status: entry, At: change.At})
	}
	return order, nil
}
