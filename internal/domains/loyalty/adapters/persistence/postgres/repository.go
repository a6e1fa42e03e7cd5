package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dinecore/order-engine/internal/domains/loyalty/domain"
	"github.com/dinecore/order-engine/internal/domains/loyalty/ports"
)

var _ ports.Store = (*Store)(nil)

// Store persists loyalty programs in PostgreSQL using GORM. Accruals insert
// one row per order; a conflict means points were already credited and the
// call is a no-op.
type Store struct {
	db *gorm.DB
}

// NewStore wires a PostgreSQL-backed loyalty store. Caller manages DB lifecycle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

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

// ActiveProgram resolves the restaurant's loyalty configuration.
func (s *Store) ActiveProgram(ctx context.Context, restaurantID string) (*domain.Program, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record programRecord
	if err := s.db.WithContext(ctx).First(&record, "restaurant_id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return record.toDomain(), nil
}

// RecordAccrual credits points for an order exactly once. The accrual row is
// keyed by order ID, so a replay conflicts, inserts nothing, and skips the
// counter update.
func (s *Store) RecordAccrual(ctx context.Context, programID, orderID string, points int64) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	accrual := accrualRecord{OrderID: orderID, ProgramID: programID, Points: points, CreatedAt: time.Now().UTC()}
	insert := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&accrual)
	if insert.Error != nil {
		return insert.Error
	}
	if insert.RowsAffected == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&programRecord{}).
		Where("id = ?", programID).
		Update("total_points_issued", gorm.Expr("total_points_issued + ?", points)).Error
}

// Save upserts program configuration keyed by restaurant.
func (s *Store) Save(ctx context.Context, program *domain.Program) (*domain.Program, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	if program == nil {
		return nil, errors.New("program is nil")
	}
	record := toProgramRecord(program)
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "restaurant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type", "status", "points_per_dollar", "points_per_order", "updated_at",
			}),
		}).
		Create(&record).Error; err != nil {
		return nil, err
	}
	return s.ActiveProgram(ctx, program.RestaurantID)
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres loyalty store not configured")
	}
	return nil
}

func toProgramRecord(program *domain.Program) programRecord {
	return programRecord{
		ID:                program.ID,
		RestaurantID:      program.RestaurantID,
		Type:              string(program.Type),
		Status:            string(program.Status),
		PointsPerDollar:   program.PointsPerDollar,
		PointsPerOrder:    program.PointsPerOrder,
		TotalPointsIssued: program.TotalPointsIssued,
		TotalMembers:      program.TotalMembers,
	}
}

func (r programRecord) toDomain() *domain.Program {
	return &domain.Program{
		ID:                r.ID,
		RestaurantID:      r.RestaurantID,
		Type:              domain.ProgramType(r.Type),
		Status:            domain.Status(r.Status),
		PointsPerDollar:   r.PointsPerDollar,
		PointsPerOrder:    r.PointsPerOrder,
		TotalPointsIssued: r.TotalPointsIssued,
		TotalMembers:      r.TotalMembers,
	}
}
