package domain

import (
	"github.com/shopspring/decimal"

	"github.com/dinecore/order-engine/internal/shared/money"
)

// ProgramType enumerates the reward mechanics a restaurant can run.
type ProgramType string

const (
	ProgramTypePoints ProgramType = "points"
	ProgramTypeStamps ProgramType = "stamps"
	ProgramTypeTier   ProgramType = "tier"
)

// Status enumerates program availability.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPaused   Status = "paused"
)

// Program is a restaurant's loyalty configuration. The engine reads the
// rules and advances the issued-points counters through the store; the
// configuration itself is externally managed.
type Program struct {
	ID           string
	RestaurantID string
	Type         ProgramType
	Status       Status
	// PointsPerDollar and PointsPerOrder are additive; a zero value means
	// the rule is absent and contributes nothing.
	PointsPerDollar   decimal.Decimal
	PointsPerOrder    int64
	TotalPointsIssued int64
	TotalMembers      int64
}

// Accrue computes the points earned for a completed order:
// floor(total * pointsPerDollar) + pointsPerOrder. Programs that are not
// active earn zero; completion must never fail on loyalty.
func (p *Program) Accrue(orderTotal money.Money) int64 {
	if p == nil || p.Status != StatusActive {
		return 0
	}
	var points int64
	if p.PointsPerDollar.IsPositive() {
		points += orderTotal.Decimal().Mul(p.PointsPerDollar).Floor().IntPart()
	}
	points += p.PointsPerOrder
	return points
}
