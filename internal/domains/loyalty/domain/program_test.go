package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dinecore/order-engine/internal/shared/money"
)

func TestAccrue_FloorsDollarPointsAndAddsPerOrder(t *testing.T) {
	// pointsPerDollar=1, pointsPerOrder=10 on a $24.50 total earns 34.
	p := &Program{
		Status:          StatusActive,
		PointsPerDollar: decimal.NewFromInt(1),
		PointsPerOrder:  10,
	}
	require.Equal(t, int64(34), p.Accrue(money.MustFromCents(2450)))
}

func TestAccrue_AbsentRulesContributeZero(t *testing.T) {
	p := &Program{Status: StatusActive, PointsPerOrder: 5}
	require.Equal(t, int64(5), p.Accrue(money.MustFromCents(2450)))

	p = &Program{Status: StatusActive, PointsPerDollar: decimal.RequireFromString("0.5")}
	require.Equal(t, int64(12), p.Accrue(money.MustFromCents(2450)))

	p = &Program{Status: StatusActive}
	require.Equal(t, int64(0), p.Accrue(money.MustFromCents(2450)))
}

func TestAccrue_InactiveProgramEarnsNothing(t *testing.T) {
	p := &Program{
		Status:          StatusPaused,
		PointsPerDollar: decimal.NewFromInt(1),
		PointsPerOrder:  10,
	}
	require.Equal(t, int64(0), p.Accrue(money.MustFromCents(2450)))
	require.Equal(t, int64(0), (*Program)(nil).Accrue(money.MustFromCents(2450)))
}
