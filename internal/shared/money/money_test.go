package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromCents_RejectsNegative(t *testing.T) {
	_, err := FromCents(-1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromDecimal_RoundsHalfUpToCent(t *testing.T) {
	m, err := FromDecimal(decimal.RequireFromString("10.005"))
	require.NoError(t, err)
	require.Equal(t, int64(1001), m.Cents())

	m, err = FromDecimal(decimal.RequireFromString("10.004"))
	require.NoError(t, err)
	require.Equal(t, int64(1000), m.Cents())

	_, err = FromDecimal(decimal.RequireFromString("-0.01"))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSubClamped_FloorsAtZero(t *testing.T) {
	require.Equal(t, int64(0), MustFromCents(500).SubClamped(MustFromCents(700)).Cents())
	require.Equal(t, int64(200), MustFromCents(700).SubClamped(MustFromCents(500)).Cents())
}

func TestMulInt(t *testing.T) {
	m, err := MustFromCents(1000).MulInt(2)
	require.NoError(t, err)
	require.Equal(t, int64(2000), m.Cents())

	_, err = MustFromCents(1000).MulInt(-1)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPercent_RoundsHalfUp(t *testing.T) {
	// 8% of $25.00 is exactly $2.00.
	tax, err := MustFromCents(2500).Percent(decimal.NewFromInt(8))
	require.NoError(t, err)
	require.Equal(t, int64(200), tax.Cents())

	// 10% of $0.25 is 2.5 cents, rounded up to 3.
	d, err := MustFromCents(25).Percent(decimal.NewFromInt(10))
	require.NoError(t, err)
	require.Equal(t, int64(3), d.Cents())

	_, err = MustFromCents(100).Percent(decimal.NewFromInt(-5))
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDecimalAndString(t *testing.T) {
	m := MustFromCents(2450)
	require.Equal(t, "24.50", m.String())
	require.True(t, m.Decimal().Equal(decimal.RequireFromString("24.5")))
}

func TestCmpAndMin(t *testing.T) {
	a, b := MustFromCents(100), MustFromCents(200)
	require.Equal(t, -1, a.Cmp(b))
	require.Equal(t, 1, b.Cmp(a))
	require.Equal(t, 0, a.Cmp(MustFromCents(100)))
	require.Equal(t, a, Min(a, b))
}
