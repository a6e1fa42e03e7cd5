package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dinecore/order-engine/internal/shared/money"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func twoLineOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("o-1", "r-1", "t-1", []LineItem{
		{MenuItemID: "burger", Quantity: 2, UnitPrice: money.MustFromCents(1000)},
		{MenuItemID: "fries", Quantity: 1, UnitPrice: money.MustFromCents(500)},
	}, "", testNow)
	require.NoError(t, err)
	return order
}

func TestNewOrder_Validation(t *testing.T) {
	_, err := NewOrder("o-1", "r-1", "t-1", nil, "", testNow)
	require.ErrorIs(t, err, ErrNoLineItems)

	_, err = NewOrder("o-1", "r-1", "t-1", []LineItem{
		{MenuItemID: "burger", Quantity: 0, UnitPrice: money.MustFromCents(1000)},
	}, "", testNow)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	order := twoLineOrder(t)
	require.Equal(t, StatusPending, order.Status)
	require.Len(t, order.History, 1)
	require.Equal(t, StatusPending, order.History[0].Status)
}

func TestSubtotal_SumsLines(t *testing.T) {
	require.Equal(t, int64(2500), twoLineOrder(t).Subtotal().Cents())
}

func TestTransition_HappyPathAppendsHistory(t *testing.T) {
	order := twoLineOrder(t)
	path := []Status{StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted}
	for _, target := range path {
		require.NoError(t, order.Transition(target, testNow))
	}
	require.Equal(t, StatusCompleted, order.Status)
	require.Len(t, order.History, 5)
	require.True(t, order.Terminal())
}

func TestTransition_EdgeTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusPreparing, StatusCancelled},
		StatusPreparing: {StatusReady, StatusCancelled},
		StatusReady:     {StatusCompleted},
	}
	all := []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}

	for from, targets := range allowed {
		allowedSet := map[Status]bool{}
		for _, target := range targets {
			allowedSet[target] = true
		}
		for _, target := range all {
			order := twoLineOrder(t)
			order.Status = from
			err := order.Transition(target, testNow)
			if allowedSet[target] {
				require.NoError(t, err, "%s -> %s", from, target)
			} else {
				require.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", from, target)
			}
		}
	}
}

func TestTransition_CancelledUnreachableFromReady(t *testing.T) {
	order := twoLineOrder(t)
	order.Status = StatusReady
	require.ErrorIs(t, order.Transition(StatusCancelled, testNow), ErrInvalidTransition)
}

func TestTransition_TerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		for _, target := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled} {
			order := twoLineOrder(t)
			order.Status = terminal
			require.ErrorIs(t, order.Transition(target, testNow), ErrOrderFinalized)
		}
	}
}

func TestClone_IsIndependent(t *testing.T) {
	order := twoLineOrder(t)
	clone := order.Clone()
	require.NoError(t, clone.Transition(StatusConfirmed, testNow))
	require.Equal(t, StatusPending, order.Status)
	require.Len(t, order.History, 1)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("preparing")
	require.NoError(t, err)
	require.Equal(t, StatusPreparing, status)

	_, err = ParseStatus("shipped")
	require.ErrorIs(t, err, ErrInvalidStatus)
}
