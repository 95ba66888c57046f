package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mselser95/kalshi-arb/internal/arbitrage"
	"github.com/mselser95/kalshi-arb/pkg/types"
)

func trackerOrder(id, ticker string, status types.OrderStatus, count, remaining int) *types.Order {
	return &types.Order{
		OrderID:        id,
		Ticker:         ticker,
		Status:         status,
		Count:          count,
		RemainingCount: remaining,
	}
}

func testTracker(t *testing.T, client OrderClient, timeout time.Duration) *FillTracker {
	t.Helper()

	return NewFillTracker(&FillTrackerConfig{
		Client:         client,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		FillTimeout:    timeout,
		Logger:         zaptest.NewLogger(t),
	})
}

func TestNewFillTrackerDefaults(t *testing.T) {
	t.Parallel()

	ft := NewFillTracker(&FillTrackerConfig{Logger: zaptest.NewLogger(t)})

	require.Equal(t, 200*time.Millisecond, ft.initialBackoff)
	require.Equal(t, 2*time.Second, ft.maxBackoff)
	require.Equal(t, 5*time.Second, ft.fillTimeout)
}

func TestVerifyGroupAlreadySettled(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{}
	ft := testTracker(t, client, time.Second)

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusExecuted, 10, 0)
	group.Orders["EVT-B"] = trackerOrder("ord-EVT-B", "EVT-B", types.OrderStatusExecuted, 10, 0)

	statuses, err := ft.VerifyGroup(context.Background(), group)

	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.True(t, statuses[0].FullyFilled)
	require.True(t, statuses[1].FullyFilled)
	require.Zero(t, client.getCalls)
}

func TestVerifyGroupRefreshesUntilTerminal(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{
		getSeq: map[string][]orderReply{
			"ord-EVT-A": {
				{order: trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)},
				{order: trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusExecuted, 10, 0)},
			},
		},
	}
	ft := testTracker(t, client, time.Second)

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)

	statuses, err := ft.VerifyGroup(context.Background(), group)

	require.NoError(t, err)
	require.Len(t, statuses, 1)
	require.True(t, statuses[0].FullyFilled)
	require.Equal(t, types.OrderStatusExecuted, statuses[0].Status)
	require.Equal(t, 10, statuses[0].FilledCount)
	require.Equal(t, 2, client.getCalls)

	require.Equal(t, types.OrderStatusExecuted, group.Orders["EVT-A"].Status)
}

func TestVerifyGroupRetriesQueryErrors(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{
		getSeq: map[string][]orderReply{
			"ord-EVT-A": {
				{err: errors.New("gateway timeout")},
				{err: errors.New("gateway timeout")},
				{order: trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusExecuted, 5, 0)},
			},
		},
	}
	ft := testTracker(t, client, time.Second)

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 5, 5)

	statuses, err := ft.VerifyGroup(context.Background(), group)

	require.NoError(t, err)
	require.True(t, statuses[0].FullyFilled)
	require.Equal(t, 3, client.getCalls)
}

func TestVerifyGroupTimeout(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{
		getSeq: map[string][]orderReply{
			"ord-EVT-A": {
				{order: trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)},
			},
		},
	}
	ft := testTracker(t, client, 40*time.Millisecond)

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)

	statuses, err := ft.VerifyGroup(context.Background(), group)

	require.NoError(t, err)
	require.False(t, statuses[0].FullyFilled)
	require.Equal(t, "fill verification timeout after 40ms", statuses[0].Err)
	require.Equal(t, types.OrderStatusResting, statuses[0].Status)
}

func TestVerifyGroupContextCanceled(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{
		getSeq: map[string][]orderReply{
			"ord-EVT-A": {
				{order: trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)},
			},
		},
	}
	ft := testTracker(t, client, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusResting, 10, 10)

	statuses, err := ft.VerifyGroup(ctx, group)

	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, statuses, 1)
	require.False(t, statuses[0].FullyFilled)
}

func TestVerifyGroupOrderedByTicker(t *testing.T) {
	t.Parallel()

	client := &fakeOrderClient{}
	ft := testTracker(t, client, time.Second)

	group := newGroup(arbitrage.CreateTestOpportunity("EVT"), 1)
	group.Orders["EVT-B"] = trackerOrder("ord-EVT-B", "EVT-B", types.OrderStatusExecuted, 1, 0)
	group.Orders["EVT-A"] = trackerOrder("ord-EVT-A", "EVT-A", types.OrderStatusExecuted, 1, 0)

	statuses, err := ft.VerifyGroup(context.Background(), group)

	require.NoError(t, err)
	require.Equal(t, "EVT-A", statuses[0].Ticker)
	require.Equal(t, "EVT-B", statuses[1].Ticker)
}
