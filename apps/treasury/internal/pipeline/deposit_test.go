package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
	"treasury/apps/treasury/internal/venue"
)

func pendingOrder(id string, amount string, createdFor time.Time) model.ExchangeOrder {
	created := createdFor.Add(time.Hour)
	forDate := createdFor
	return model.ExchangeOrder{
		OrderID:        id,
		StoreID:        "store-1",
		Operation:      model.OperationBuyBitcoin,
		Amount:         decimal.RequireFromString(amount),
		Created:        created,
		CreatedForDate: &forDate,
		CreatedBy:      model.CreatedByAutomatic,
		State:          model.OrderStateCreated,
	}
}

func TestDepositTransitionsOrderToWaiting(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeOrderStore()
	require.NoError(t, store.CreateOrders([]model.ExchangeOrder{
		pendingOrder("order-1", "100.00", now.Add(-24*time.Hour)),
	}))

	var captured venue.DepositRequest
	client := &fakeVenueClient{
		createDepositFn: func(req venue.DepositRequest) (*venue.DepositResult, error) {
			captured = req
			return &venue.DepositResult{Success: true, DepositID: "dep-42", RawResponse: json.RawMessage(`{"id":"dep-42"}`)}, nil
		},
	}

	stage := NewDeposit(store, client, clock.NewFakeClock(now), zap.NewNop())
	require.NoError(t, stage.Run(context.Background(), testSettings()))

	order := store.orders["order-1"]
	assert.Equal(t, model.OrderStateDepositWaiting, order.State)
	require.NotNil(t, order.DepositID)
	assert.Equal(t, "dep-42", *order.DepositID)

	assert.Equal(t, "pm-1", captured.PaymentMethodID)
	assert.Equal(t, venue.FeePolicyExclusive, captured.FeePolicy)
	assert.Equal(t, []string{model.LogEventCreatingDeposit, model.LogEventDepositCreated}, store.eventsFor("order-1"))
}

func TestDepositFailureIsTerminalPerOrder(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeOrderStore()
	require.NoError(t, store.CreateOrders([]model.ExchangeOrder{
		pendingOrder("order-1", "100.00", now.Add(-48*time.Hour)),
		pendingOrder("order-2", "200.00", now.Add(-24*time.Hour)),
	}))

	client := &fakeVenueClient{
		createDepositFn: func(req venue.DepositRequest) (*venue.DepositResult, error) {
			if req.Amount.Equal(decimal.RequireFromString("100.00")) {
				return &venue.DepositResult{Success: false, RawResponse: json.RawMessage(`{"error":"insufficient limits"}`)}, nil
			}
			return &venue.DepositResult{Success: true, DepositID: "dep-2", RawResponse: json.RawMessage(`{"id":"dep-2"}`)}, nil
		},
	}

	stage := NewDeposit(store, client, clock.NewFakeClock(now), zap.NewNop())
	require.NoError(t, stage.Run(context.Background(), testSettings()))

	// One order failing never blocks its siblings.
	assert.Equal(t, model.OrderStateError, store.orders["order-1"].State)
	assert.Equal(t, model.OrderStateDepositWaiting, store.orders["order-2"].State)
	assert.Equal(t, []string{model.LogEventCreatingDeposit, model.LogEventError}, store.eventsFor("order-1"))
}

func TestDepositHonorsDelayWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeOrderStore()
	delayed := pendingOrder("order-1", "100.00", now.Add(-24*time.Hour))
	future := now.Add(48 * time.Hour)
	delayed.DelayUntil = &future
	require.NoError(t, store.CreateOrders([]model.ExchangeOrder{delayed}))

	called := false
	client := &fakeVenueClient{
		createDepositFn: func(req venue.DepositRequest) (*venue.DepositResult, error) {
			called = true
			return &venue.DepositResult{Success: true, DepositID: "dep-1"}, nil
		},
	}

	stage := NewDeposit(store, client, clock.NewFakeClock(now), zap.NewNop())
	require.NoError(t, stage.Run(context.Background(), testSettings()))

	assert.False(t, called)
	assert.Equal(t, model.OrderStateCreated, store.orders["order-1"].State)
}

func TestDepositSkipsWithoutVenueKey(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeOrderStore()
	require.NoError(t, store.CreateOrders([]model.ExchangeOrder{
		pendingOrder("order-1", "100.00", now.Add(-24*time.Hour)),
	}))

	called := false
	client := &fakeVenueClient{
		createDepositFn: func(req venue.DepositRequest) (*venue.DepositResult, error) {
			called = true
			return nil, nil
		},
	}

	settings := testSettings()
	settings.VenueAPIKey = ""

	stage := NewDeposit(store, client, clock.NewFakeClock(now), zap.NewNop())
	require.NoError(t, stage.Run(context.Background(), settings))

	assert.False(t, called)
	assert.Equal(t, model.OrderStateCreated, store.orders["order-1"].State)
}
