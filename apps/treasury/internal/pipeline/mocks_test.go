package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"treasury/apps/treasury/internal/model"
	"treasury/apps/treasury/internal/venue"
)

// ============================================================
// In-memory fakes for the stage collaborators
// ============================================================

type logEntry struct {
	OrderID string
	Event   string
	Payload json.RawMessage
	Param   *string
}

type fakeOrderStore struct {
	orders    map[string]*model.ExchangeOrder
	logs      []logEntry
	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*model.ExchangeOrder)}
}

func (f *fakeOrderStore) CreateOrders(orders []model.ExchangeOrder) error {
	if f.createErr != nil {
		return f.createErr
	}
	for i := range orders {
		order := orders[i]
		f.orders[order.OrderID] = &order
	}
	return nil
}

func (f *fakeOrderStore) GetLatestAutomaticOrder(storeID string) (*model.ExchangeOrder, error) {
	var latest *model.ExchangeOrder
	for _, order := range f.orders {
		if order.StoreID != storeID || order.CreatedBy != model.CreatedByAutomatic || order.CreatedForDate == nil {
			continue
		}
		if latest == nil || order.CreatedForDate.After(*latest.CreatedForDate) {
			latest = order
		}
	}
	return latest, nil
}

func (f *fakeOrderStore) GetExecutableOrders(storeID, state string, now time.Time) ([]model.ExchangeOrder, error) {
	var result []model.ExchangeOrder
	for _, order := range f.orders {
		if order.StoreID == storeID && order.State == state && order.Executable(now) {
			result = append(result, *order)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		switch {
		case a.CreatedForDate == nil:
			return false
		case b.CreatedForDate == nil:
			return true
		case !a.CreatedForDate.Equal(*b.CreatedForDate):
			return a.CreatedForDate.Before(*b.CreatedForDate)
		default:
			return a.Created.Before(b.Created)
		}
	})
	return result, nil
}

func (f *fakeOrderStore) MarkDepositWaiting(orderID, depositID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.State = model.OrderStateDepositWaiting
	order.DepositID = &depositID
	return nil
}

func (f *fakeOrderStore) MarkCompleted(orderID string, conversionRate, targetAmount decimal.Decimal) error {
	order, ok := f.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.State = model.OrderStateCompleted
	order.ConversionRate = &conversionRate
	order.TargetAmount = &targetAmount
	return nil
}

func (f *fakeOrderStore) MarkError(orderID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.State = model.OrderStateError
	return nil
}

func (f *fakeOrderStore) AppendLog(orderID, event string, payload json.RawMessage, param *string) error {
	f.logs = append(f.logs, logEntry{OrderID: orderID, Event: event, Payload: payload, Param: param})
	return nil
}

func (f *fakeOrderStore) eventsFor(orderID string) []string {
	var events []string
	for _, entry := range f.logs {
		if entry.OrderID == orderID {
			events = append(events, entry.Event)
		}
	}
	return events
}

func (f *fakeOrderStore) ordersInState(state string) []*model.ExchangeOrder {
	var result []*model.ExchangeOrder
	for _, order := range f.orders {
		if order.State == state {
			result = append(result, order)
		}
	}
	return result
}

type fakePayoutClient struct {
	payouts  []model.Payout
	fetchErr error
	calls    int
}

func (f *fakePayoutClient) FetchPayoutsSince(ctx context.Context, apiKey string, since time.Time) ([]model.Payout, error) {
	f.calls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var result []model.Payout
	for _, p := range f.payouts {
		if !p.CreatedAt.Before(since) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type fakeVenueClient struct {
	createDepositFn  func(req venue.DepositRequest) (*venue.DepositResult, error)
	findDepositFn    func(depositID string) (*venue.DepositStatus, error)
	getBalancesFn    func() ([]venue.Balance, error)
	createQuoteFn    func(req venue.QuoteRequest) (*venue.QuoteResult, error)
	executeQuoteFn   func(quoteID string) (*venue.ExecutionResult, error)
	getRatesTickerFn func() (json.RawMessage, error)
}

func (f *fakeVenueClient) CreateDeposit(ctx context.Context, apiKey string, req venue.DepositRequest) (*venue.DepositResult, error) {
	if f.createDepositFn == nil {
		return &venue.DepositResult{Success: true, DepositID: "dep-1", RawResponse: json.RawMessage(`{"id":"dep-1"}`)}, nil
	}
	return f.createDepositFn(req)
}

func (f *fakeVenueClient) FindDeposit(ctx context.Context, apiKey, depositID string) (*venue.DepositStatus, error) {
	if f.findDepositFn == nil {
		return &venue.DepositStatus{Success: true, State: venue.DepositStateCompleted, RawResponse: json.RawMessage(`{"state":"completed"}`)}, nil
	}
	return f.findDepositFn(depositID)
}

func (f *fakeVenueClient) GetBalances(ctx context.Context, apiKey string) ([]venue.Balance, error) {
	if f.getBalancesFn == nil {
		return []venue.Balance{{Currency: venue.CurrencyUSD, Available: decimal.NewFromInt(1000)}}, nil
	}
	return f.getBalancesFn()
}

func (f *fakeVenueClient) CreateQuote(ctx context.Context, apiKey string, req venue.QuoteRequest) (*venue.QuoteResult, error) {
	if f.createQuoteFn == nil {
		return &venue.QuoteResult{
			Success:        true,
			QuoteID:        "quote-1",
			ConversionRate: decimal.RequireFromString("0.00002"),
			RawResponse:    json.RawMessage(`{"id":"quote-1"}`),
		}, nil
	}
	return f.createQuoteFn(req)
}

func (f *fakeVenueClient) ExecuteQuote(ctx context.Context, apiKey, quoteID string) (*venue.ExecutionResult, error) {
	if f.executeQuoteFn == nil {
		return &venue.ExecutionResult{
			Success:      true,
			TargetAmount: decimal.RequireFromString("0.002"),
			RawResponse:  json.RawMessage(`{"target_amount":"0.002"}`),
		}, nil
	}
	return f.executeQuoteFn(quoteID)
}

func (f *fakeVenueClient) GetRatesTicker(ctx context.Context, apiKey string) (json.RawMessage, error) {
	if f.getRatesTickerFn == nil {
		return json.RawMessage(`{"BTC-USD":"50000.00"}`), nil
	}
	return f.getRatesTickerFn()
}

type fakeSnapshotStore struct {
	snapshots []model.BalanceSnapshot
}

func (f *fakeSnapshotStore) UpsertSnapshot(snapshot model.BalanceSnapshot) error {
	f.snapshots = append(f.snapshots, snapshot)
	return nil
}

type fakeSettingsStore struct {
	settings map[string]*model.StoreSettings
	getErr   error
}

func (f *fakeSettingsStore) GetSettings(storeID string) (*model.StoreSettings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.settings[storeID], nil
}
