package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
	"treasury/apps/treasury/internal/venue"
)

// Settlement polls deposit status and executes the currency conversion. When
// the venue balance already covers an order whose deposit is still pending,
// the conversion runs optimistically ahead of formal confirmation.
type Settlement struct {
	orders    OrderStore
	snapshots SnapshotStore
	venue     venue.Client
	clock     clock.Clock
	delay     time.Duration
	logger    *zap.Logger
}

// NewSettlement creates the settlement stage. delay is the wait before the
// balance check, letting just-created deposits reflect at the venue.
func NewSettlement(orders OrderStore, snapshots SnapshotStore, venueClient venue.Client, clk clock.Clock, delay time.Duration, logger *zap.Logger) *Settlement {
	return &Settlement{orders: orders, snapshots: snapshots, venue: venueClient, clock: clk, delay: delay, logger: logger}
}

func (s *Settlement) Run(ctx context.Context, settings *model.StoreSettings) error {
	if settings.VenueAPIKey == "" {
		s.logger.Debug("No venue API key configured, skipping settlement stage",
			zap.String("store_id", settings.StoreID))
		return nil
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	balance, err := s.fiatBalance(ctx, settings.VenueAPIKey)
	if err != nil {
		return fmt.Errorf("failed to fetch venue balance: %w", err)
	}

	orders, err := s.orders.GetExecutableOrders(settings.StoreID, model.OrderStateDepositWaiting, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to load waiting orders: %w", err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}

		optimistic, err := s.settleOrder(ctx, settings, order, balance)
		if err != nil {
			s.logger.Error("Failed to settle order",
				zap.String("order_id", order.OrderID),
				zap.Error(err))
			continue
		}
		if optimistic {
			// Keep the in-pass tracker honest so two orders never
			// spend the same cached dollar.
			balance = balance.Sub(order.Amount)
		}
	}

	return s.refreshSnapshot(ctx, settings)
}

func (s *Settlement) fiatBalance(ctx context.Context, apiKey string) (decimal.Decimal, error) {
	balances, err := s.venue.GetBalances(ctx, apiKey)
	if err != nil {
		return decimal.Zero, err
	}
	for _, b := range balances {
		if b.Currency == venue.CurrencyUSD {
			return b.Available, nil
		}
	}
	return decimal.Zero, nil
}

// settleOrder decides one order's fate and reports whether the conversion
// drew on the cached balance tracker. A cleared deposit converts
// unconditionally and leaves the tracker alone.
func (s *Settlement) settleOrder(ctx context.Context, settings *model.StoreSettings, order model.ExchangeOrder, balance decimal.Decimal) (bool, error) {
	if order.DepositID == nil {
		return false, s.failOrder(order.OrderID, json.RawMessage(`{"error":"order waiting without deposit id"}`))
	}

	status, err := s.venue.FindDeposit(ctx, settings.VenueAPIKey, *order.DepositID)
	if err != nil {
		return false, s.failOrder(order.OrderID, errorPayload(err))
	}
	if !status.Success {
		return false, s.failOrder(order.OrderID, status.RawResponse)
	}

	switch {
	case status.State == venue.DepositStateCompleted:
		_, err := s.convert(ctx, settings, order)
		return false, err
	case status.State == venue.DepositStatePending && balance.GreaterThan(order.Amount):
		// Optimistic execution: funds are spendable before the deposit
		// formally clears.
		return s.convert(ctx, settings, order)
	default:
		return false, s.failOrder(order.OrderID, status.RawResponse)
	}
}

func (s *Settlement) convert(ctx context.Context, settings *model.StoreSettings, order model.ExchangeOrder) (bool, error) {
	req := venue.QuoteRequest{
		Buy:       venue.CurrencyBTC,
		Sell:      venue.CurrencyUSD,
		Amount:    order.Amount,
		FeePolicy: venue.FeePolicyInclusive,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("failed to marshal quote request: %w", err)
	}
	if err := s.orders.AppendLog(order.OrderID, model.LogEventExecutingExchange, payload, nil); err != nil {
		return false, err
	}

	quote, err := s.venue.CreateQuote(ctx, settings.VenueAPIKey, req)
	if err != nil {
		return false, s.failOrder(order.OrderID, errorPayload(err))
	}
	if !quote.Success || quote.ConversionRate.IsZero() {
		return false, s.failOrder(order.OrderID, quote.RawResponse)
	}

	if err := s.orders.AppendLog(order.OrderID, model.LogEventExecutingExchange, quote.RawResponse, &quote.QuoteID); err != nil {
		return false, err
	}

	execution, err := s.venue.ExecuteQuote(ctx, settings.VenueAPIKey, quote.QuoteID)
	if err != nil {
		return false, s.failOrder(order.OrderID, errorPayload(err))
	}
	if !execution.Success {
		return false, s.failOrder(order.OrderID, execution.RawResponse)
	}

	// The venue quotes crypto per unit fiat; persist the realized price as
	// fiat per unit crypto.
	conversionRate := decimal.NewFromInt(1).Div(quote.ConversionRate).Round(2)

	if err := s.orders.MarkCompleted(order.OrderID, conversionRate, execution.TargetAmount); err != nil {
		return false, err
	}
	if err := s.orders.AppendLog(order.OrderID, model.LogEventExchangeExecuted, execution.RawResponse, &quote.QuoteID); err != nil {
		return false, err
	}

	return true, nil
}

// refreshSnapshot re-reads the venue balance and rate ticker after a pass,
// whether or not any order was processed.
func (s *Settlement) refreshSnapshot(ctx context.Context, settings *model.StoreSettings) error {
	balance, err := s.fiatBalance(ctx, settings.VenueAPIKey)
	if err != nil {
		return fmt.Errorf("failed to refresh venue balance: %w", err)
	}

	ticker, err := s.venue.GetRatesTicker(ctx, settings.VenueAPIKey)
	if err != nil {
		return fmt.Errorf("failed to refresh rates ticker: %w", err)
	}

	return s.snapshots.UpsertSnapshot(model.BalanceSnapshot{
		StoreID:     settings.StoreID,
		FiatBalance: balance,
		Ticker:      ticker,
	})
}

func (s *Settlement) failOrder(orderID string, payload json.RawMessage) error {
	if err := s.orders.MarkError(orderID); err != nil {
		return err
	}
	return s.orders.AppendLog(orderID, model.LogEventError, payload, nil)
}
