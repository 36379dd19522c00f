package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
	"treasury/apps/treasury/internal/venue"
)

// Deposit moves pending orders into an external deposit request at the
// exchange venue.
type Deposit struct {
	orders OrderStore
	venue  venue.Client
	clock  clock.Clock
	logger *zap.Logger
}

func NewDeposit(orders OrderStore, venueClient venue.Client, clk clock.Clock, logger *zap.Logger) *Deposit {
	return &Deposit{orders: orders, venue: venueClient, clock: clk, logger: logger}
}

// Run requests a venue deposit for every pending order whose delay window has
// elapsed. Each order commits independently; a failure moves that order to
// the terminal error state and requires operator intervention.
func (s *Deposit) Run(ctx context.Context, settings *model.StoreSettings) error {
	if settings.VenueAPIKey == "" {
		s.logger.Debug("No venue API key configured, skipping deposit stage",
			zap.String("store_id", settings.StoreID))
		return nil
	}

	orders, err := s.orders.GetExecutableOrders(settings.StoreID, model.OrderStateCreated, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to load pending orders: %w", err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}

		if err := s.requestDeposit(ctx, settings, order); err != nil {
			s.logger.Error("Failed to request deposit",
				zap.String("order_id", order.OrderID),
				zap.Error(err))
		}
	}

	return nil
}

func (s *Deposit) requestDeposit(ctx context.Context, settings *model.StoreSettings, order model.ExchangeOrder) error {
	req := venue.DepositRequest{
		PaymentMethodID: settings.VenuePaymentMethodID,
		Amount:          order.Amount,
		FeePolicy:       venue.FeePolicyExclusive,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal deposit request: %w", err)
	}
	if err := s.orders.AppendLog(order.OrderID, model.LogEventCreatingDeposit, payload, nil); err != nil {
		return err
	}

	result, err := s.venue.CreateDeposit(ctx, settings.VenueAPIKey, req)
	if err != nil {
		return s.failOrder(order.OrderID, errorPayload(err))
	}
	if !result.Success {
		return s.failOrder(order.OrderID, result.RawResponse)
	}

	if err := s.orders.MarkDepositWaiting(order.OrderID, result.DepositID); err != nil {
		return err
	}
	return s.orders.AppendLog(order.OrderID, model.LogEventDepositCreated, result.RawResponse, &result.DepositID)
}

func (s *Deposit) failOrder(orderID string, payload json.RawMessage) error {
	if err := s.orders.MarkError(orderID); err != nil {
		return err
	}
	return s.orders.AppendLog(orderID, model.LogEventError, payload, nil)
}

func errorPayload(err error) json.RawMessage {
	payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()})
	if marshalErr != nil {
		return json.RawMessage(`{"error":"unserializable"}`)
	}
	return payload
}
