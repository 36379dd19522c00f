package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
	"treasury/apps/treasury/internal/payout"
)

// MinPayoutAmount is the smallest payout that produces an order. Smaller or
// non-final payouts are skipped.
var MinPayoutAmount = decimal.NewFromInt(100)

var oneHundred = decimal.NewFromInt(100)

// Ingestion turns new payout records into pending orders, applying the
// store's percentage and delay policy.
type Ingestion struct {
	orders  OrderStore
	payouts payout.Client
	clock   clock.Clock
	logger  *zap.Logger
}

func NewIngestion(orders OrderStore, payouts payout.Client, clk clock.Clock, logger *zap.Logger) *Ingestion {
	return &Ingestion{orders: orders, payouts: payouts, clock: clk, logger: logger}
}

// Run ingests payouts newer than the store's cursor. The cursor is the latest
// automatic order's CreatedForDate; a payout is never re-ingested once the
// batch holding it has committed.
func (s *Ingestion) Run(ctx context.Context, settings *model.StoreSettings) error {
	if settings.PayoutAPIKey == "" {
		s.logger.Debug("No payout API key configured, skipping ingestion",
			zap.String("store_id", settings.StoreID))
		return nil
	}

	now := s.clock.Now()

	lastOrder, err := s.orders.GetLatestAutomaticOrder(settings.StoreID)
	if err != nil {
		return fmt.Errorf("failed to resolve ingestion cursor: %w", err)
	}

	cursor := now
	hasPrior := false
	switch {
	case lastOrder != nil && lastOrder.CreatedForDate != nil:
		cursor = *lastOrder.CreatedForDate
		hasPrior = true
	case settings.StartDate != nil:
		cursor = *settings.StartDate
	}

	payouts, err := s.payouts.FetchPayoutsSince(ctx, settings.PayoutAPIKey, cursor)
	if err != nil {
		return fmt.Errorf("failed to fetch payouts: %w", err)
	}

	var batch []model.ExchangeOrder
	for _, p := range payouts {
		if ctx.Err() != nil {
			break
		}

		// The payout source returns records at or after the cursor; the
		// cursor payout itself is already committed.
		if hasPrior && !p.CreatedAt.After(cursor) {
			continue
		}

		if p.Status != model.PayoutStatusPaid || !p.Amount.GreaterThan(MinPayoutAmount) {
			continue
		}

		amount := p.Amount.Mul(settings.PercentageOfPayouts).Div(oneHundred).Round(2)

		var delayUntil *time.Time
		if settings.DelayOrderDays > 0 {
			t := now.AddDate(0, 0, settings.DelayOrderDays)
			delayUntil = &t
		}

		createdFor := p.CreatedAt
		batch = append(batch, model.ExchangeOrder{
			OrderID:        uuid.New().String(),
			StoreID:        settings.StoreID,
			Operation:      model.OperationBuyBitcoin,
			Amount:         amount,
			Created:        now,
			CreatedForDate: &createdFor,
			CreatedBy:      model.CreatedByAutomatic,
			DelayUntil:     delayUntil,
			State:          model.OrderStateCreated,
		})
	}

	// Single commit point: the cursor only advances once the whole batch
	// is durable.
	if err := s.orders.CreateOrders(batch); err != nil {
		return fmt.Errorf("failed to persist ingested orders: %w", err)
	}

	if len(batch) > 0 {
		s.logger.Info("Ingested payouts",
			zap.String("store_id", settings.StoreID),
			zap.Int("orders", len(batch)),
			zap.Time("cursor", cursor))
	}
	return nil
}
