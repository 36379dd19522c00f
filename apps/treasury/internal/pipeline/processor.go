package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/events"
)

// Processor handles store-due events by running the three stages in order.
// Errors stop the run for that store only; nothing propagates to the
// scheduler.
type Processor struct {
	settings   SettingsStore
	ingestion  *Ingestion
	deposit    *Deposit
	settlement *Settlement
	logger     *zap.Logger
}

func NewProcessor(settings SettingsStore, ingestion *Ingestion, deposit *Deposit, settlement *Settlement, logger *zap.Logger) *Processor {
	return &Processor{
		settings:   settings,
		ingestion:  ingestion,
		deposit:    deposit,
		settlement: settlement,
		logger:     logger,
	}
}

func (p *Processor) HandleStoreDue(ctx context.Context, event events.StoreDueEvent) error {
	settings, err := p.settings.GetSettings(event.StoreID)
	if err != nil {
		return fmt.Errorf("failed to load settings for store %s: %w", event.StoreID, err)
	}
	if settings == nil {
		p.logger.Warn("Store due event for unconfigured store", zap.String("store_id", event.StoreID))
		return nil
	}

	p.logger.Info("Processing store",
		zap.String("store_id", event.StoreID),
		zap.Time("due_at", event.DueAt))

	if err := p.ingestion.Run(ctx, settings); err != nil {
		return fmt.Errorf("ingestion failed for store %s: %w", event.StoreID, err)
	}
	if err := p.deposit.Run(ctx, settings); err != nil {
		return fmt.Errorf("deposit stage failed for store %s: %w", event.StoreID, err)
	}
	if err := p.settlement.Run(ctx, settings); err != nil {
		return fmt.Errorf("settlement stage failed for store %s: %w", event.StoreID, err)
	}

	return nil
}
