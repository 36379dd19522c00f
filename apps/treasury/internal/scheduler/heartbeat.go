package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/bus"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/events"
	"treasury/apps/treasury/internal/model"
)

// SettingsSource lists every store with conversion settings configured.
type SettingsSource interface {
	GetAllSettings() ([]model.StoreSettings, error)
}

// Heartbeat drives per-store schedules from a single global ticker. Per-store
// last-run times live only for the lifetime of the process; after a restart
// every store is eligible on the first evaluated tick, bounded by the
// ingestion cursor rather than the scheduler.
type Heartbeat struct {
	settings   SettingsSource
	dispatcher bus.Dispatcher
	clock      clock.Clock
	tick       time.Duration
	logger     *zap.Logger

	warmedUp bool
	lastRun  map[string]time.Time
}

func NewHeartbeat(settings SettingsSource, dispatcher bus.Dispatcher, clk clock.Clock, tick time.Duration, logger *zap.Logger) *Heartbeat {
	return &Heartbeat{
		settings:   settings,
		dispatcher: dispatcher,
		clock:      clk,
		tick:       tick,
		logger:     logger,
		lastRun:    make(map[string]time.Time),
	}
}

// Start runs the global ticker until the context is cancelled.
func (h *Heartbeat) Start(ctx context.Context) error {
	h.logger.Info("Starting heartbeat", zap.Duration("tick", h.tick))

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Tick(ctx)
		case <-ctx.Done():
			h.logger.Info("Stopping heartbeat")
			return nil
		}
	}
}

// Tick evaluates every configured store and publishes a due event for each
// whose heartbeat interval has elapsed. The very first tick after process
// start does nothing, so a deploy never fires before settings are warm.
func (h *Heartbeat) Tick(ctx context.Context) {
	if !h.warmedUp {
		h.warmedUp = true
		h.logger.Info("Skipping first heartbeat tick after start")
		return
	}

	allSettings, err := h.settings.GetAllSettings()
	if err != nil {
		h.logger.Error("Failed to load store settings", zap.Error(err))
		return
	}

	for _, settings := range allSettings {
		if ctx.Err() != nil {
			return
		}

		if err := h.evaluateStore(ctx, settings); err != nil {
			// One store's misconfiguration never blocks the others.
			h.logger.Error("Failed to evaluate store heartbeat",
				zap.String("store_id", settings.StoreID),
				zap.Error(err))
		}
	}
}

func (h *Heartbeat) evaluateStore(ctx context.Context, settings model.StoreSettings) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating store %s: %v", settings.StoreID, r)
		}
	}()

	now := h.clock.Now()
	nextDue := h.lastRun[settings.StoreID].Add(time.Duration(settings.HeartbeatMinutes) * time.Minute)
	if !now.After(nextDue) {
		return nil
	}

	event := events.StoreDueEvent{
		StoreID: settings.StoreID,
		DueAt:   now,
	}
	if err := h.dispatcher.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish store due event: %w", err)
	}

	h.lastRun[settings.StoreID] = now
	return nil
}
