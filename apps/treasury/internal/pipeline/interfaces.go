package pipeline

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"treasury/apps/treasury/internal/model"
)

// OrderStore is the slice of the order repository the stages depend on.
type OrderStore interface {
	CreateOrders(orders []model.ExchangeOrder) error
	GetLatestAutomaticOrder(storeID string) (*model.ExchangeOrder, error)
	GetExecutableOrders(storeID, state string, now time.Time) ([]model.ExchangeOrder, error)
	MarkDepositWaiting(orderID, depositID string) error
	MarkCompleted(orderID string, conversionRate, targetAmount decimal.Decimal) error
	MarkError(orderID string) error
	AppendLog(orderID, event string, payload json.RawMessage, param *string) error
}

// SnapshotStore persists the per-store balance/ticker cache.
type SnapshotStore interface {
	UpsertSnapshot(snapshot model.BalanceSnapshot) error
}

// SettingsStore resolves a store's conversion configuration.
type SettingsStore interface {
	GetSettings(storeID string) (*model.StoreSettings, error)
}
