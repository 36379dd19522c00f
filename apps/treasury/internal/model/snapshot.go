package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSnapshot caches a store's venue fiat balance and rate ticker for
// display. Refreshed after every settlement pass.
type BalanceSnapshot struct {
	StoreID     string          `db:"store_id"`
	FiatBalance decimal.Decimal `db:"fiat_balance"`
	Ticker      json.RawMessage `db:"ticker"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
