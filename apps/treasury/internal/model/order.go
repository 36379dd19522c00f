package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order states. Transitions are monotonic: Created -> DepositWaiting ->
// Completed, with Created/DepositWaiting -> Error on failure. Completed and
// Error are terminal for the pipeline.
const (
	OrderStateCreated        = "created"
	OrderStateDepositWaiting = "deposit_waiting"
	OrderStateCompleted      = "completed"
	OrderStateError          = "error"
)

// Order operations. Open enumeration, persisted as text.
const (
	OperationBuyBitcoin = "buy_bitcoin"
)

const (
	CreatedByManual    = "manual"
	CreatedByAutomatic = "automatic"
)

type ExchangeOrder struct {
	OrderID        string           `db:"order_id"`
	StoreID        string           `db:"store_id"`
	Operation      string           `db:"operation"`
	Amount         decimal.Decimal  `db:"amount"`
	Created        time.Time        `db:"created"`
	CreatedForDate *time.Time       `db:"created_for_date"` // nullable for manual orders
	CreatedBy      string           `db:"created_by"`
	DelayUntil     *time.Time       `db:"delay_until"`
	State          string           `db:"state"`
	DepositID      *string          `db:"deposit_id"`
	ConversionRate *decimal.Decimal `db:"conversion_rate"` // fiat per unit crypto, 2 decimals
	TargetAmount   *decimal.Decimal `db:"target_amount"`
}

// Executable reports whether the delay window, if any, has elapsed.
func (o *ExchangeOrder) Executable(now time.Time) bool {
	return o.DelayUntil == nil || now.After(*o.DelayUntil)
}
