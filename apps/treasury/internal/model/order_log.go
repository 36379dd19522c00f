package model

import (
	"encoding/json"
	"time"
)

// Log event kinds, one per externally observable action.
const (
	LogEventCreatingDeposit   = "creating_deposit"
	LogEventDepositCreated    = "deposit_created"
	LogEventExecutingExchange = "executing_exchange"
	LogEventExchangeExecuted  = "exchange_executed"
	LogEventError             = "error"
)

// ExchangeOrderLog is an append-only audit entry. Rows are never mutated and
// are removed only by cascade delete with the parent order.
type ExchangeOrderLog struct {
	ID      int64           `db:"id"`
	OrderID string          `db:"order_id"`
	Event   string          `db:"event"`
	Payload json.RawMessage `db:"payload"` // request/response snapshot
	Param   *string         `db:"param"`   // short external id, e.g. deposit or quote id
	Created time.Time       `db:"created"`
}
