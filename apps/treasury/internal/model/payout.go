package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout statuses as reported by the payout source.
const (
	PayoutStatusPaid = "paid"
)

// Payout is a periodic fiat disbursement reported by the payout source. Its
// CreatedAt timestamp is the ingestion idempotency cursor.
type Payout struct {
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
