package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreSettings is the per-store conversion configuration. It is owned by
// store administrators and read-only to the pipeline.
type StoreSettings struct {
	StoreID              string          `db:"store_id"`
	PayoutAPIKey         string          `db:"payout_api_key"`
	VenueAPIKey          string          `db:"venue_api_key"`
	VenuePaymentMethodID string          `db:"venue_payment_method_id"`
	PercentageOfPayouts  decimal.Decimal `db:"percentage_of_payouts"`
	DelayOrderDays       int             `db:"delay_order_days"`
	HeartbeatMinutes     int             `db:"heartbeat_minutes"`
	StartDate            *time.Time      `db:"start_date"` // cursor fallback before the first automatic order
}
