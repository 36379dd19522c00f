package api

import (
	"encoding/json"
	"time"
)

// OrderResponse represents the API response for order information
type OrderResponse struct {
	OrderID        string     `json:"order_id"`
	StoreID        string     `json:"store_id"`
	Operation      string     `json:"operation"`
	Amount         string     `json:"amount"`
	Created        time.Time  `json:"created"`
	CreatedForDate *time.Time `json:"created_for_date,omitempty"`
	CreatedBy      string     `json:"created_by"`
	DelayUntil     *time.Time `json:"delay_until,omitempty"`
	State          string     `json:"state"`
	DepositID      *string    `json:"deposit_id,omitempty"`
	ConversionRate *string    `json:"conversion_rate,omitempty"`
	TargetAmount   *string    `json:"target_amount,omitempty"`
}

// OrderLogResponse represents one audit log entry
type OrderLogResponse struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Param   *string         `json:"param,omitempty"`
	Created time.Time       `json:"created"`
}

// OrderDetailResponse is an order together with its log trail
type OrderDetailResponse struct {
	Order OrderResponse      `json:"order"`
	Logs  []OrderLogResponse `json:"logs"`
}

// CreateOrderRequest represents the request body for manual order creation
type CreateOrderRequest struct {
	Amount    string `json:"amount" validate:"required"`
	Operation string `json:"operation"`
}

// SettingsRequest represents the request body for a settings upsert
type SettingsRequest struct {
	PayoutAPIKey         string     `json:"payout_api_key"`
	VenueAPIKey          string     `json:"venue_api_key"`
	VenuePaymentMethodID string     `json:"venue_payment_method_id"`
	PercentageOfPayouts  string     `json:"percentage_of_payouts"`
	DelayOrderDays       int        `json:"delay_order_days"`
	HeartbeatMinutes     int        `json:"heartbeat_minutes"`
	StartDate            *time.Time `json:"start_date,omitempty"`
}

// SnapshotResponse represents the cached venue balance and rate ticker
type SnapshotResponse struct {
	StoreID     string          `json:"store_id"`
	FiatBalance string          `json:"fiat_balance"`
	Ticker      json.RawMessage `json:"ticker"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ErrorResponse represents the API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
