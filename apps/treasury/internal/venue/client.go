package venue

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Fee policies for venue requests. Deposits are fee-exclusive (the fee is
// charged on top of the amount), quotes are fee-inclusive.
const (
	FeePolicyExclusive = "fee_exclusive"
	FeePolicyInclusive = "fee_inclusive"
)

// Deposit states reported by the venue.
const (
	DepositStatePending   = "pending"
	DepositStateCompleted = "completed"
	DepositStateFailed    = "failed"
	DepositStateReversed  = "reversed"
)

// Currencies traded by the pipeline.
const (
	CurrencyUSD = "USD"
	CurrencyBTC = "BTC"
)

type DepositRequest struct {
	PaymentMethodID string          `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	FeePolicy       string          `json:"fee_policy"`
}

// DepositResult carries the venue's answer to a deposit request. RawResponse
// is the unmodified body, kept for the order audit log.
type DepositResult struct {
	Success     bool
	DepositID   string
	ErrorReason string
	RawResponse json.RawMessage
}

type DepositStatus struct {
	Success     bool
	State       string
	ErrorReason string
	RawResponse json.RawMessage
}

type Balance struct {
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
}

type QuoteRequest struct {
	Buy       string          `json:"buy"`
	Sell      string          `json:"sell"`
	Amount    decimal.Decimal `json:"amount"`
	FeePolicy string          `json:"fee_policy"`
}

// QuoteResult holds a priced, time-bounded conversion offer. ConversionRate
// is crypto per unit fiat as quoted by the venue.
type QuoteResult struct {
	Success        bool
	QuoteID        string
	ConversionRate decimal.Decimal
	ErrorReason    string
	RawResponse    json.RawMessage
}

type ExecutionResult struct {
	Success      bool
	TargetAmount decimal.Decimal
	ErrorReason  string
	RawResponse  json.RawMessage
}

// Client is the exchange-venue contract consumed by the pipeline. A nil error
// with Success=false means the venue answered with a non-success response;
// a non-nil error means the call itself failed.
type Client interface {
	CreateDeposit(ctx context.Context, apiKey string, req DepositRequest) (*DepositResult, error)
	FindDeposit(ctx context.Context, apiKey, depositID string) (*DepositStatus, error)
	GetBalances(ctx context.Context, apiKey string) ([]Balance, error)
	CreateQuote(ctx context.Context, apiKey string, req QuoteRequest) (*QuoteResult, error)
	ExecuteQuote(ctx context.Context, apiKey, quoteID string) (*ExecutionResult, error)
	GetRatesTicker(ctx context.Context, apiKey string) (json.RawMessage, error)
}
