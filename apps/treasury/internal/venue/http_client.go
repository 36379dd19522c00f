package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HTTPClient talks to the exchange venue's REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) do(ctx context.Context, apiKey, method, path string, payload any) (int, json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal venue request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build venue request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("venue request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read venue response: %w", err)
	}

	return resp.StatusCode, raw, nil
}

type depositResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

func (c *HTTPClient) CreateDeposit(ctx context.Context, apiKey string, req DepositRequest) (*DepositResult, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodPost, "/v1/deposits", req)
	if err != nil {
		return nil, err
	}

	var parsed depositResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && status < 300 {
		return nil, fmt.Errorf("failed to unmarshal deposit response: %w", err)
	}

	result := &DepositResult{
		Success:     status >= 200 && status < 300 && parsed.ID != "",
		DepositID:   parsed.ID,
		ErrorReason: parsed.Error,
		RawResponse: raw,
	}

	c.logger.Info("Created venue deposit",
		zap.Bool("success", result.Success),
		zap.String("deposit_id", result.DepositID),
		zap.String("amount", req.Amount.String()))
	return result, nil
}

type depositStatusResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Error string `json:"error"`
}

func (c *HTTPClient) FindDeposit(ctx context.Context, apiKey, depositID string) (*DepositStatus, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodGet, "/v1/deposits/"+depositID, nil)
	if err != nil {
		return nil, err
	}

	var parsed depositStatusResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && status < 300 {
		return nil, fmt.Errorf("failed to unmarshal deposit status: %w", err)
	}

	return &DepositStatus{
		Success:     status >= 200 && status < 300,
		State:       parsed.State,
		ErrorReason: parsed.Error,
		RawResponse: raw,
	}, nil
}

type balancesResponse struct {
	Balances []Balance `json:"balances"`
}

func (c *HTTPClient) GetBalances(ctx context.Context, apiKey string) ([]Balance, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodGet, "/v1/balances", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("venue returned status %d for balances: %s", status, string(raw))
	}

	var parsed balancesResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
	}

	return parsed.Balances, nil
}

type quoteResponse struct {
	ID             string          `json:"id"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	Error          string          `json:"error"`
}

func (c *HTTPClient) CreateQuote(ctx context.Context, apiKey string, req QuoteRequest) (*QuoteResult, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodPost, "/v1/quotes", req)
	if err != nil {
		return nil, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && status < 300 {
		return nil, fmt.Errorf("failed to unmarshal quote response: %w", err)
	}

	result := &QuoteResult{
		Success:        status >= 200 && status < 300 && parsed.ID != "",
		QuoteID:        parsed.ID,
		ConversionRate: parsed.ConversionRate,
		ErrorReason:    parsed.Error,
		RawResponse:    raw,
	}

	c.logger.Info("Created venue quote",
		zap.Bool("success", result.Success),
		zap.String("quote_id", result.QuoteID),
		zap.String("amount", req.Amount.String()))
	return result, nil
}

type executionResponse struct {
	TargetAmount decimal.Decimal `json:"target_amount"`
	Error        string          `json:"error"`
}

func (c *HTTPClient) ExecuteQuote(ctx context.Context, apiKey, quoteID string) (*ExecutionResult, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodPost, "/v1/quotes/"+quoteID+"/execute", nil)
	if err != nil {
		return nil, err
	}

	var parsed executionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && status < 300 {
		return nil, fmt.Errorf("failed to unmarshal execution response: %w", err)
	}

	result := &ExecutionResult{
		Success:      status >= 200 && status < 300,
		TargetAmount: parsed.TargetAmount,
		ErrorReason:  parsed.Error,
		RawResponse:  raw,
	}

	c.logger.Info("Executed venue quote",
		zap.Bool("success", result.Success),
		zap.String("quote_id", quoteID),
		zap.String("target_amount", result.TargetAmount.String()))
	return result, nil
}

func (c *HTTPClient) GetRatesTicker(ctx context.Context, apiKey string) (json.RawMessage, error) {
	status, raw, err := c.do(ctx, apiKey, http.MethodGet, "/v1/rates/ticker", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("venue returned status %d for rates ticker: %s", status, string(raw))
	}

	return raw, nil
}
