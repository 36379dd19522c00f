package payout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/model"
)

// Client fetches a store's payout records from the payout source.
type Client interface {
	// FetchPayoutsSince returns payouts created at or after the cursor,
	// sorted ascending by creation time.
	FetchPayoutsSince(ctx context.Context, apiKey string, since time.Time) ([]model.Payout, error)
}

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

type payoutListResponse struct {
	Payouts []model.Payout `json:"payouts"`
}

func (c *HTTPClient) FetchPayoutsSince(ctx context.Context, apiKey string, since time.Time) ([]model.Payout, error) {
	endpoint := fmt.Sprintf("%s/v1/payouts?since=%s", c.baseURL, url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payouts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payout response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payout source returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed payoutListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payout response: %w", err)
	}

	payouts := parsed.Payouts
	sort.Slice(payouts, func(i, j int) bool {
		return payouts[i].CreatedAt.Before(payouts[j].CreatedAt)
	})

	c.logger.Info("Fetched payouts",
		zap.Time("since", since),
		zap.Int("count", len(payouts)))
	return payouts, nil
}
