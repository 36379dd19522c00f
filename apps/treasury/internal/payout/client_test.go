package payout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchPayoutsSince(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payouts", r.URL.Path)
		assert.Equal(t, since.Format(time.RFC3339), r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer payout-key", r.Header.Get("Authorization"))

		// Out of order on purpose; the client sorts ascending.
		w.Write([]byte(`{"payouts":[
			{"amount":"500.00","status":"paid","created_at":"2024-03-03T00:00:00Z"},
			{"amount":"1000.00","status":"paid","created_at":"2024-03-02T00:00:00Z"}
		]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, zap.NewNop())
	payouts, err := client.FetchPayoutsSince(context.Background(), "payout-key", since)

	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.True(t, payouts[0].CreatedAt.Before(payouts[1].CreatedAt))
	assert.Equal(t, "1000.00", payouts[0].Amount.StringFixed(2))
}

func TestFetchPayoutsSinceErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, zap.NewNop())
	_, err := client.FetchPayoutsSince(context.Background(), "bad-key", time.Now())

	assert.Error(t, err)
}
