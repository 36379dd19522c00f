package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/model"
)

// SettingsStore persists per-store configuration.
type SettingsStore interface {
	UpsertSettings(settings model.StoreSettings) error
}

// SnapshotStore reads the cached venue balance and rate ticker.
type SnapshotStore interface {
	GetSnapshot(storeID string) (*model.BalanceSnapshot, error)
}

// StoreHandler handles store settings and snapshot endpoints
type StoreHandler struct {
	settings  SettingsStore
	snapshots SnapshotStore
	logger    *zap.Logger
}

func NewStoreHandler(settings SettingsStore, snapshots SnapshotStore, logger *zap.Logger) *StoreHandler {
	return &StoreHandler{settings: settings, snapshots: snapshots, logger: logger}
}

// UpsertSettings handles PUT /api/stores/{store_id}/settings
func (h *StoreHandler) UpsertSettings(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["store_id"]

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	percentage := decimal.Zero
	if req.PercentageOfPayouts != "" {
		parsed, err := decimal.NewFromString(req.PercentageOfPayouts)
		if err != nil || parsed.IsNegative() || parsed.GreaterThan(decimal.NewFromInt(100)) {
			writeErrorResponse(w, http.StatusBadRequest, "invalid_percentage", "Percentage must be between 0 and 100")
			return
		}
		percentage = parsed
	}

	if req.DelayOrderDays < 0 {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_delay", "Delay days must not be negative")
		return
	}
	if req.HeartbeatMinutes <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_heartbeat", "Heartbeat minutes must be positive")
		return
	}

	settings := model.StoreSettings{
		StoreID:              storeID,
		PayoutAPIKey:         req.PayoutAPIKey,
		VenueAPIKey:          req.VenueAPIKey,
		VenuePaymentMethodID: req.VenuePaymentMethodID,
		PercentageOfPayouts:  percentage,
		DelayOrderDays:       req.DelayOrderDays,
		HeartbeatMinutes:     req.HeartbeatMinutes,
		StartDate:            req.StartDate,
	}

	if err := h.settings.UpsertSettings(settings); err != nil {
		h.logger.Error("Failed to upsert settings", zap.String("store_id", storeID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to save settings")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"store_id": storeID})
}

// GetSnapshot handles GET /api/stores/{store_id}/snapshot
func (h *StoreHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["store_id"]

	snapshot, err := h.snapshots.GetSnapshot(storeID)
	if err != nil {
		h.logger.Error("Failed to get snapshot", zap.String("store_id", storeID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve snapshot")
		return
	}
	if snapshot == nil {
		writeErrorResponse(w, http.StatusNotFound, "snapshot_not_found", "No snapshot for store")
		return
	}

	writeJSONResponse(w, http.StatusOK, SnapshotResponse{
		StoreID:     snapshot.StoreID,
		FiatBalance: snapshot.FiatBalance.StringFixed(2),
		Ticker:      snapshot.Ticker,
		UpdatedAt:   snapshot.UpdatedAt,
	})
}
