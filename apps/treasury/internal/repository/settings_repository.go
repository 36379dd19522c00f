package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/model"
)

type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSettingsRepository(db *sql.DB, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{db: db, logger: logger}
}

const settingsColumns = `store_id, payout_api_key, venue_api_key, venue_payment_method_id, percentage_of_payouts, delay_order_days, heartbeat_minutes, start_date`

func (r *SettingsRepository) GetSettings(storeID string) (*model.StoreSettings, error) {
	var settings model.StoreSettings
	err := r.db.QueryRow(`
		SELECT `+settingsColumns+`
		FROM store_settings
		WHERE store_id = $1
	`, storeID).Scan(&settings.StoreID, &settings.PayoutAPIKey, &settings.VenueAPIKey,
		&settings.VenuePaymentMethodID, &settings.PercentageOfPayouts,
		&settings.DelayOrderDays, &settings.HeartbeatMinutes, &settings.StartDate)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get store settings: %w", err)
	}

	return &settings, nil
}

// GetAllSettings returns settings for every configured store, used by the
// heartbeat to evaluate due times.
func (r *SettingsRepository) GetAllSettings() ([]model.StoreSettings, error) {
	rows, err := r.db.Query(`
		SELECT ` + settingsColumns + `
		FROM store_settings
		ORDER BY store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all store settings: %w", err)
	}
	defer rows.Close()

	var all []model.StoreSettings
	for rows.Next() {
		var settings model.StoreSettings
		if err := rows.Scan(&settings.StoreID, &settings.PayoutAPIKey, &settings.VenueAPIKey,
			&settings.VenuePaymentMethodID, &settings.PercentageOfPayouts,
			&settings.DelayOrderDays, &settings.HeartbeatMinutes, &settings.StartDate); err != nil {
			return nil, fmt.Errorf("failed to scan store settings: %w", err)
		}
		all = append(all, settings)
	}

	return all, rows.Err()
}

func (r *SettingsRepository) UpsertSettings(settings model.StoreSettings) error {
	_, err := r.db.Exec(`
		INSERT INTO store_settings (store_id, payout_api_key, venue_api_key, venue_payment_method_id, percentage_of_payouts, delay_order_days, heartbeat_minutes, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (store_id) DO UPDATE SET
			payout_api_key = EXCLUDED.payout_api_key,
			venue_api_key = EXCLUDED.venue_api_key,
			venue_payment_method_id = EXCLUDED.venue_payment_method_id,
			percentage_of_payouts = EXCLUDED.percentage_of_payouts,
			delay_order_days = EXCLUDED.delay_order_days,
			heartbeat_minutes = EXCLUDED.heartbeat_minutes,
			start_date = EXCLUDED.start_date
	`, settings.StoreID, settings.PayoutAPIKey, settings.VenueAPIKey,
		settings.VenuePaymentMethodID, settings.PercentageOfPayouts,
		settings.DelayOrderDays, settings.HeartbeatMinutes, settings.StartDate)

	if err != nil {
		return fmt.Errorf("failed to upsert store settings: %w", err)
	}

	r.logger.Info("Upserted store settings", zap.String("store_id", settings.StoreID))
	return nil
}
