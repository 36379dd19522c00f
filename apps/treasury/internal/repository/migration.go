package repository

import (
	"database/sql"
	"fmt"
)

// InitMigration initializes the database. In production, this would use a proper migration
// library like go-migrate
func InitMigration(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS exchange_orders (
			order_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			store_id VARCHAR(50) NOT NULL,
			operation VARCHAR(30) NOT NULL,
			amount DECIMAL(20,2) NOT NULL,
			created TIMESTAMP NOT NULL DEFAULT NOW(),
			created_for_date TIMESTAMP,
			created_by VARCHAR(20) NOT NULL,
			delay_until TIMESTAMP,
			state VARCHAR(20) NOT NULL,
			deposit_id VARCHAR(100),
			conversion_rate DECIMAL(20,2),
			target_amount DECIMAL(30,8)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_orders_store_state ON exchange_orders (store_id, state, created_for_date, created)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_orders_store_created_for ON exchange_orders (store_id, created_by, created_for_date DESC)`,
		`CREATE TABLE IF NOT EXISTS exchange_order_logs (
			id BIGSERIAL PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES exchange_orders (order_id) ON DELETE CASCADE,
			event VARCHAR(30) NOT NULL,
			payload JSONB NOT NULL,
			param VARCHAR(100),
			created TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchange_order_logs_order ON exchange_order_logs (order_id, created)`,
		`CREATE TABLE IF NOT EXISTS store_settings (
			store_id VARCHAR(50) PRIMARY KEY,
			payout_api_key VARCHAR(200) NOT NULL DEFAULT '',
			venue_api_key VARCHAR(200) NOT NULL DEFAULT '',
			venue_payment_method_id VARCHAR(100) NOT NULL DEFAULT '',
			percentage_of_payouts DECIMAL(5,2) NOT NULL DEFAULT 0,
			delay_order_days INTEGER NOT NULL DEFAULT 0,
			heartbeat_minutes INTEGER NOT NULL DEFAULT 60,
			start_date TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS balance_snapshots (
			store_id VARCHAR(50) PRIMARY KEY,
			fiat_balance DECIMAL(20,2) NOT NULL,
			ticker JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}
