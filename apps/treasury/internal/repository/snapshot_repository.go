package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"treasury/apps/treasury/internal/model"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger}
}

// UpsertSnapshot stores the latest venue balance and rate ticker for a store.
func (r *SnapshotRepository) UpsertSnapshot(snapshot model.BalanceSnapshot) error {
	_, err := r.db.Exec(`
		INSERT INTO balance_snapshots (store_id, fiat_balance, ticker, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (store_id) DO UPDATE SET
			fiat_balance = EXCLUDED.fiat_balance,
			ticker = EXCLUDED.ticker,
			updated_at = NOW()
	`, snapshot.StoreID, snapshot.FiatBalance, snapshot.Ticker)

	if err != nil {
		return fmt.Errorf("failed to upsert balance snapshot: %w", err)
	}

	r.logger.Info("Refreshed balance snapshot",
		zap.String("store_id", snapshot.StoreID),
		zap.String("fiat_balance", snapshot.FiatBalance.String()))
	return nil
}

func (r *SnapshotRepository) GetSnapshot(storeID string) (*model.BalanceSnapshot, error) {
	var snapshot model.BalanceSnapshot
	err := r.db.QueryRow(`
		SELECT store_id, fiat_balance, ticker, updated_at
		FROM balance_snapshots
		WHERE store_id = $1
	`, storeID).Scan(&snapshot.StoreID, &snapshot.FiatBalance, &snapshot.Ticker, &snapshot.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get balance snapshot: %w", err)
	}

	return &snapshot, nil
}
