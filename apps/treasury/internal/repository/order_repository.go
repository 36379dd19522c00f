package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/model"
)

type OrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

const orderColumns = `order_id, store_id, operation, amount, created, created_for_date, created_by, delay_until, state, deposit_id, conversion_rate, target_amount`

func scanOrder(row interface{ Scan(...any) error }) (*model.ExchangeOrder, error) {
	var order model.ExchangeOrder
	var conversionRate, targetAmount decimal.NullDecimal
	err := row.Scan(&order.OrderID, &order.StoreID, &order.Operation, &order.Amount,
		&order.Created, &order.CreatedForDate, &order.CreatedBy, &order.DelayUntil,
		&order.State, &order.DepositID, &conversionRate, &targetAmount)
	if err != nil {
		return nil, err
	}
	if conversionRate.Valid {
		order.ConversionRate = &conversionRate.Decimal
	}
	if targetAmount.Valid {
		order.TargetAmount = &targetAmount.Decimal
	}
	return &order, nil
}

func (r *OrderRepository) CreateOrder(order model.ExchangeOrder) error {
	_, err := r.db.Exec(`
		INSERT INTO exchange_orders (order_id, store_id, operation, amount, created, created_for_date, created_by, delay_until, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, order.OrderID, order.StoreID, order.Operation, order.Amount, order.Created,
		order.CreatedForDate, order.CreatedBy, order.DelayUntil, order.State)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Info("Created order",
		zap.String("order_id", order.OrderID),
		zap.String("store_id", order.StoreID),
		zap.String("created_by", order.CreatedBy),
		zap.String("amount", order.Amount.String()))
	return nil
}

// CreateOrders inserts a batch of orders in a single transaction. The
// ingestion cursor only advances once the whole batch is durable.
func (r *OrderRepository) CreateOrders(orders []model.ExchangeOrder) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if tx.Commit() succeeds

	for _, order := range orders {
		_, err := tx.Exec(`
			INSERT INTO exchange_orders (order_id, store_id, operation, amount, created, created_for_date, created_by, delay_until, state)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, order.OrderID, order.StoreID, order.Operation, order.Amount, order.Created,
			order.CreatedForDate, order.CreatedBy, order.DelayUntil, order.State)
		if err != nil {
			return fmt.Errorf("failed to insert order %s: %w", order.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order batch: %w", err)
	}

	r.logger.Info("Created order batch",
		zap.String("store_id", orders[0].StoreID),
		zap.Int("count", len(orders)))
	return nil
}

func (r *OrderRepository) GetOrderByID(orderID string) (*model.ExchangeOrder, error) {
	order, err := scanOrder(r.db.QueryRow(`
		SELECT `+orderColumns+`
		FROM exchange_orders
		WHERE order_id = $1
	`, orderID))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order by ID: %w", err)
	}

	return order, nil
}

// GetLatestAutomaticOrder returns the automatic order with the most recent
// originating payout timestamp, or nil if the store has none yet.
func (r *OrderRepository) GetLatestAutomaticOrder(storeID string) (*model.ExchangeOrder, error) {
	order, err := scanOrder(r.db.QueryRow(`
		SELECT `+orderColumns+`
		FROM exchange_orders
		WHERE store_id = $1 AND created_by = $2 AND created_for_date IS NOT NULL
		ORDER BY created_for_date DESC
		LIMIT 1
	`, storeID, model.CreatedByAutomatic))

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest automatic order: %w", err)
	}

	return order, nil
}

// GetExecutableOrders returns the store's orders in the given state whose
// delay window has elapsed, oldest originating payout first.
func (r *OrderRepository) GetExecutableOrders(storeID, state string, now time.Time) ([]model.ExchangeOrder, error) {
	rows, err := r.db.Query(`
		SELECT `+orderColumns+`
		FROM exchange_orders
		WHERE store_id = $1 AND state = $2 AND (delay_until IS NULL OR delay_until < $3)
		ORDER BY created_for_date NULLS LAST, created
	`, storeID, state, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get executable orders: %w", err)
	}
	defer rows.Close()

	var orders []model.ExchangeOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

func (r *OrderRepository) GetOrdersByStore(storeID string) ([]model.ExchangeOrder, error) {
	rows, err := r.db.Query(`
		SELECT `+orderColumns+`
		FROM exchange_orders
		WHERE store_id = $1
		ORDER BY created DESC
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders by store: %w", err)
	}
	defer rows.Close()

	var orders []model.ExchangeOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

// MarkDepositWaiting records the deposit id returned by the venue and moves
// the order to deposit_waiting.
func (r *OrderRepository) MarkDepositWaiting(orderID, depositID string) error {
	_, err := r.db.Exec(`
		UPDATE exchange_orders SET state = $1, deposit_id = $2 WHERE order_id = $3
	`, model.OrderStateDepositWaiting, depositID, orderID)

	if err != nil {
		return fmt.Errorf("failed to mark order deposit_waiting: %w", err)
	}

	r.logger.Info("Order waiting for deposit",
		zap.String("order_id", orderID),
		zap.String("deposit_id", depositID))
	return nil
}

// MarkCompleted persists the realized conversion outcome.
func (r *OrderRepository) MarkCompleted(orderID string, conversionRate, targetAmount decimal.Decimal) error {
	_, err := r.db.Exec(`
		UPDATE exchange_orders SET state = $1, conversion_rate = $2, target_amount = $3 WHERE order_id = $4
	`, model.OrderStateCompleted, conversionRate, targetAmount, orderID)

	if err != nil {
		return fmt.Errorf("failed to mark order completed: %w", err)
	}

	r.logger.Info("Order completed",
		zap.String("order_id", orderID),
		zap.String("conversion_rate", conversionRate.String()),
		zap.String("target_amount", targetAmount.String()))
	return nil
}

func (r *OrderRepository) MarkError(orderID string) error {
	_, err := r.db.Exec(`
		UPDATE exchange_orders SET state = $1 WHERE order_id = $2
	`, model.OrderStateError, orderID)

	if err != nil {
		return fmt.Errorf("failed to mark order error: %w", err)
	}

	r.logger.Warn("Order moved to error state", zap.String("order_id", orderID))
	return nil
}

// ResetToCreated re-drives an errored order: back to created with the deposit
// id cleared so the next heartbeat issues a fresh deposit. Administrative
// action; the pipeline itself never leaves the error state.
func (r *OrderRepository) ResetToCreated(orderID string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE exchange_orders SET state = $1, deposit_id = NULL WHERE order_id = $2 AND state = $3
	`, model.OrderStateCreated, orderID, model.OrderStateError)

	if err != nil {
		return false, fmt.Errorf("failed to reset order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		r.logger.Info("Order reset for re-drive", zap.String("order_id", orderID))
	}
	return affected > 0, nil
}

// AppendLog writes one audit entry for an externally observable action.
func (r *OrderRepository) AppendLog(orderID, event string, payload json.RawMessage, param *string) error {
	_, err := r.db.Exec(`
		INSERT INTO exchange_order_logs (order_id, event, payload, param)
		VALUES ($1, $2, $3, $4)
	`, orderID, event, payload, param)

	if err != nil {
		return fmt.Errorf("failed to append order log: %w", err)
	}

	return nil
}

func (r *OrderRepository) GetLogsByOrder(orderID string) ([]model.ExchangeOrderLog, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, event, payload, param, created
		FROM exchange_order_logs
		WHERE order_id = $1
		ORDER BY created, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ExchangeOrderLog
	for rows.Next() {
		var entry model.ExchangeOrderLog
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Event, &entry.Payload, &entry.Param, &entry.Created); err != nil {
			return nil, fmt.Errorf("failed to scan order log: %w", err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
