package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
)

// OrderStore is the slice of the order repository the API depends on.
type OrderStore interface {
	CreateOrder(order model.ExchangeOrder) error
	GetOrderByID(orderID string) (*model.ExchangeOrder, error)
	GetOrdersByStore(storeID string) ([]model.ExchangeOrder, error)
	GetLogsByOrder(orderID string) ([]model.ExchangeOrderLog, error)
	ResetToCreated(orderID string) (bool, error)
}

// OrderHandler handles order-related API endpoints
type OrderHandler struct {
	orders OrderStore
	clock  clock.Clock
	logger *zap.Logger
}

func NewOrderHandler(orders OrderStore, clk clock.Clock, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, clock: clk, logger: logger}
}

// ListOrders handles GET /api/stores/{store_id}/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["store_id"]

	orders, err := h.orders.GetOrdersByStore(storeID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.String("store_id", storeID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve orders")
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		response = append(response, toOrderResponse(order))
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// GetOrder handles GET /api/orders/{order_id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	order, err := h.orders.GetOrderByID(orderID)
	if err != nil {
		h.logger.Error("Failed to get order", zap.String("order_id", orderID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order")
		return
	}
	if order == nil {
		writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}

	logs, err := h.orders.GetLogsByOrder(orderID)
	if err != nil {
		h.logger.Error("Failed to get order logs", zap.String("order_id", orderID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order logs")
		return
	}

	detail := OrderDetailResponse{Order: toOrderResponse(*order)}
	for _, entry := range logs {
		detail.Logs = append(detail.Logs, OrderLogResponse{
			Event:   entry.Event,
			Payload: entry.Payload,
			Param:   entry.Param,
			Created: entry.Created,
		})
	}

	writeJSONResponse(w, http.StatusOK, detail)
}

// CreateOrder handles POST /api/stores/{store_id}/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	storeID := mux.Vars(r)["store_id"]

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_amount", "Amount must be a positive decimal")
		return
	}

	operation := req.Operation
	if operation == "" {
		operation = model.OperationBuyBitcoin
	}

	order := model.ExchangeOrder{
		OrderID:   uuid.New().String(),
		StoreID:   storeID,
		Operation: operation,
		Amount:    amount.Round(2),
		Created:   h.clock.Now(),
		CreatedBy: model.CreatedByManual,
		State:     model.OrderStateCreated,
	}

	if err := h.orders.CreateOrder(order); err != nil {
		h.logger.Error("Failed to create manual order", zap.String("store_id", storeID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to create order")
		return
	}

	writeJSONResponse(w, http.StatusCreated, toOrderResponse(order))
}

// RetryOrder handles POST /api/orders/{order_id}/retry. It re-drives an
// errored order: state back to created with the deposit id cleared, so the
// next heartbeat issues a fresh deposit.
func (h *OrderHandler) RetryOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	order, err := h.orders.GetOrderByID(orderID)
	if err != nil {
		h.logger.Error("Failed to get order for retry", zap.String("order_id", orderID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve order")
		return
	}
	if order == nil {
		writeErrorResponse(w, http.StatusNotFound, "order_not_found", "Order not found")
		return
	}

	reset, err := h.orders.ResetToCreated(orderID)
	if err != nil {
		h.logger.Error("Failed to reset order", zap.String("order_id", orderID), zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to reset order")
		return
	}
	if !reset {
		writeErrorResponse(w, http.StatusConflict, "order_not_in_error", "Only orders in the error state can be retried")
		return
	}

	order, err = h.orders.GetOrderByID(orderID)
	if err != nil || order == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve reset order")
		return
	}

	writeJSONResponse(w, http.StatusOK, toOrderResponse(*order))
}
