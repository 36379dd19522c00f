package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/clock"
	"treasury/apps/treasury/internal/model"
)

type fakeOrderStore struct {
	orders map[string]*model.ExchangeOrder
	logs   map[string][]model.ExchangeOrderLog
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: make(map[string]*model.ExchangeOrder),
		logs:   make(map[string][]model.ExchangeOrderLog),
	}
}

func (f *fakeOrderStore) CreateOrder(order model.ExchangeOrder) error {
	f.orders[order.OrderID] = &order
	return nil
}

func (f *fakeOrderStore) GetOrderByID(orderID string) (*model.ExchangeOrder, error) {
	return f.orders[orderID], nil
}

func (f *fakeOrderStore) GetOrdersByStore(storeID string) ([]model.ExchangeOrder, error) {
	var orders []model.ExchangeOrder
	for _, order := range f.orders {
		if order.StoreID == storeID {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}

func (f *fakeOrderStore) GetLogsByOrder(orderID string) ([]model.ExchangeOrderLog, error) {
	return f.logs[orderID], nil
}

func (f *fakeOrderStore) ResetToCreated(orderID string) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.State != model.OrderStateError {
		return false, nil
	}
	order.State = model.OrderStateCreated
	order.DepositID = nil
	return true, nil
}

func newTestRouter(store *fakeOrderStore) *mux.Router {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	handler := NewOrderHandler(store, clock.NewFakeClock(now), zap.NewNop())

	router := mux.NewRouter()
	router.HandleFunc("/api/stores/{store_id}/orders", handler.ListOrders).Methods("GET")
	router.HandleFunc("/api/stores/{store_id}/orders", handler.CreateOrder).Methods("POST")
	router.HandleFunc("/api/orders/{order_id}", handler.GetOrder).Methods("GET")
	router.HandleFunc("/api/orders/{order_id}/retry", handler.RetryOrder).Methods("POST")
	return router
}

func TestCreateManualOrder(t *testing.T) {
	store := newFakeOrderStore()
	router := newTestRouter(store)

	body, _ := json.Marshal(CreateOrderRequest{Amount: "250.00"})
	req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "store-1", resp.StoreID)
	assert.Equal(t, "250.00", resp.Amount)
	assert.Equal(t, model.CreatedByManual, resp.CreatedBy)
	assert.Equal(t, model.OrderStateCreated, resp.State)
	assert.Nil(t, resp.CreatedForDate)
	require.Len(t, store.orders, 1)
}

func TestCreateManualOrderRejectsBadAmount(t *testing.T) {
	store := newFakeOrderStore()
	router := newTestRouter(store)

	for _, amount := range []string{"", "abc", "-5", "0"} {
		body, _ := json.Marshal(CreateOrderRequest{Amount: amount})
		req := httptest.NewRequest(http.MethodPost, "/api/stores/store-1/orders", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %q", amount)
	}
	assert.Empty(t, store.orders)
}

func TestGetOrderWithLogs(t *testing.T) {
	store := newFakeOrderStore()
	depositID := "dep-1"
	store.orders["order-1"] = &model.ExchangeOrder{
		OrderID:   "order-1",
		StoreID:   "store-1",
		Operation: model.OperationBuyBitcoin,
		Amount:    decimal.RequireFromString("100.00"),
		CreatedBy: model.CreatedByAutomatic,
		State:     model.OrderStateDepositWaiting,
		DepositID: &depositID,
	}
	store.logs["order-1"] = []model.ExchangeOrderLog{
		{OrderID: "order-1", Event: model.LogEventCreatingDeposit, Payload: json.RawMessage(`{}`)},
		{OrderID: "order-1", Event: model.LogEventDepositCreated, Payload: json.RawMessage(`{"id":"dep-1"}`), Param: &depositID},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/order-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.OrderStateDepositWaiting, resp.Order.State)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, model.LogEventDepositCreated, resp.Logs[1].Event)
}

func TestGetOrderNotFound(t *testing.T) {
	router := newTestRouter(newFakeOrderStore())

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetryOrderOnlyFromErrorState(t *testing.T) {
	store := newFakeOrderStore()
	depositID := "dep-1"
	store.orders["order-1"] = &model.ExchangeOrder{
		OrderID:   "order-1",
		StoreID:   "store-1",
		Amount:    decimal.RequireFromString("100.00"),
		State:     model.OrderStateError,
		DepositID: &depositID,
	}
	store.orders["order-2"] = &model.ExchangeOrder{
		OrderID: "order-2",
		StoreID: "store-1",
		Amount:  decimal.RequireFromString("100.00"),
		State:   model.OrderStateCompleted,
	}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/order-1/retry", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStateCreated, store.orders["order-1"].State)
	assert.Nil(t, store.orders["order-1"].DepositID)

	// Completed orders are never re-driven.
	req = httptest.NewRequest(http.MethodPost, "/api/orders/order-2/retry", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, model.OrderStateCompleted, store.orders["order-2"].State)
}
