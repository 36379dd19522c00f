package api

import (
	"encoding/json"
	"net/http"

	"treasury/apps/treasury/internal/model"
)

func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSONResponse(w, status, ErrorResponse{Error: code, Message: message})
}

func toOrderResponse(order model.ExchangeOrder) OrderResponse {
	resp := OrderResponse{
		OrderID:        order.OrderID,
		StoreID:        order.StoreID,
		Operation:      order.Operation,
		Amount:         order.Amount.StringFixed(2),
		Created:        order.Created,
		CreatedForDate: order.CreatedForDate,
		CreatedBy:      order.CreatedBy,
		DelayUntil:     order.DelayUntil,
		State:          order.State,
		DepositID:      order.DepositID,
	}
	if order.ConversionRate != nil {
		rate := order.ConversionRate.StringFixed(2)
		resp.ConversionRate = &rate
	}
	if order.TargetAmount != nil {
		target := order.TargetAmount.String()
		resp.TargetAmount = &target
	}
	return resp
}
