package events

import (
	"time"
)

// EventTypeStoreDue marks a store whose heartbeat interval has elapsed.
const EventTypeStoreDue = "store_due"

// StoreDueEvent is published by the scheduler when a store's heartbeat
// interval has elapsed and consumed by the order processor.
type StoreDueEvent struct {
	EventType string    `json:"event_type"`
	StoreID   string    `json:"store_id"`
	DueAt     time.Time `json:"due_at"`
	Timestamp time.Time `json:"timestamp"`
}
