package core

import "time"

type EventName string

const (
	EventItemCreated        EventName = "item_created"
	EventItemDeleted        EventName = "item_deleted"
	EventTransactionCreated EventName = "transaction_created"
	EventTransactionDeleted EventName = "transaction_deleted"
	EventDragCompleted      EventName = "drag_completed"
	EventRatesRefreshed     EventName = "rates_refreshed"
	EventError              EventName = "error"
)

// Event is a fire-and-forget analytics record.
type Event struct {
	Name       EventName         `json:"name"`
	At         time.Time         `json:"at"`
	Properties map[string]string `json:"properties,omitempty"`
}

func NewEvent(name EventName, at time.Time, kv ...string) Event {
	e := Event{Name: name, At: at}
	if len(kv) > 1 {
		e.Properties = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Properties[kv[i]] = kv[i+1]
		}
	}
	return e
}
