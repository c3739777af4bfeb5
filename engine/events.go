package engine

const (
	EventOrderCreated          EventType = "order.created"
	EventDriverAssigned        EventType = "order.driver_assigned"
	EventOrderStatusChanged    EventType = "order.status_changed"
	EventOrderDelivered        EventType = "order.delivered"
	EventSimulationConflict    EventType = "order.conflict"
	EventOrdersCleared         EventType = "order.cleared"
	EventConfigUpdated         EventType = "config.updated"
	EventMessagingConnected    EventType = "messaging.connected"
	EventMessagingDisconnected EventType = "messaging.disconnected"
)

// OrderEventTypes lists every per-order lifecycle event, for subscribers
// that mirror the whole order feed (the SSE bridge does).
var OrderEventTypes = []EventType{
	EventOrderCreated,
	EventDriverAssigned,
	EventOrderStatusChanged,
	EventOrderDelivered,
	EventSimulationConflict,
	EventOrdersCleared,
}

// OrderEvent accompanies order lifecycle events. Distance and ETA are
// only set on simulated intermediate transitions.
type OrderEvent struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	Distance   string `json:"distance,omitempty"`
	ETA        string `json:"eta,omitempty"`
	DriverName string `json:"driver_name,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ConflictEvent reports a simulator run that found the order's status
// changed underneath it.
type ConflictEvent struct {
	OrderID  string `json:"order_id"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type ConfigUpdatedEvent struct {
	Action string `json:"action"`
}

type OrdersClearedEvent struct {
	Count int `json:"count"`
}

type ConnectionEvent struct {
	Detail string `json:"detail"`
}
