package viewstate

import "time"

// LiveState is the ephemeral tracking display for an in-flight order.
// It lives in Redis only; the order row in SQL is the durable truth.
type LiveState struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Distance  string    `json:"distance"`
	ETA       string    `json:"eta"`
	UpdatedAt time.Time `json:"updated_at"`
}
