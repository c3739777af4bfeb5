// Package viewstate pairs the SQL order truth with a Redis cache of
// ephemeral tracking display state. SQL always wins; Redis only speeds
// up reads and may be absent entirely.
package viewstate

import (
	"context"
	"log"
	"time"

	"fuelninja/store"
)

type Manager struct {
	db    *store.DB
	redis *RedisStore
}

// NewManager builds a manager. redis may be nil, in which case only the
// durable SQL paths operate and live display state is unavailable.
func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// SetLive publishes the current distance/ETA display for an order.
func (m *Manager) SetLive(orderID, status, distance, eta string) {
	if m.redis == nil {
		return
	}
	state := &LiveState{
		OrderID:   orderID,
		Status:    status,
		Distance:  distance,
		ETA:       eta,
		UpdatedAt: time.Now(),
	}
	if err := m.redis.SetLive(context.Background(), state); err != nil {
		log.Printf("[viewstate] set live %s: %v", orderID, err)
	}
}

// GetLive returns the cached display state, or nil when none exists.
func (m *Manager) GetLive(orderID string) *LiveState {
	if m.redis == nil {
		return nil
	}
	state, err := m.redis.GetLive(context.Background(), orderID)
	if err != nil {
		log.Printf("[viewstate] get live %s: %v", orderID, err)
		return nil
	}
	return state
}

// Celebrate flips the persistent celebration flag for an order. Returns
// true only the first time ever for a given order id. SQL is the record
// of truth; the Redis set is a read-path shortcut.
func (m *Manager) Celebrate(orderID string) (bool, error) {
	first, err := m.db.MarkOrderCelebrated(orderID)
	if err != nil {
		return false, err
	}
	if m.redis != nil {
		if err := m.redis.MarkCelebrated(context.Background(), orderID); err != nil {
			log.Printf("[viewstate] cache celebrated %s: %v", orderID, err)
		}
	}
	return first, nil
}

// IsCelebrated checks the Redis set first and falls back to SQL.
func (m *Manager) IsCelebrated(orderID string) (bool, error) {
	if m.redis != nil {
		if ok, err := m.redis.IsCelebrated(context.Background(), orderID); err == nil && ok {
			return true, nil
		}
	}
	return m.db.IsOrderCelebrated(orderID)
}

// ClearOrder drops the cached state for one order.
func (m *Manager) ClearOrder(orderID string) {
	if m.redis == nil {
		return
	}
	if err := m.redis.RemoveOrder(context.Background(), orderID); err != nil {
		log.Printf("[viewstate] clear %s: %v", orderID, err)
	}
}

// FlushAll drops every cached order, used alongside the destructive
// order store reset.
func (m *Manager) FlushAll() {
	if m.redis == nil {
		return
	}
	if err := m.redis.FlushAll(context.Background()); err != nil {
		log.Printf("[viewstate] flush: %v", err)
	}
}
