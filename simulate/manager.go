// Package simulate replays the remaining delivery steps for confirmed
// orders on a timer, standing in for real driver telemetry.
package simulate

import (
	"log"
	"sync"
	"time"

	"fuelninja/store"
	"fuelninja/tracking"
)

// Canned display strings for the two intermediate steps.
const (
	EnRouteDistance  = "3.2 miles away"
	EnRouteETA       = "15-20 minutes"
	ArrivingDistance = "0.5 miles away"
	ArrivingETA      = "2-5 minutes"
)

// Transition is one simulated advance reported to the owner.
type Transition struct {
	OrderID    string
	Status     string
	Distance   string
	ETA        string
	DriverName string
}

// TransitionFunc persists and broadcasts an advance. Returning an error
// stops the run.
type TransitionFunc func(t Transition) error

// ConflictFunc is called when an order's status was changed outside the
// simulator while a run was active.
type ConflictFunc func(orderID, expected, actual string)

type run struct {
	stop chan struct{}
}

// Manager owns one simulated delivery per order id.
type Manager struct {
	db         *store.DB
	interval   time.Duration
	loadConfig func() *tracking.Config
	transition TransitionFunc
	onConflict ConflictFunc

	mu   sync.Mutex
	runs map[string]*run
	done map[string]bool
	wg   sync.WaitGroup
}

func NewManager(db *store.DB, interval time.Duration, loadConfig func() *tracking.Config,
	transition TransitionFunc, onConflict ConflictFunc) *Manager {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Manager{
		db:         db,
		interval:   interval,
		loadConfig: loadConfig,
		transition: transition,
		onConflict: onConflict,
		runs:       make(map[string]*run),
		done:       make(map[string]bool),
	}
}

// Start begins simulating an order. A second call for the same id while
// a run is active, or after one has completed, does nothing.
func (m *Manager) Start(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done[orderID] {
		return
	}
	if _, active := m.runs[orderID]; active {
		return
	}
	r := &run{stop: make(chan struct{})}
	m.runs[orderID] = r
	m.wg.Add(1)
	go m.loop(orderID, r)
}

func (m *Manager) loop(orderID string, r *run) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	lastWritten := ""
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			advanced, final := m.tick(orderID, &lastWritten)
			if !advanced {
				m.finish(orderID, final)
				return
			}
			if final {
				m.finish(orderID, true)
				return
			}
		}
	}
}

// tick performs one advance. It re-reads both the order and the step
// configuration so edits made mid-flight take effect immediately.
// Returns advanced=false to stop without completing, final=true when the
// terminal step was written (or the run should never restart).
func (m *Manager) tick(orderID string, lastWritten *string) (advanced, final bool) {
	order, err := m.db.GetOrder(orderID)
	if err != nil {
		return false, false
	}

	if *lastWritten != "" && order.Status != *lastWritten {
		if m.onConflict != nil {
			m.onConflict(orderID, *lastWritten, order.Status)
		}
		return false, false
	}

	steps := tracking.Sorted(m.loadConfig().Steps)
	if len(steps) < 2 {
		return false, false
	}
	if tracking.IsTerminal(order.Status, steps) {
		return false, true
	}
	next, ok := tracking.Next(order.Status, steps)
	if !ok {
		return false, false
	}

	t := Transition{OrderID: orderID, Status: next}
	if order.Driver != nil {
		t.DriverName = order.Driver.Name
	}
	switch next {
	case tracking.StepEnRoute:
		t.Distance, t.ETA = EnRouteDistance, EnRouteETA
	case tracking.StepArriving:
		t.Distance, t.ETA = ArrivingDistance, ArrivingETA
	}

	if err := m.transition(t); err != nil {
		log.Printf("[simulate] transition %s -> %s: %v", orderID, next, err)
		return false, false
	}
	*lastWritten = next
	return true, tracking.IsTerminal(next, steps)
}

// finish tears down a run. completed marks the order so Start becomes a
// permanent no-op for it.
func (m *Manager) finish(orderID string, completed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[orderID]; ok {
		delete(m.runs, orderID)
		close(r.stop)
	}
	if completed {
		m.done[orderID] = true
	}
}

// Cancel stops the run for one order. Safe to call repeatedly or after
// natural completion.
func (m *Manager) Cancel(orderID string) {
	m.mu.Lock()
	r, ok := m.runs[orderID]
	if ok {
		delete(m.runs, orderID)
		close(r.stop)
	}
	m.mu.Unlock()
}

// Active reports whether a run is currently ticking for the order.
func (m *Manager) Active(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[orderID]
	return ok
}

// Stop cancels every run and waits for their goroutines to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	for id, r := range m.runs {
		delete(m.runs, id)
		close(r.stop)
	}
	m.mu.Unlock()
	m.wg.Wait()
}
