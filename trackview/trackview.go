// Package trackview assembles everything a tracking screen needs for
// one order: step progress, driver display, live distance/ETA, and the
// one-time delivery celebration.
package trackview

import (
	"errors"
	"time"

	"fuelninja/store"
	"fuelninja/tracking"
	"fuelninja/viewstate"
)

type State string

const (
	// StateNone means no order exists for the id.
	StateNone State = "none"
	// StateActive is a live tracking view.
	StateActive State = "active"
	// StateExpired is a delivered order past the display window. It is
	// still returned, marked historical.
	StateExpired State = "expired"
)

type View struct {
	State        State            `json:"state"`
	Order        *store.Order     `json:"order,omitempty"`
	Steps        []tracking.Step  `json:"steps,omitempty"`
	StepIndex    int              `json:"step_index"`
	Progress     float64          `json:"progress"`
	Driver       *tracking.Driver `json:"driver,omitempty"`
	Distance     string           `json:"distance,omitempty"`
	ETA          string           `json:"eta,omitempty"`
	Celebrate    bool             `json:"celebrate"`
	ReviewPrompt bool             `json:"review_prompt"`
}

type Builder struct {
	db         *store.DB
	view       *viewstate.Manager
	loadConfig func() *tracking.Config
	expiry     time.Duration
}

func NewBuilder(db *store.DB, view *viewstate.Manager, loadConfig func() *tracking.Config, expiry time.Duration) *Builder {
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return &Builder{db: db, view: view, loadConfig: loadConfig, expiry: expiry}
}

// Build composes the tracking view for an order id.
func (b *Builder) Build(orderID string) (*View, error) {
	order, err := b.db.GetOrder(orderID)
	if errors.Is(err, store.ErrOrderNotFound) {
		return &View{State: StateNone}, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := b.loadConfig()
	steps := tracking.Sorted(cfg.Steps)

	v := &View{
		State: StateActive,
		Order: order,
		Steps: steps,
	}

	v.StepIndex = tracking.IndexOf(order.Status, steps)
	if v.StepIndex < 0 {
		v.StepIndex = 0
	}
	if len(steps) > 1 {
		v.Progress = float64(v.StepIndex) / float64(len(steps)-1)
	}

	// Display-only driver fallback. Never written back to the order.
	if order.Driver != nil {
		v.Driver = order.Driver
	} else if len(cfg.Drivers) > 0 {
		d := cfg.Drivers[0]
		v.Driver = &d
	}

	terminal := tracking.IsTerminal(order.Status, steps)
	if terminal && order.DeliveredAt != nil && time.Since(*order.DeliveredAt) > b.expiry {
		v.State = StateExpired
	}

	if terminal {
		first, err := b.view.Celebrate(orderID)
		if err != nil {
			return nil, err
		}
		v.Celebrate = first
		v.ReviewPrompt = first
	}

	if v.State == StateActive && !terminal {
		if live := b.view.GetLive(orderID); live != nil && live.Status == order.Status {
			v.Distance = live.Distance
			v.ETA = live.ETA
		}
	}
	return v, nil
}
