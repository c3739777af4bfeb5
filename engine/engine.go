package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"fuelninja/config"
	"fuelninja/messaging"
	"fuelninja/pricing"
	"fuelninja/simulate"
	"fuelninja/store"
	"fuelninja/tracking"
	"fuelninja/viewstate"
)

var (
	ErrPaymentRequired = errors.New("engine: payment not completed")
	ErrCannotAdvance   = errors.New("engine: order cannot advance")
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	View       *viewstate.Manager
	MsgClient  *messaging.Client
	LogFunc    LogFunc
}

// Engine is the single mutation path for orders and tracking
// configuration. The web layer and the simulator both go through it so
// status sequencing can never diverge between the two.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	view       *viewstate.Manager
	msgClient  *messaging.Client
	drainer    *messaging.OutboxDrainer
	sim        *simulate.Manager
	prices     *pricing.Table
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}

	msgConnected bool

	trackMu  sync.RWMutex
	trackCfg *tracking.Config
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		view:       c.View,
		msgClient:  c.MsgClient,
		prices:     pricing.NewTable(c.AppConfig.Pricing),
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (e *Engine) Start() {
	e.trackMu.Lock()
	e.trackCfg = e.db.LoadTrackingConfig()
	e.trackMu.Unlock()

	e.sim = simulate.NewManager(e.db, e.cfg.Simulator.TickInterval,
		e.TrackingConfig, e.applySimulated, e.onSimConflict)

	if e.msgClient != nil {
		e.drainer = messaging.NewOutboxDrainer(e.db, e.msgClient, e.cfg.Messaging.OutboxDrainInterval)
		e.drainer.Start()
	}

	e.resumeActiveOrders()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	if e.sim != nil {
		e.sim.Stop()
	}
	if e.drainer != nil {
		e.drainer.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                { return e.db }
func (e *Engine) AppConfig() *config.Config    { return e.cfg }
func (e *Engine) ConfigPath() string           { return e.configPath }
func (e *Engine) View() *viewstate.Manager     { return e.view }
func (e *Engine) Sim() *simulate.Manager       { return e.sim }
func (e *Engine) MsgClient() *messaging.Client { return e.msgClient }
func (e *Engine) Prices() *pricing.Table       { return e.prices }

// TrackingConfig returns a snapshot of the live step list and roster.
// Callers may mutate the copy freely.
func (e *Engine) TrackingConfig() *tracking.Config {
	e.trackMu.RLock()
	defer e.trackMu.RUnlock()
	cp := &tracking.Config{
		Steps:   make([]tracking.Step, len(e.trackCfg.Steps)),
		Drivers: make([]tracking.Driver, len(e.trackCfg.Drivers)),
	}
	copy(cp.Steps, e.trackCfg.Steps)
	copy(cp.Drivers, e.trackCfg.Drivers)
	return cp
}

// BookingRequest is an incoming booking with its payment result.
type BookingRequest struct {
	OwnerID      string
	FuelType     string
	Gallons      float64
	FullTank     bool
	Address      string
	ScheduledFor string
	VehicleMake  string
	VehicleModel string
	VehicleColor string
	VehicleYear  string
	PaymentOK    bool
	PaymentRef   string
}

// CreateOrder validates a booking, prices it, and persists a new order
// at the first configured step. A failed payment creates nothing.
func (e *Engine) CreateOrder(req BookingRequest) (*store.Order, error) {
	if !req.PaymentOK {
		return nil, ErrPaymentRequired
	}
	price, err := e.prices.Quote(req.FuelType, req.Gallons, req.FullTank)
	if err != nil {
		return nil, err
	}

	steps := tracking.Sorted(e.TrackingConfig().Steps)
	o := &store.Order{
		ID:           uuid.New().String(),
		OwnerID:      req.OwnerID,
		FuelType:     req.FuelType,
		Gallons:      req.Gallons,
		FullTank:     req.FullTank,
		Price:        price,
		Address:      req.Address,
		ScheduledFor: req.ScheduledFor,
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleColor: req.VehicleColor,
		VehicleYear:  req.VehicleYear,
		Status:       steps[0].Key,
		PaymentRef:   req.PaymentRef,
	}
	if err := e.db.CreateOrder(o); err != nil {
		return nil, err
	}

	e.enqueueEvent(messaging.MsgOrderCreated, messaging.OrderCreated{
		OrderID: o.ID, FuelType: o.FuelType, Gallons: o.Gallons,
		FullTank: o.FullTank, Price: o.Price,
	})
	e.Events.Emit(Event{Type: EventOrderCreated, Payload: OrderEvent{
		OrderID: o.ID, Status: o.Status,
	}})
	return o, nil
}

// AssignDriver copies the roster entry at rosterIndex onto the order,
// advances it to the next step, and starts the delivery simulation. The
// index is validated against the live roster before anything mutates.
func (e *Engine) AssignDriver(orderID string, rosterIndex int) error {
	cfg := e.TrackingConfig()
	if rosterIndex < 0 || rosterIndex >= len(cfg.Drivers) {
		return tracking.ErrIndexOutOfRange
	}
	driver := cfg.Drivers[rosterIndex]

	order, err := e.db.GetOrder(orderID)
	if err != nil {
		return err
	}
	if _, err := e.db.AssignOrderDriver(orderID, driver); err != nil {
		return err
	}

	steps := tracking.Sorted(cfg.Steps)
	if next, ok := tracking.Next(order.Status, steps); ok {
		if err := e.ApplyTransition(orderID, next, "driver assigned: "+driver.Name); err != nil {
			return err
		}
	}
	e.sim.Start(orderID)

	e.Events.Emit(Event{Type: EventDriverAssigned, Payload: OrderEvent{
		OrderID: orderID, DriverName: driver.Name,
	}})
	return nil
}

// AdvanceOrder is the manual admin override. It runs through the same
// reducer and persistence path as the simulator.
func (e *Engine) AdvanceOrder(orderID, actor string) error {
	order, err := e.db.GetOrder(orderID)
	if err != nil {
		return err
	}
	steps := tracking.Sorted(e.TrackingConfig().Steps)
	next, ok := tracking.Next(order.Status, steps)
	if !ok {
		return ErrCannotAdvance
	}
	if err := e.ApplyTransition(orderID, next, "manual advance"); err != nil {
		return err
	}
	e.db.AppendAudit(actor, "order.advance", fmt.Sprintf("%s -> %s", orderID, next))
	return nil
}

// ApplyTransition persists a status change, stamping the delivery time
// exactly once when the terminal step is reached, then emits events and
// queues outbound messages.
func (e *Engine) ApplyTransition(orderID, next, note string) error {
	steps := tracking.Sorted(e.TrackingConfig().Steps)
	terminal := tracking.IsTerminal(next, steps)

	ok, err := e.db.UpdateOrderStatus(orderID, next, terminal, note)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrOrderNotFound
	}

	e.enqueueEvent(messaging.MsgOrderStatus, messaging.OrderStatus{
		OrderID: orderID, Status: next, Detail: note,
	})
	e.Events.Emit(Event{Type: EventOrderStatusChanged, Payload: OrderEvent{
		OrderID: orderID, Status: next, Detail: note,
	}})

	if terminal {
		if order, err := e.db.GetOrder(orderID); err == nil && order.DeliveredAt != nil {
			e.enqueueEvent(messaging.MsgOrderDelivered, messaging.OrderDelivered{
				OrderID: orderID, DeliveredAt: *order.DeliveredAt,
			})
		}
		e.Events.Emit(Event{Type: EventOrderDelivered, Payload: OrderEvent{
			OrderID: orderID, Status: next,
		}})
	}
	return nil
}

// ClearOrders wipes every order. Destructive, admin only.
func (e *Engine) ClearOrders(actor string) error {
	orders, err := e.db.ListOrders("", 0)
	if err != nil {
		return err
	}
	for _, o := range orders {
		e.sim.Cancel(o.ID)
	}
	if err := e.db.ClearOrders(); err != nil {
		return err
	}
	if e.view != nil {
		e.view.FlushAll()
	}
	e.db.AppendAudit(actor, "orders.clear", fmt.Sprintf("wiped %d orders", len(orders)))
	e.enqueueEvent(messaging.MsgOrdersCleared, messaging.OrdersCleared{Count: len(orders)})
	e.Events.Emit(Event{Type: EventOrdersCleared, Payload: OrdersClearedEvent{Count: len(orders)}})
	return nil
}

// mutateTrackingConfig applies fn to a copy, validates, persists, and
// only then swaps the live configuration. A failing save leaves the old
// configuration in place.
func (e *Engine) mutateTrackingConfig(actor, action string, fn func(*tracking.Config) error) error {
	cp := e.TrackingConfig()
	if err := fn(cp); err != nil {
		return err
	}
	if err := e.db.SaveTrackingConfig(cp); err != nil {
		return err
	}
	e.trackMu.Lock()
	e.trackCfg = cp
	e.trackMu.Unlock()

	e.db.AppendAudit(actor, "config."+action, "")
	e.Events.Emit(Event{Type: EventConfigUpdated, Payload: ConfigUpdatedEvent{Action: action}})
	return nil
}

func (e *Engine) ReorderSteps(actor string, from, to int) error {
	return e.mutateTrackingConfig(actor, "steps.reorder", func(c *tracking.Config) error {
		return c.ReorderSteps(from, to)
	})
}

func (e *Engine) SetStepLabel(actor string, index int, label string) error {
	return e.mutateTrackingConfig(actor, "steps.label", func(c *tracking.Config) error {
		return c.SetStepLabel(index, label)
	})
}

func (e *Engine) SetStepDescription(actor string, index int, description string) error {
	return e.mutateTrackingConfig(actor, "steps.description", func(c *tracking.Config) error {
		return c.SetStepDescription(index, description)
	})
}

func (e *Engine) AddDriver(actor string, d tracking.Driver) error {
	return e.mutateTrackingConfig(actor, "drivers.add", func(c *tracking.Config) error {
		return c.AddDriver(d)
	})
}

func (e *Engine) UpdateDriver(actor string, index int, field tracking.DriverField, value string) error {
	return e.mutateTrackingConfig(actor, "drivers.update", func(c *tracking.Config) error {
		return c.UpdateDriver(index, field, value)
	})
}

func (e *Engine) RemoveDriver(actor string, index int) error {
	return e.mutateTrackingConfig(actor, "drivers.remove", func(c *tracking.Config) error {
		return c.RemoveDriver(index)
	})
}

// applySimulated is the simulator's transition callback. It publishes
// the live display strings then runs the shared transition path.
func (e *Engine) applySimulated(t simulate.Transition) error {
	if err := e.ApplyTransition(t.OrderID, t.Status, "simulated"); err != nil {
		return err
	}
	if e.view != nil && (t.Distance != "" || t.ETA != "") {
		e.view.SetLive(t.OrderID, t.Status, t.Distance, t.ETA)
	}
	return nil
}

func (e *Engine) onSimConflict(orderID, expected, actual string) {
	e.logFn("engine: simulation conflict on %s: expected %s, found %s", orderID, expected, actual)
	e.Events.Emit(Event{Type: EventSimulationConflict, Payload: ConflictEvent{
		OrderID: orderID, Expected: expected, Actual: actual,
	}})
}

// resumeActiveOrders restarts simulation for orders that were mid
// delivery when the process last stopped.
func (e *Engine) resumeActiveOrders() {
	steps := tracking.Sorted(e.TrackingConfig().Steps)
	orders, err := e.db.ListOrders("", 0)
	if err != nil {
		e.logFn("engine: resume active orders: %v", err)
		return
	}
	resumed := 0
	for _, o := range orders {
		if o.Driver == nil || tracking.IsTerminal(o.Status, steps) {
			continue
		}
		if _, ok := tracking.Next(o.Status, steps); !ok {
			continue
		}
		e.sim.Start(o.ID)
		resumed++
	}
	if resumed > 0 {
		e.logFn("engine: resumed %d in-flight deliveries", resumed)
	}
}

// enqueueEvent stores the bare payload in the outbox; the drainer wraps
// it in an envelope (id, timestamp) at publish time.
func (e *Engine) enqueueEvent(msgType string, payload any) {
	if e.msgClient == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		e.logFn("engine: encode %s: %v", msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.EventsTopic, msgType, data); err != nil {
		e.logFn("engine: enqueue %s: %v", msgType, err)
	}
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
