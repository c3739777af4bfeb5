package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fuelninja/config"
	"fuelninja/store"
	"fuelninja/tracking"
	"fuelninja/viewstate"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	appCfg := config.Defaults()
	appCfg.Simulator.TickInterval = 15 * time.Millisecond

	e := New(Config{
		AppConfig: appCfg,
		DB:        db,
		View:      viewstate.NewManager(db, nil),
	})
	e.Start()
	t.Cleanup(e.Stop)
	return e
}

func booking() BookingRequest {
	return BookingRequest{
		OwnerID:      "cust-1",
		FuelType:     "regular",
		Gallons:      10,
		Address:      "123 Main St",
		ScheduledFor: "Today, ASAP",
		VehicleMake:  "Toyota",
		VehicleModel: "Tacoma",
		PaymentOK:    true,
		PaymentRef:   "pay-1",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestCreateOrder(t *testing.T) {
	e := testEngine(t)

	o, err := e.CreateOrder(booking())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != tracking.StepPending {
		t.Errorf("status = %q, want pending", o.Status)
	}
	if o.Price != "35.90" {
		t.Errorf("price = %q, want 35.90", o.Price)
	}
	if o.ID == "" {
		t.Error("order id should be assigned")
	}

	got, err := e.DB().GetOrder(o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OwnerID != "cust-1" {
		t.Errorf("owner = %q", got.OwnerID)
	}
}

func TestCreateOrderRequiresPayment(t *testing.T) {
	e := testEngine(t)

	req := booking()
	req.PaymentOK = false
	if _, err := e.CreateOrder(req); !errors.Is(err, ErrPaymentRequired) {
		t.Errorf("expected ErrPaymentRequired, got %v", err)
	}
	orders, _ := e.DB().ListOrders("", 0)
	if len(orders) != 0 {
		t.Error("failed payment must not create a record")
	}
}

func TestCreateOrderRejectsBadBooking(t *testing.T) {
	e := testEngine(t)

	req := booking()
	req.FuelType = "kerosene"
	if _, err := e.CreateOrder(req); err == nil {
		t.Error("unknown fuel type should be rejected")
	}
	req = booking()
	req.Gallons = 0
	req.FullTank = false
	if _, err := e.CreateOrder(req); err == nil {
		t.Error("zero gallons without full tank should be rejected")
	}
}

func TestAssignDriverValidatesIndex(t *testing.T) {
	e := testEngine(t)

	o, err := e.CreateOrder(booking())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.AssignDriver(o.ID, 0); !errors.Is(err, tracking.ErrIndexOutOfRange) {
		t.Errorf("empty roster assign: %v", err)
	}
	got, _ := e.DB().GetOrder(o.ID)
	if got.Status != tracking.StepPending || got.Driver != nil {
		t.Error("rejected assignment must not mutate the order")
	}
}

func TestAssignDriverAdvancesAndSimulates(t *testing.T) {
	e := testEngine(t)

	if err := e.AddDriver("admin", tracking.Driver{Name: "Alex", ETA: "15 min"}); err != nil {
		t.Fatalf("add driver: %v", err)
	}
	o, err := e.CreateOrder(booking())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var mu sync.Mutex
	var seen []string
	e.Events.SubscribeTypes(func(evt Event) {
		p := evt.Payload.(OrderEvent)
		mu.Lock()
		seen = append(seen, p.Status)
		mu.Unlock()
	}, EventOrderStatusChanged)

	if err := e.AssignDriver(o.ID, 0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := e.DB().GetOrder(o.ID)
	if got.Status != tracking.StepConfirmed {
		t.Errorf("status after assign = %q, want confirmed", got.Status)
	}
	if got.Driver == nil || got.Driver.Name != "Alex" {
		t.Errorf("driver = %+v, want Alex", got.Driver)
	}

	// The simulator replays the remaining steps to completion.
	if !waitFor(t, 3*time.Second, func() bool {
		got, err := e.DB().GetOrder(o.ID)
		return err == nil && got.DeliveredAt != nil
	}) {
		t.Fatal("order never delivered")
	}
	mu.Lock()
	statuses := append([]string(nil), seen...)
	mu.Unlock()
	want := []string{tracking.StepConfirmed, tracking.StepEnRoute, tracking.StepArriving, tracking.StepDelivered}
	if len(statuses) != len(want) {
		t.Fatalf("status events = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("status events = %v, want %v", statuses, want)
		}
	}
}

func TestAdvanceOrderManual(t *testing.T) {
	e := testEngine(t)

	o, err := e.CreateOrder(booking())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	steps := tracking.Sorted(e.TrackingConfig().Steps)
	for i := 1; i < len(steps); i++ {
		if err := e.AdvanceOrder(o.ID, "admin"); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	got, _ := e.DB().GetOrder(o.ID)
	if got.Status != tracking.StepDelivered {
		t.Errorf("status = %q, want delivered", got.Status)
	}
	if got.DeliveredAt == nil {
		t.Error("delivered_at should be stamped")
	}
	if err := e.AdvanceOrder(o.ID, "admin"); !errors.Is(err, ErrCannotAdvance) {
		t.Errorf("advance past terminal: %v", err)
	}
}

func TestAdvanceOrderMissing(t *testing.T) {
	e := testEngine(t)
	if err := e.AdvanceOrder("nope", "admin"); !errors.Is(err, store.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestClearOrders(t *testing.T) {
	e := testEngine(t)

	if _, err := e.CreateOrder(booking()); err != nil {
		t.Fatalf("create: %v", err)
	}
	var cleared OrdersClearedEvent
	e.Events.SubscribeTypes(func(evt Event) {
		cleared = evt.Payload.(OrdersClearedEvent)
	}, EventOrdersCleared)

	if err := e.ClearOrders("admin"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	orders, _ := e.DB().ListOrders("", 0)
	if len(orders) != 0 {
		t.Error("orders should be wiped")
	}
	if cleared.Count != 1 {
		t.Errorf("cleared count = %d, want 1", cleared.Count)
	}
	audit, _ := e.DB().ListAuditLog(5)
	if len(audit) == 0 || audit[0].Action != "orders.clear" {
		t.Errorf("audit = %+v", audit)
	}
}

func TestConfigMutationsPersist(t *testing.T) {
	e := testEngine(t)

	events := 0
	e.Events.SubscribeTypes(func(evt Event) { events++ }, EventConfigUpdated)

	if err := e.SetStepLabel("admin", 2, "On The Way"); err != nil {
		t.Fatalf("label: %v", err)
	}
	if err := e.ReorderSteps("admin", 0, 0); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if err := e.AddDriver("admin", tracking.Driver{Name: "Sam"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if events != 3 {
		t.Errorf("config events = %d, want 3", events)
	}

	// The persisted blob reflects the mutations.
	persisted := e.DB().LoadTrackingConfig()
	if persisted.Steps[2].Label != "On The Way" {
		t.Errorf("persisted label = %q", persisted.Steps[2].Label)
	}
	if len(persisted.Drivers) != 1 || persisted.Drivers[0].Name != "Sam" {
		t.Errorf("persisted roster = %+v", persisted.Drivers)
	}

	// Invalid mutation leaves the live config untouched.
	if err := e.RemoveDriver("admin", 9); !errors.Is(err, tracking.ErrIndexOutOfRange) {
		t.Errorf("remove out of range: %v", err)
	}
	if len(e.TrackingConfig().Drivers) != 1 {
		t.Error("failed mutation must not change the roster")
	}
}

func TestTrackingConfigSnapshotIsolated(t *testing.T) {
	e := testEngine(t)

	snap := e.TrackingConfig()
	snap.Steps[0].Label = "hacked"
	if e.TrackingConfig().Steps[0].Label == "hacked" {
		t.Error("mutating a snapshot must not touch the live config")
	}
}
