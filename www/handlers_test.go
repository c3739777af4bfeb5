package www

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fuelninja/config"
	"fuelninja/engine"
	"fuelninja/store"
	"fuelninja/tracking"
	"fuelninja/viewstate"
)

type testServer struct {
	router  http.Handler
	engine  *engine.Engine
	cookies []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
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

	eng := engine.New(engine.Config{
		AppConfig:  config.Defaults(),
		ConfigPath: filepath.Join(dir, "config.yaml"),
		DB:         db,
		View:       viewstate.NewManager(db, nil),
	})
	eng.Start()
	t.Cleanup(eng.Stop)

	router, stop := NewRouter(eng)
	t.Cleanup(stop)
	return &testServer{router: router, engine: eng}
}

// do issues a request, carrying any cookies collected so far.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		s.cookies = append(s.cookies, c)
	}
	return w
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "admin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

func validBooking() map[string]any {
	return map[string]any{
		"fuel_type":     "regular",
		"gallons":       10,
		"address":       "123 Main St",
		"scheduled_for": "Today, ASAP",
		"vehicle_make":  "Toyota",
		"vehicle_model": "Tacoma",
		"payment_ok":    true,
		"payment_ref":   "pay-1",
	}
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/bookings", validBooking())
	if w.Code != http.StatusCreated {
		t.Fatalf("booking: status %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	order := resp["order"].(map[string]any)
	id := order["id"].(string)
	if id == "" {
		t.Fatal("order id missing")
	}
	if order["price"] != "35.90" {
		t.Errorf("price = %v, want 35.90", order["price"])
	}

	// The customer cookie scopes "my orders".
	w = s.do(t, http.MethodGet, "/api/orders?mine=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("mine: status %d", w.Code)
	}
	resp = decode(t, w)
	if orders := resp["orders"].([]any); len(orders) != 1 {
		t.Errorf("my orders = %d, want 1", len(orders))
	}

	// Tracking view for the new order.
	w = s.do(t, http.MethodGet, "/api/tracking?id="+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tracking: status %d", w.Code)
	}
	tv := decode(t, w)["tracking"].(map[string]any)
	if tv["state"] != "active" {
		t.Errorf("tracking state = %v, want active", tv["state"])
	}
}

func TestBookingPaymentRequired(t *testing.T) {
	s := newTestServer(t)
	b := validBooking()
	b["payment_ok"] = false
	w := s.do(t, http.MethodPost, "/api/bookings", b)
	if w.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want 402", w.Code)
	}
}

func TestTrackingUnknownOrder(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/tracking?id=nope", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	tv := decode(t, w)["tracking"].(map[string]any)
	if tv["state"] != "none" {
		t.Errorf("state = %v, want none", tv["state"])
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/orders/detail?id=nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/orders/assign"},
		{http.MethodPost, "/api/orders/advance"},
		{http.MethodPost, "/api/orders/clear"},
		{http.MethodGet, "/api/config/tracking"},
		{http.MethodPost, "/config/save"},
	} {
		w := s.do(t, route.method, route.path, map[string]any{})
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", route.method, route.path, w.Code)
		}
	}

	w := s.do(t, http.MethodGet, "/api/orders", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("full listing without session: status = %d, want 401", w.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/login", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAdminOrderManagement(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	// Seed a driver on the roster.
	w := s.do(t, http.MethodPost, "/api/config/tracking", map[string]any{
		"action": "add_driver",
		"driver": map[string]any{"name": "Alex", "eta": "15 min"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add driver: status %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/bookings", validBooking())
	if w.Code != http.StatusCreated {
		t.Fatalf("booking: status %d", w.Code)
	}
	id := decode(t, w)["order"].(map[string]any)["id"].(string)

	// Out-of-range driver index is rejected before mutation.
	w = s.do(t, http.MethodPost, "/api/orders/assign", map[string]any{
		"order_id": id, "driver_index": 5,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad index: status = %d, want 400", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/orders/assign", map[string]any{
		"order_id": id, "driver_index": 0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: status %d: %s", w.Code, w.Body.String())
	}
	order, err := s.engine.DB().GetOrder(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Status != tracking.StepConfirmed {
		t.Errorf("status = %q, want confirmed", order.Status)
	}
	if order.Driver == nil || order.Driver.Name != "Alex" {
		t.Errorf("driver = %+v", order.Driver)
	}

	w = s.do(t, http.MethodPost, "/api/orders/advance", map[string]any{"order_id": id})
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/orders/advance", map[string]any{"order_id": "nope"})
	if w.Code != http.StatusNotFound {
		t.Errorf("advance unknown: status = %d, want 404", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/orders/clear", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: status %d", w.Code)
	}
	orders, _ := s.engine.DB().ListOrders("", 0)
	if len(orders) != 0 {
		t.Error("orders should be wiped")
	}
}

func TestTrackingConfigMutations(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	w := s.do(t, http.MethodPost, "/api/config/tracking", map[string]any{
		"action": "set_step_label", "index": 2, "value": "On The Way",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("label: status %d: %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/config/tracking", nil)
	cfg := decode(t, w)["config"].(map[string]any)
	steps := cfg["steps"].([]any)
	if steps[2].(map[string]any)["label"] != "On The Way" {
		t.Errorf("steps = %v", steps)
	}

	w = s.do(t, http.MethodPost, "/api/config/tracking", map[string]any{
		"action": "set_step_label", "index": 99, "value": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range: status = %d, want 400", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/config/tracking", map[string]any{"action": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action: status = %d, want 400", w.Code)
	}
}
