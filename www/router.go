package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"fuelninja/engine"
	"fuelninja/trackview"
)

type Handlers struct {
	engine   *engine.Engine
	builder  *trackview.Builder
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine: eng,
		builder: trackview.NewBuilder(eng.DB(), eng.View(), eng.TrackingConfig,
			eng.AppConfig().Delivery.ExpiryWindow),
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Session
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// Customer surface
	r.Post("/api/bookings", h.apiCreateBooking)
	r.Get("/api/orders", h.apiListOrders)
	r.Get("/api/orders/detail", h.apiGetOrder)
	r.Get("/api/tracking", h.apiTracking)
	r.Get("/api/health", h.apiHealthCheck)

	// Admin surface
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/orders/assign", h.apiAssignDriver)
		r.Post("/api/orders/advance", h.apiAdvanceOrder)
		r.Post("/api/orders/clear", h.apiClearOrders)
		r.Get("/api/orders/history", h.apiOrderHistory)
		r.Get("/api/config/tracking", h.apiGetTrackingConfig)
		r.Post("/api/config/tracking", h.apiMutateTrackingConfig)
		r.Get("/api/audit", h.apiAuditLog)
		r.Post("/config/save", h.handleConfigSave)
	})

	stopFn := func() {
		hub.Stop()
	}
	return r, stopFn
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.engine.DB().GetAdminUser(req.Username)
	if err != nil || !checkPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = req.Username
	if err := session.Save(r, w); err != nil {
		writeError(w, http.StatusInternalServerError, "session save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "username": req.Username})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
