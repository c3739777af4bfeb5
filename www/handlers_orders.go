package www

import (
	"errors"
	"net/http"

	"fuelninja/engine"
	"fuelninja/store"
	"fuelninja/tracking"
)

type bookingRequest struct {
	FuelType     string  `json:"fuel_type"`
	Gallons      float64 `json:"gallons"`
	FullTank     bool    `json:"full_tank"`
	Address      string  `json:"address"`
	ScheduledFor string  `json:"scheduled_for"`
	VehicleMake  string  `json:"vehicle_make"`
	VehicleModel string  `json:"vehicle_model"`
	VehicleColor string  `json:"vehicle_color"`
	VehicleYear  string  `json:"vehicle_year"`
	PaymentOK    bool    `json:"payment_ok"`
	PaymentRef   string  `json:"payment_ref"`
}

func (h *Handlers) apiCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := customerID(w, r, true)
	order, err := h.engine.CreateOrder(engine.BookingRequest{
		OwnerID:      owner,
		FuelType:     req.FuelType,
		Gallons:      req.Gallons,
		FullTank:     req.FullTank,
		Address:      req.Address,
		ScheduledFor: req.ScheduledFor,
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleColor: req.VehicleColor,
		VehicleYear:  req.VehicleYear,
		PaymentOK:    req.PaymentOK,
		PaymentRef:   req.PaymentRef,
	})
	if errors.Is(err, engine.ErrPaymentRequired) {
		writeError(w, http.StatusPaymentRequired, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "order": order})
}

// apiListOrders serves both surfaces: ?mine=1 scopes to the caller's
// customer cookie; the full listing requires an admin session.
func (h *Handlers) apiListOrders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("mine") == "1" {
		owner := customerID(w, r, false)
		orders, err := h.engine.DB().ListOrdersByOwner(owner)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "orders": orders})
		return
	}

	if !h.isAuthenticated(r) {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orders, err := h.engine.DB().ListOrders(r.URL.Query().Get("status"), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "orders": orders})
}

func (h *Handlers) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	order, err := h.engine.DB().GetOrder(id)
	if errors.Is(err, store.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order": order})
}

func (h *Handlers) apiTracking(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	view, err := h.builder.Build(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tracking": view})
}

func (h *Handlers) apiAssignDriver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID     string `json:"order_id"`
		DriverIndex int    `json:"driver_index"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.engine.AssignDriver(req.OrderID, req.DriverIndex)
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, tracking.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "driver index out of range")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *Handlers) apiAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := h.engine.AdvanceOrder(req.OrderID, h.getUsername(r))
	switch {
	case errors.Is(err, store.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, engine.ErrCannotAdvance):
		writeError(w, http.StatusConflict, "order cannot advance")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *Handlers) apiClearOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearOrders(h.getUsername(r)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handlers) apiOrderHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return
	}
	history, err := h.engine.DB().OrderHistory(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "history": history})
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	messaging := "disabled"
	if c := h.engine.MsgClient(); c != nil {
		if c.IsConnected() {
			messaging = "connected"
		} else {
			messaging = "disconnected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"messaging":   messaging,
		"sse_clients": h.eventHub.ClientCount(),
	})
}
