package www

import (
	"errors"
	"net/http"

	"fuelninja/config"
	"fuelninja/tracking"
)

func (h *Handlers) apiGetTrackingConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": h.engine.TrackingConfig()})
}

type trackingMutation struct {
	Action string `json:"action"`

	// reorder_steps
	From int `json:"from"`
	To   int `json:"to"`

	// set_step_label / set_step_description / update_driver / remove_driver
	Index int    `json:"index"`
	Value string `json:"value"`

	// update_driver
	Field string `json:"field"`

	// add_driver
	Driver *tracking.Driver `json:"driver"`
}

func (h *Handlers) apiMutateTrackingConfig(w http.ResponseWriter, r *http.Request) {
	var req trackingMutation
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := h.getUsername(r)

	var err error
	switch req.Action {
	case "reorder_steps":
		err = h.engine.ReorderSteps(actor, req.From, req.To)
	case "set_step_label":
		err = h.engine.SetStepLabel(actor, req.Index, req.Value)
	case "set_step_description":
		err = h.engine.SetStepDescription(actor, req.Index, req.Value)
	case "add_driver":
		if req.Driver == nil {
			writeError(w, http.StatusBadRequest, "driver required")
			return
		}
		err = h.engine.AddDriver(actor, *req.Driver)
	case "update_driver":
		field, ok := tracking.ParseDriverField(req.Field)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown driver field")
			return
		}
		err = h.engine.UpdateDriver(actor, req.Index, field, req.Value)
	case "remove_driver":
		err = h.engine.RemoveDriver(actor, req.Index)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	switch {
	case errors.Is(err, tracking.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index out of range")
	case errors.Is(err, tracking.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "driver name required")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": h.engine.TrackingConfig()})
	}
}

func (h *Handlers) apiAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.DB().ListAuditLog(100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "audit": entries})
}

type configSaveRequest struct {
	Messaging *config.MessagingConfig `json:"messaging"`
	Simulator *config.SimulatorConfig `json:"simulator"`
	Delivery  *config.DeliveryConfig  `json:"delivery"`
}

// handleConfigSave updates mutable application config sections, writes
// the yaml file, and hot-reloads messaging when its section changed.
func (h *Handlers) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	var req configSaveRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := h.engine.AppConfig()
	cfg.Lock()
	if req.Messaging != nil {
		cfg.Messaging = *req.Messaging
	}
	if req.Simulator != nil {
		cfg.Simulator = *req.Simulator
	}
	if req.Delivery != nil {
		cfg.Delivery = *req.Delivery
	}
	cfg.Unlock()

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if req.Messaging != nil {
		h.engine.ReconfigureMessaging()
	}
	h.engine.DB().AppendAudit(h.getUsername(r), "config.save", "application config updated")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
