package tpn

import (
	"encoding/json"
	"net/http"

	"NeoNest/internal/metrics"

	"go.uber.org/zap"
)

type Handler struct {
	// Defaults fill any field the request leaves out.
	Defaults Inputs
	Metrics  *metrics.Recorder
	Log      *zap.Logger
}

func NewHandler(defaults Inputs, m *metrics.Recorder, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Defaults: defaults, Metrics: m, Log: log}
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	input := h.Defaults
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := Calculate(input)
	if err != nil {
		WriteValidation(w, err)
		if ve, ok := AsValidation(err); ok {
			h.Metrics.Calc("tpn", "invalid")
			h.Metrics.ValidationErrors("tpn", len(ve.Errors))
			h.Log.Debug("tpn inputs rejected", zap.Strings("errors", ve.Errors))
		}
		return
	}
	h.Metrics.Calc("tpn", "ok")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// WriteValidation renders a calculation error as {"errors": [...]} with 422,
// or a plain 400 for anything else.
func WriteValidation(w http.ResponseWriter, err error) {
	ve, ok := AsValidation(err)
	if !ok {
		http.Error(w, "Calculation error", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(ve)
}
