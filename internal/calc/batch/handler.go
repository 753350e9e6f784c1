package batch

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/metrics"
)

const maxBody = 4 << 20

type Handler struct {
	// Defaults returns the prescription each item starts from, usually the
	// caller's saved defaults.
	Defaults func(*http.Request) tpn.Inputs
	Metrics  *metrics.Recorder
}

func (h *Handler) TPN(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defaults := tpn.Defaults()
	if h.Defaults != nil {
		defaults = h.Defaults(r)
	}
	items, err := Decode(body, defaults)
	if err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := Run(r.Context(), items)
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			http.Error(w, "No items", http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	Record(h.Metrics, res)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// Record counts each outcome of a finished batch.
func Record(m *metrics.Recorder, res Result) {
	for _, o := range res.Items {
		if o.Result != nil {
			m.Calc("tpn_batch", "ok")
			continue
		}
		m.Calc("tpn_batch", "invalid")
		m.ValidationErrors("tpn_batch", len(o.Errors))
	}
}
