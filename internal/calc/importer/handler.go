package importer

import (
	"encoding/json"
	"errors"
	"net/http"

	"NeoNest/internal/calc/batch"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/metrics"
)

const maxUpload = 8 << 20

type Handler struct {
	Defaults func(*http.Request) tpn.Inputs
	Metrics  *metrics.Recorder
}

type ImportResult struct {
	Count   int          `json:"count"`
	Skipped []RowError   `json:"skipped,omitempty"`
	Batch   batch.Result `json:"batch"`
}

func (h *Handler) TPN(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	defaults := tpn.Defaults()
	if h.Defaults != nil {
		defaults = h.Defaults(r)
	}
	items, skipped, err := ParseTPN(file, defaults)
	if err != nil {
		if errors.Is(err, ErrEmptySheet) {
			http.Error(w, "Empty sheet", http.StatusBadRequest)
			return
		}
		http.Error(w, "Invalid file", http.StatusBadRequest)
		return
	}
	out := ImportResult{Skipped: skipped, Batch: batch.Result{Items: []batch.Outcome{}}}
	if len(items) > 0 {
		res, err := batch.Run(r.Context(), items)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		batch.Record(h.Metrics, res)
		out.Batch = res
	}
	out.Count = len(items)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
