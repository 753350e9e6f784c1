package nutrition

import (
	"encoding/json"
	"net/http"

	"NeoNest/internal/metrics"
)

type Handler struct {
	// Overrides returns the caller's nutrient table edits. Nil means the
	// factory table is used for every request.
	Overrides func(r *http.Request) (map[string]Override, error)
	Metrics   *metrics.Recorder
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	input := DefaultInput()
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	table := Factory()
	if h.Overrides != nil {
		ov, err := h.Overrides(r)
		if err != nil {
			http.Error(w, "Failed to load nutrient table", http.StatusInternalServerError)
			return
		}
		table = Merge(ov)
	}

	res, err := Calculate(input, table)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.Metrics.Calc("nutrition", "invalid")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string][]string{"errors": {err.Error()}})
		return
	}
	h.Metrics.Calc("nutrition", "ok")
	json.NewEncoder(w).Encode(res)
}
