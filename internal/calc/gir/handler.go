package gir

import (
	"encoding/json"
	"net/http"

	"NeoNest/internal/metrics"
)

type Handler struct {
	Metrics *metrics.Recorder
}

func (h *Handler) Calc(w http.ResponseWriter, r *http.Request) {
	input := DefaultInput()
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := Calculate(input)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.Metrics.Calc("gir", "invalid")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string][]string{"errors": {err.Error()}})
		return
	}
	h.Metrics.Calc("gir", "ok")
	json.NewEncoder(w).Encode(res)
}
