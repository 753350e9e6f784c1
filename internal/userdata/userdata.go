// Package userdata serves the per-device records kept on the server:
// saved TPN defaults, history, nutrition audits and nutrient table edits.
package userdata

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"NeoNest/internal/auth"
	"NeoNest/internal/calc/importer"
	"NeoNest/internal/calc/nutrition"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/metrics"
	"NeoNest/internal/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Store storage.Store
	// Defaults is the server-wide factory prescription.
	Defaults tpn.Inputs
	Metrics  *metrics.Recorder
	Log      *zap.Logger
	Now      func() time.Time
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// store is the caller's slice of the shared store. Routes are mounted
// behind auth.Sessions.Middleware, so a device id is always present.
func (h *Handler) store(r *http.Request) storage.Store {
	device, _ := auth.DeviceID(r.Context())
	return storage.Scoped(h.Store, device)
}

// TPNDefaults returns the caller's saved defaults, or the server defaults
// when none are saved or they cannot be read.
func (h *Handler) TPNDefaults(r *http.Request) tpn.Inputs {
	d := h.Defaults
	err := storage.LoadJSON(r.Context(), h.store(r), storage.KeyTPNDefaults, &d)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger().Warn("load saved defaults", zap.Error(err))
		}
		return h.Defaults
	}
	return d
}

// NutrientOverrides returns the caller's nutrient table edits.
func (h *Handler) NutrientOverrides(r *http.Request) (map[string]nutrition.Override, error) {
	ov := map[string]nutrition.Override{}
	err := storage.LoadJSON(r.Context(), h.store(r), storage.KeyNutritionDB, &ov)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return ov, nil
}

func (h *Handler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.TPNDefaults(r))
}

// PutDefaults applies a partial record over the current defaults and keeps
// it only if the engine accepts it.
func (h *Handler) PutDefaults(w http.ResponseWriter, r *http.Request) {
	d := h.TPNDefaults(r)
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if _, err := tpn.Calculate(d); err != nil {
		tpn.WriteValidation(w, err)
		return
	}
	if err := storage.SaveJSON(r.Context(), h.store(r), storage.KeyTPNDefaults, d); err != nil {
		h.logger().Error("save defaults", zap.Error(err))
		http.Error(w, "Failed to save defaults", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ResetDefaults forgets the saved defaults.
func (h *Handler) ResetDefaults(w http.ResponseWriter, r *http.Request) {
	if err := h.store(r).Delete(r.Context(), storage.KeyTPNDefaults); err != nil {
		h.logger().Error("reset defaults", zap.Error(err))
		http.Error(w, "Failed to reset defaults", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.Defaults)
}

func historyKey(r *http.Request) (string, bool) {
	switch mux.Vars(r)["kind"] {
	case "", "tpn":
		return storage.KeyBabyHistory, true
	case "audit":
		return storage.KeyNutAuditHistory, true
	}
	return "", false
}

// GetHistory lists saved entries, or suggestions when q (name) or id
// (patient id prefix) is given.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := historyKey(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	entries, err := storage.LoadHistory(r.Context(), h.store(r), key, h.now())
	if err != nil {
		h.logger().Error("load history", zap.String("key", key), zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	switch {
	case q.Get("q") != "":
		entries = storage.SuggestByName(entries, q.Get("q"))
	case q.Get("id") != "":
		entries = storage.SuggestByID(entries, q.Get("id"))
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) PostHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := historyKey(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	var e storage.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil || len(e.Inputs) == 0 {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	e.ID = ""
	e.TS = time.Time{}
	list, err := storage.AppendHistory(r.Context(), h.store(r), key, e, h.now())
	h.Metrics.Background("history_save", err)
	if err != nil {
		h.logger().Error("save history", zap.String("key", key), zap.Error(err))
		http.Error(w, "Failed to save history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list[0])
}

// ExportHistory sends TPN history as an xlsx workbook.
func (h *Handler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := storage.LoadHistory(r.Context(), h.store(r), storage.KeyBabyHistory, h.now())
	if err != nil {
		h.logger().Error("load history", zap.Error(err))
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\"tpn-history.xlsx\"")
	if err := importer.WriteHistory(w, entries); err != nil {
		h.logger().Error("write history workbook", zap.Error(err))
	}
}

// GetNutritionDB returns the merged nutrient table.
func (h *Handler) GetNutritionDB(w http.ResponseWriter, r *http.Request) {
	ov, err := h.NutrientOverrides(r)
	if err != nil {
		h.logger().Error("load nutrient table", zap.Error(err))
		http.Error(w, "Failed to load nutrient table", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nutrition.Merge(ov))
}

// PutNutritionDB replaces the caller's edits. Keys not in the factory
// table are dropped.
func (h *Handler) PutNutritionDB(w http.ResponseWriter, r *http.Request) {
	var ov map[string]nutrition.Override
	if err := json.NewDecoder(r.Body).Decode(&ov); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	known := map[string]bool{}
	for _, n := range nutrition.Factory() {
		known[n.Key] = true
	}
	for k := range ov {
		if !known[k] {
			delete(ov, k)
		}
	}
	if err := storage.SaveJSON(r.Context(), h.store(r), storage.KeyNutritionDB, ov); err != nil {
		h.logger().Error("save nutrient table", zap.Error(err))
		http.Error(w, "Failed to save nutrient table", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, nutrition.Merge(ov))
}

// Routes mounts the handlers on r, which must already require a device
// session.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/defaults", h.GetDefaults).Methods(http.MethodGet)
	r.HandleFunc("/defaults", h.PutDefaults).Methods(http.MethodPut)
	r.HandleFunc("/defaults", h.ResetDefaults).Methods(http.MethodDelete)
	r.HandleFunc("/history.xlsx", h.ExportHistory).Methods(http.MethodGet)
	r.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/history", h.PostHistory).Methods(http.MethodPost)
	r.HandleFunc("/history/{kind}", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/history/{kind}", h.PostHistory).Methods(http.MethodPost)
	r.HandleFunc("/nutrition-db", h.GetNutritionDB).Methods(http.MethodGet)
	r.HandleFunc("/nutrition-db", h.PutNutritionDB).Methods(http.MethodPut)
}
