package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NeoNest/internal/auth"
	"NeoNest/internal/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler proxies profile and feedback calls to the repository so clients
// never hold database credentials.
type Handler struct {
	Repo     repo.Repository
	Sessions *auth.Sessions
	Log      *zap.Logger
	Now      func() time.Time
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) logger() *zap.Logger {
	if h.Log != nil {
		return h.Log
	}
	return zap.NewNop()
}

// GetProfile looks a profile up by device, then by email. An email match
// moves the profile to the calling device. No match yields [].
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device_id required")
		return
	}
	ctx := r.Context()

	p, err := h.Repo.FindProfileByDevice(ctx, deviceID)
	if err == nil {
		writeJSON(w, http.StatusOK, []repo.Profile{p})
		return
	}
	if !errors.Is(err, repo.ErrNotFound) {
		h.logger().Error("profile lookup by device", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	if email == "" {
		writeJSON(w, http.StatusOK, []repo.Profile{})
		return
	}

	p, err = h.Repo.FindProfileByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusOK, []repo.Profile{})
		return
	}
	if err != nil {
		h.logger().Error("profile lookup by email", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := h.Repo.RelinkDevice(ctx, p.DeviceID, deviceID); err != nil {
		h.logger().Error("relink device", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.logger().Info("profile relinked", zap.String("from", p.DeviceID), zap.String("to", deviceID))
	p.DeviceID = deviceID
	writeJSON(w, http.StatusOK, []repo.Profile{p})
}

// SaveProfile upserts by device id, falling back to an email match that is
// re-linked to this device, and finally inserts. A caller with a valid
// device session always saves under the session's id and has its cookie
// renewed; proxy clients without one name their device in the body and get
// no cookie.
func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var p repo.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	session := ""
	if h.Sessions != nil {
		if id, err := h.Sessions.Verify(r); err == nil {
			session = id
		}
	}
	if session != "" {
		p.DeviceID = session
	}
	p.DeviceID = strings.TrimSpace(p.DeviceID)
	p.Email = strings.TrimSpace(p.Email)
	if p.DeviceID == "" {
		writeErr(w, http.StatusBadRequest, "device_id required")
		return
	}
	ctx := r.Context()

	_, err := h.Repo.FindProfileByDevice(ctx, p.DeviceID)
	switch {
	case errors.Is(err, repo.ErrNotFound) && p.Email != "":
		old, ferr := h.Repo.FindProfileByEmail(ctx, p.Email)
		if ferr == nil {
			err = h.Repo.RelinkDevice(ctx, old.DeviceID, p.DeviceID)
		} else if !errors.Is(ferr, repo.ErrNotFound) {
			err = ferr
		} else {
			err = nil
		}
	case errors.Is(err, repo.ErrNotFound):
		err = nil
	}
	if err == nil {
		err = h.Repo.UpsertProfile(ctx, p)
	}
	if err != nil {
		h.logger().Error("save profile", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	if session != "" {
		if err := h.Sessions.Issue(w, session); err != nil {
			h.logger().Warn("issue device cookie", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// SubmitFeedback stores one feedback message.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var f repo.Feedback
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeErr(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if f.Priority == "" {
		f.Priority = "Medium"
	}
	f.ID = 0
	f.NotifiedAt = nil
	f.CreatedAt = h.now().UTC()
	if _, err := h.Repo.InsertFeedback(r.Context(), f); err != nil {
		h.logger().Error("insert feedback", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Failed to save feedback")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type deviceResponse struct {
	DeviceID string `json:"device_id"`
}

// RegisterDevice mints a device id and its cookie. A requested id is only
// honoured when the caller already holds a valid session for it, which
// renews the cookie; any other request gets a fresh id.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceResponse
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	id := uuid.NewString()
	if current, err := h.Sessions.Verify(r); err == nil {
		if want := strings.TrimSpace(req.DeviceID); want == "" || want == current {
			id = current
		}
	}
	if err := h.Sessions.Issue(w, id); err != nil {
		h.logger().Error("issue device cookie", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{DeviceID: id})
}

// ListFeedback is the operator view of recent feedback.
func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeErr(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, 500)
	}
	list, err := h.Repo.ListFeedback(r.Context(), limit)
	if err != nil {
		h.logger().Error("list feedback", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
