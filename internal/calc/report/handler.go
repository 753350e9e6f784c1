package report

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"NeoNest/internal/archive"
	"NeoNest/internal/auth"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/metrics"

	"go.uber.org/zap"
)

const archiveTimeout = 30 * time.Second

type Handler struct {
	Defaults func(*http.Request) tpn.Inputs
	// Archive, when set, receives a copy of every sheet after the response
	// is written.
	Archive archive.Archiver
	Metrics *metrics.Recorder
	Log     *zap.Logger
	Now     func() time.Time

	wg sync.WaitGroup
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	sheet := OrderSheet{Inputs: tpn.Defaults()}
	if h.Defaults != nil {
		sheet.Inputs = h.Defaults(r)
	}
	if err := json.NewDecoder(r.Body).Decode(&sheet); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	res, err := tpn.Calculate(sheet.Inputs)
	if err != nil {
		h.Metrics.Calc("tpn_report", "invalid")
		tpn.WriteValidation(w, err)
		return
	}
	sheet.Result = res
	at := h.now()
	if sheet.Date == "" {
		sheet.Date = at.Format("2006-01-02")
	}

	var buf bytes.Buffer
	if err := Render(&buf, sheet, at); err != nil {
		h.logger().Error("render order sheet", zap.Error(err))
		http.Error(w, "Report generation error", http.StatusInternalServerError)
		return
	}
	h.Metrics.Calc("tpn_report", "ok")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"tpn-order.pdf\"")
	w.Write(buf.Bytes())

	if h.Archive != nil {
		device, _ := auth.DeviceID(r.Context())
		h.archive(r.Context(), archive.Key(device, at), buf.Bytes())
	}
}

func (h *Handler) archive(ctx context.Context, key string, pdf []byte) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		err := h.Archive.Put(ctx, key, pdf, "application/pdf")
		h.Metrics.Background("archive", err)
		if err != nil {
			h.logger().Warn("archive order sheet", zap.String("key", key), zap.Error(err))
		}
	}()
}

// Wait blocks until pending archive uploads finish.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
