// Package metrics exposes calculator and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	reg        *prometheus.Registry
	calcs      *prometheus.CounterVec
	validation *prometheus.CounterVec
	syncs      *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		calcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neonest",
			Name:      "calculations_total",
			Help:      "Calculations served, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		validation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neonest",
			Name:      "validation_errors_total",
			Help:      "Individual validation messages returned, by tool.",
		}, []string{"tool"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neonest",
			Name:      "background_tasks_total",
			Help:      "Fire-and-forget persistence tasks, by task and outcome.",
		}, []string{"task", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neonest",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP latency by route template and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
	r.reg.MustRegister(r.calcs, r.validation, r.syncs, r.latency)
	return r
}

// Calc counts one calculation. outcome is "ok", "invalid" or "error".
func (r *Recorder) Calc(tool, outcome string) {
	if r == nil {
		return
	}
	r.calcs.WithLabelValues(tool, outcome).Inc()
}

func (r *Recorder) ValidationErrors(tool string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.validation.WithLabelValues(tool).Add(float64(n))
}

// Background counts a fire-and-forget task.
func (r *Recorder) Background(task string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.syncs.WithLabelValues(task, outcome).Inc()
}

// Gatherer exposes the registry for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware observes request latency labelled by the mux route template.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if r == nil {
			next.ServeHTTP(w, req)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		route := "unmatched"
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		r.latency.WithLabelValues(route, req.Method, strconv.Itoa(sw.status)).Observe(time.Since(start).Seconds())
	})
}
