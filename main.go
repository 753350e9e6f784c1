package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NeoNest/internal/archive"
	"NeoNest/internal/auth"
	"NeoNest/internal/calc/batch"
	"NeoNest/internal/calc/gir"
	"NeoNest/internal/calc/importer"
	"NeoNest/internal/calc/nutrition"
	"NeoNest/internal/calc/report"
	"NeoNest/internal/calc/tpn"
	"NeoNest/internal/config"
	"NeoNest/internal/metrics"
	"NeoNest/internal/profile"
	"NeoNest/internal/repo"
	"NeoNest/internal/storage"
	"NeoNest/internal/userdata"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App holds everything the routes need.
type App struct {
	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Recorder
	Repo    repo.Repository
	Store   storage.Store
	Archive archive.Archiver
}

func CORS(mux *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sr.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// HandleList mounts every route on mux. The returned func blocks until
// background uploads started by requests have finished.
func HandleList(mux *mux.Router, app *App) (drain func()) {
	sessions := &auth.Sessions{Key: []byte(app.Cfg.TokenKey), Secure: app.Cfg.TLSCert != "", Log: app.Log}
	limiter := auth.NewIPRateLimiter(5, 20)

	mux.Use(app.Metrics.Middleware, logRequests(app.Log))
	mux.Handle("/metrics", app.Metrics.Handler()).Methods(http.MethodGet)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := mux.PathPrefix("/api").Subrouter()
	api.Use(limiter.LimitMiddleware)

	tpnH := tpn.NewHandler(app.Cfg.TPNDefaults, app.Metrics, app.Log)
	girH := &gir.Handler{Metrics: app.Metrics}
	nutritionH := &nutrition.Handler{Metrics: app.Metrics}
	api.HandleFunc("/tools/tpn/calc", tpnH.Calc).Methods(http.MethodPost)
	api.HandleFunc("/tools/gir/calc", girH.Calc).Methods(http.MethodPost)
	api.HandleFunc("/tools/nutrition/calc", nutritionH.Calc).Methods(http.MethodPost)

	profileH := &profile.Handler{Repo: app.Repo, Sessions: sessions, Log: app.Log}
	api.HandleFunc("/device", profileH.RegisterDevice).Methods(http.MethodPost)
	api.HandleFunc("/profile", profileH.GetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profile", profileH.SaveProfile).Methods(http.MethodPost)
	api.HandleFunc("/feedback", profileH.SubmitFeedback).Methods(http.MethodPost)
	api.Handle("/admin/feedback", auth.AdminBasicAuth(app.Cfg.AdminUser, app.Cfg.AdminPasswordHash,
		http.HandlerFunc(profileH.ListFeedback))).Methods(http.MethodGet)

	secureApi := api.PathPrefix("/user").Subrouter()
	secureApi.Use(sessions.Middleware)

	userH := &userdata.Handler{Store: app.Store, Defaults: app.Cfg.TPNDefaults, Metrics: app.Metrics, Log: app.Log}
	userH.Routes(secureApi)

	batchH := &batch.Handler{Defaults: userH.TPNDefaults, Metrics: app.Metrics}
	importH := &importer.Handler{Defaults: userH.TPNDefaults, Metrics: app.Metrics}
	reportH := &report.Handler{Defaults: userH.TPNDefaults, Archive: app.Archive, Metrics: app.Metrics, Log: app.Log}
	userNutrition := &nutrition.Handler{Overrides: userH.NutrientOverrides, Metrics: app.Metrics}

	secureApi.HandleFunc("/tools/tpn/calc", func(w http.ResponseWriter, r *http.Request) {
		tpn.NewHandler(userH.TPNDefaults(r), app.Metrics, app.Log).Calc(w, r)
	}).Methods(http.MethodPost)
	secureApi.HandleFunc("/tools/tpn/batch", batchH.TPN).Methods(http.MethodPost)
	secureApi.HandleFunc("/tools/tpn/import", importH.TPN).Methods(http.MethodPost)
	secureApi.HandleFunc("/tools/tpn/report", reportH.Generate).Methods(http.MethodPost)
	secureApi.HandleFunc("/tools/nutrition/calc", userNutrition.Calc).Methods(http.MethodPost)

	return reportH.Wait
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openRepo(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, profiles and feedback are kept in memory")
		return repo.NewMemory(), func() {}, nil
	}
	db, err := auth.InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := repo.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return pg, func() { _ = db.Close() }, nil
}

func openArchive(ctx context.Context, cfg config.Config) (archive.Archiver, error) {
	if cfg.ArchiveBucket == "" {
		return nil, nil
	}
	s3, err := archive.NewS3(ctx, archive.Config{Bucket: cfg.ArchiveBucket, Region: cfg.ArchiveRegion, Endpoint: cfg.ArchiveEndpoint})
	if err != nil {
		return nil, err
	}
	return s3, nil
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	rp, closeRepo, err := openRepo(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	store, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	arc, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	app := &App{Cfg: cfg, Log: log, Metrics: metrics.New(), Repo: rp, Store: store, Archive: arc}

	router := mux.NewRouter()
	drain := HandleList(router, app)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           CORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("addr", cfg.Addr), zap.String("store", store.Path()))
		var err error
		if cfg.TLSCert != "" {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, closing active connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		drain()
		log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "neonest:", err)
		os.Exit(1)
	}
}
