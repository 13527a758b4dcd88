package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Simplici0/blackmass/internal/app"
	"github.com/Simplici0/blackmass/internal/casestudy"
	"github.com/Simplici0/blackmass/internal/config"
	"github.com/Simplici0/blackmass/internal/db"
	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/migrations"
	"github.com/Simplici0/blackmass/internal/observability"
	"github.com/Simplici0/blackmass/internal/seed"
	"github.com/Simplici0/blackmass/internal/store"
)

type server struct {
	// auth is nil when scenarios live in a single shared file.
	auth       *authService
	workspaces *app.Workspaces
	metrics    *observability.Metrics
	log        logging.Logger
	now        func() time.Time
}

func main() {
	cfg := config.Load()
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	ctx := context.Background()

	for _, w := range cfg.Warnings {
		log.Warn(ctx, "configuration", logging.String("detail", w))
	}
	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", logging.Err(err))
		os.Exit(1)
	}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		log.Error(ctx, "failed to register metrics", logging.Err(err))
		os.Exit(1)
	}

	cases, caseWarnings, err := casestudy.Load(ctx, cfg.CaseStudiesPath, log)
	if err != nil {
		log.Warn(ctx, "case studies unavailable", logging.Err(err))
		cases = casestudy.Library{}
	}
	metrics.DecodeWarned(len(caseWarnings))

	opts := []app.Option{app.WithLogger(log), app.WithMetrics(metrics), app.WithCaseStudies(cases, caseWarnings)}
	srv := &server{metrics: metrics, log: log, now: time.Now}

	switch cfg.Storage {
	case config.StorageSQLite:
		database, err := openDatabase(ctx, cfg, log)
		if err != nil {
			log.Error(ctx, "failed to prepare database", logging.Err(err))
			os.Exit(1)
		}
		defer database.Close()

		srv.auth = newAuthService(store.NewUsers(database), cfg.SessionSecret)
		srv.workspaces = app.NewPerUser(func(username string) store.Repository {
			return store.NewSQLiteStore(database, username, log, metrics)
		}, opts...)
	default:
		repo := store.NewFileStore(cfg.ScenariosPath,
			store.WithRepair(cfg.RepairJSON),
			store.WithLogger(log),
			store.WithMetrics(metrics),
		)
		srv.workspaces = app.NewShared(app.Open(ctx, repo, opts...))
	}

	addr := ":" + cfg.Port
	log.Info(ctx, "listening", logging.String("addr", addr), logging.String("storage", cfg.Storage))
	if err := http.ListenAndServe(addr, srv.routes()); err != nil {
		log.Error(ctx, "server stopped", logging.Err(err))
		os.Exit(1)
	}
}

func openDatabase(ctx context.Context, cfg config.Config, log logging.Logger) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(database); err != nil {
		database.Close()
		return nil, err
	}

	if cfg.IsDev() {
		stats, err := seed.Run(ctx, database, seed.Config{
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
		})
		if err != nil {
			database.Close()
			return nil, err
		}
		log.Info(ctx, "seed complete", logging.Int("inserts", stats.Inserts), logging.Int("updates", stats.Updates))
	}
	return database, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Post("/register", s.handleRegister)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/scenarios", s.handleListScenarios)
		r.Post("/scenarios", s.handleCreateScenario)
		r.Put("/scenarios/current", s.handleSelectScenario)
		r.Get("/scenarios/{name}", s.handleGetScenario)
		r.Patch("/scenarios/{name}", s.handleRenameScenario)
		r.Delete("/scenarios/{name}", s.handleDeleteScenario)
		r.Get("/scenarios/{name}/results", s.handleResults)
		r.Get("/scenarios/{name}/results.pdf", s.handleResultsPDF)

		r.Post("/scenarios/{name}/entries/{section}", s.handleAddEntry)
		r.Put("/scenarios/{name}/entries/{section}/{item}", s.handleUpdateEntry)
		r.Delete("/scenarios/{name}/entries/{section}/{item}", s.handleDeleteEntry)
		r.Put("/scenarios/{name}/energy-cost", s.handleSetEnergyCost)
		r.Put("/scenarios/{name}/black-mass", s.handleSetBlackMass)

		r.Post("/scenarios/{name}/assumptions", s.handleAddAssumption)
		r.Put("/scenarios/{name}/assumptions/{index}", s.handleSetAssumption)
		r.Delete("/scenarios/{name}/assumptions/{index}", s.handleDeleteAssumption)

		r.Post("/scenarios/{name}/phases", s.handleAddPhase)
		r.Patch("/scenarios/{name}/phases/{phase}", s.handleRenamePhase)
		r.Delete("/scenarios/{name}/phases/{phase}", s.handleDeletePhase)
		r.Put("/scenarios/{name}/phases/{phase}/masses/{key}", s.handleSetPhaseMass)
		r.Delete("/scenarios/{name}/phases/{phase}/masses/{key}", s.handleDeletePhaseMass)
		r.Put("/scenarios/{name}/phases/{phase}/liquids/{key}", s.handleSetPhaseLiquid)
		r.Delete("/scenarios/{name}/phases/{phase}/liquids/{key}", s.handleDeletePhaseLiquid)

		r.Get("/case-studies", s.handleListCaseStudies)
		r.Post("/comparison", s.handleCompare)
		r.Post("/comparison.pdf", s.handleComparePDF)
	})
	return r
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}

		username, ok := s.auth.sessionUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUsername(r.Context(), username)))
	})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug(r.Context(), "request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.String("request_id", middleware.GetReqID(r.Context())),
			logging.Any("duration", time.Since(start)),
		)
	})
}

// state returns the workspace of the request's user.
func (s *server) state(r *http.Request) *app.State {
	return s.workspaces.Get(r.Context(), usernameFrom(r.Context()))
}
