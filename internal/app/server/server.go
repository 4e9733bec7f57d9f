package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/domain/attendance"
	"ems/internal/domain/audit"
	"ems/internal/domain/authz"
	"ems/internal/domain/directory"
	"ems/internal/domain/documents"
	"ems/internal/domain/leave"
	"ems/internal/domain/payroll"
	"ems/internal/domain/tasks"
	"ems/internal/platform/config"
	"ems/internal/platform/db"
	"ems/internal/platform/email"
	attendancehandler "ems/internal/transport/http/handlers/attendance"
	audithandler "ems/internal/transport/http/handlers/audit"
	authhandler "ems/internal/transport/http/handlers/auth"
	directoryhandler "ems/internal/transport/http/handlers/directory"
	documentshandler "ems/internal/transport/http/handlers/documents"
	leavehandler "ems/internal/transport/http/handlers/leave"
	payrollhandler "ems/internal/transport/http/handlers/payroll"
	taskshandler "ems/internal/transport/http/handlers/tasks"
	"ems/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	Pool   *pgxpool.Pool
	Router http.Handler
}

// New wires storage, services, and the HTTP surface. It does not start
// listening; Run does that.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, err
		}
	}

	locator := authz.NewStore(pool, cfg.StoreTimeout)
	auditSvc := audit.New(pool)
	directoryStore := directory.NewStore(pool)
	directoryService := directory.NewService(directoryStore)
	attendanceStore := attendance.NewStore(pool)
	leaveService := leave.NewService(leave.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	payrollService := payroll.NewService(payroll.NewStore(pool))
	tasksStore := tasks.NewStore(pool)
	documentsStore := documents.NewStore(pool)

	isProd := cfg.Environment == "production"

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(isProd))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		loginLimit := max(cfg.RateLimitPerMinute/4, 1)
		r.With(middleware.LoginRateLimit(loginLimit, time.Minute)).
			Group(func(r chi.Router) {
				authhandler.NewHandler(directoryStore, auditSvc, cfg.JWTSecret, cfg.TokenTTL, isProd).RegisterRoutes(r)
			})

		directoryhandler.NewHandler(directoryStore, directoryService, locator, auditSvc).RegisterRoutes(r)
		attendancehandler.NewHandler(attendanceStore, locator).RegisterRoutes(r)
		leavehandler.NewHandler(leaveService, locator, auditSvc).RegisterRoutes(r)
		payrollhandler.NewHandler(payrollService, locator, auditSvc).RegisterRoutes(r)
		taskshandler.NewHandler(tasksStore, directoryStore, locator, auditSvc).RegisterRoutes(r)
		documentshandler.NewHandler(documentsStore, locator).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	return &App{Config: cfg, Pool: pool, Router: router}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()
	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	log.Printf("EMS server listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, app.Router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
