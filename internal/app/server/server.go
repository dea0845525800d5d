package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"workzen/internal/domain/attendance"
	"workzen/internal/domain/audit"
	"workzen/internal/domain/auth"
	"workzen/internal/domain/core"
	"workzen/internal/domain/leave"
	"workzen/internal/domain/payroll"
	"workzen/internal/domain/reports"
	"workzen/internal/platform/config"
	"workzen/internal/platform/crypto"
	"workzen/internal/platform/db"
	"workzen/internal/platform/metrics"
	attendancehandler "workzen/internal/transport/http/handlers/attendance"
	audithandler "workzen/internal/transport/http/handlers/audit"
	authhandler "workzen/internal/transport/http/handlers/auth"
	corehandler "workzen/internal/transport/http/handlers/core"
	leavehandler "workzen/internal/transport/http/handlers/leave"
	payrollhandler "workzen/internal/transport/http/handlers/payroll"
	reportshandler "workzen/internal/transport/http/handlers/reports"
	"workzen/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// Services groups the domain services behind the HTTP handlers.
type Services struct {
	Auth       *auth.Service
	Core       *core.Service
	Attendance *attendance.Service
	Leave      *leave.Service
	Payroll    *payroll.Service
	Reports    *reports.Service
	Audit      *audit.Service
}

// New connects to the database, applies migrations and seed data when
// configured, and assembles the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	collector := metrics.New()
	services, err := NewServices(cfg, pool, collector)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  NewRouter(cfg, pool, services, collector),
		Metrics: collector,
	}, nil
}

func NewServices(cfg config.Config, pool *pgxpool.Pool, collector *metrics.Collector) (Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Services{}, err
	}
	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return Services{}, fmt.Errorf("encryption key: %w", err)
	}
	if !sealer.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set, bank and tax identifiers are stored in plain text")
	}
	settings, err := payrollSettings(cfg)
	if err != nil {
		return Services{}, err
	}

	auditService := audit.New(pool)

	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore, sealer, cfg.JWTSecret, cfg.SessionTTL)
	authService.Audit = auditService

	coreService := core.NewService(core.NewStore(pool, sealer), authStore, auditService)

	attendanceService := attendance.NewService(attendance.NewStore(pool), auditService, loc, cfg.StandardWorkHours)
	attendanceService.Metrics = collector

	leaveService := leave.NewService(leave.NewStore(pool), auditService, loc)
	leaveService.Metrics = collector

	payrollService := payroll.NewService(payroll.NewStore(pool), attendanceService, leaveService, auditService, settings)
	payrollService.Metrics = collector

	reportsService := reports.NewService(reports.NewStore(pool), attendanceService, leaveService, payrollService, loc)

	return Services{
		Auth:       authService,
		Core:       coreService,
		Attendance: attendanceService,
		Leave:      leaveService,
		Payroll:    payrollService,
		Reports:    reportsService,
		Audit:      auditService,
	}, nil
}

func payrollSettings(cfg config.Config) (payroll.Settings, error) {
	tax, err := payroll.ParseMoney(strings.TrimSpace(cfg.ProfessionalTax))
	if err != nil {
		return payroll.Settings{}, fmt.Errorf("professional tax: %w", err)
	}
	return payroll.Settings{
		ProfessionalTax: tax,
		PFRate:          decimal.RequireFromString(payroll.DefaultPFRate),
		Currency:        strings.ToUpper(strings.TrimSpace(cfg.Currency)),
	}, nil
}

func NewRouter(cfg config.Config, pool *pgxpool.Pool, services Services, collector *metrics.Collector) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(services.Auth))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

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

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(services.Auth, services.Core)
		authHandler.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			authHandler.RegisterRoutes(r)
			corehandler.NewHandler(services.Core).RegisterRoutes(r)
			attendancehandler.NewHandler(services.Attendance).RegisterRoutes(r)
			leavehandler.NewHandler(services.Leave).RegisterRoutes(r)
			payrollhandler.NewHandler(services.Payroll, middleware.NewIdempotencyStore(pool)).RegisterRoutes(r)
			reportshandler.NewHandler(services.Reports).RegisterRoutes(r)
			audithandler.NewHandler(services.Audit).RegisterRoutes(r)
		})
	})

	return router
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("WorkZen server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
