package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/technosupport/vms-analytics/internal/analysis"
	"github.com/technosupport/vms-analytics/internal/api"
	"github.com/technosupport/vms-analytics/internal/audit"
	"github.com/technosupport/vms-analytics/internal/auth"
	"github.com/technosupport/vms-analytics/internal/cameras"
	"github.com/technosupport/vms-analytics/internal/capabilities"
	"github.com/technosupport/vms-analytics/internal/config"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/engine"
	"github.com/technosupport/vms-analytics/internal/events"
	"github.com/technosupport/vms-analytics/internal/logging"
	"github.com/technosupport/vms-analytics/internal/middleware"
	"github.com/technosupport/vms-analytics/internal/ratelimit"
	"github.com/technosupport/vms-analytics/internal/results"
	"github.com/technosupport/vms-analytics/internal/storage"
	"github.com/technosupport/vms-analytics/internal/tampering"
	"github.com/technosupport/vms-analytics/internal/tokens"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (default $VMS_CONFIG or config/default.yaml)")
	flag.Parse()

	path := config.ResolvePath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, path, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, path string, log zerolog.Logger) error {
	if cfg.JWTSigningKey == "" {
		return errors.New("JWT_SIGNING_KEY is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := config.NewWatcher(path, cfg, log)
	watcher.Start(ctx)
	defer func() {
		stop()
		watcher.Wait()
	}()

	// Postgres
	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DB.MaxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	models := data.NewModels(db)

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup")
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	// Tampering events fan out over NATS when configured.
	var publisher events.Publisher
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, "vms-analytics")
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.MaxRetries)
	}
	recorder := events.NewRecorder(models.Events, publisher, log)

	// Audit
	spool, err := audit.NewSpool(cfg.Audit.SpoolDir, cfg.Audit.SpoolMaxMB)
	if err != nil {
		return fmt.Errorf("audit spool: %w", err)
	}
	auditSvc := audit.NewService(db, spool, log)
	auditSvc.StartReplayer(ctx, cfg.Audit.ReplayInterval)

	camSvc := cameras.NewService(models.Cameras, models.Sites, models.Clients, auditSvc, cfg.Limits.MaxCameras)

	// Tampering pipeline
	refImages := storage.NewReferenceImages(store, cfg.PublicBaseURL)
	clock := &liveDayClock{watcher: watcher, log: log}
	coordinator := tampering.NewReferenceCoordinator(refImages, camSvc, recorder, clock)
	interpreter := tampering.NewInterpreter(refImages.ReferenceURL, coordinator, models.Detections, recorder)
	companyWindows := tampering.NewCompanyWindows(models.Windows, func() data.WindowConfig {
		return watcher.Current().Tampering.DefaultWindows
	})
	orchestrator := tampering.NewOrchestrator(companyWindows, tampering.NewWindowChecker(models.Detections))

	checker := capabilities.NewChecker(models.Capabilities, cfg.Capabilities.CacheSize, cfg.Capabilities.CacheTTL)
	resultStore := results.NewRedisStore(rdb, cfg.Results.TTL)

	analysisSvc := analysis.NewService(analysis.Dependencies{
		Cameras:      camSvc,
		Capabilities: checker,
		Tampering:    orchestrator,
		Engine:       engine.NewClient(cfg.Engine.URL, cfg.Engine.Timeout),
		Interpreter:  interpreter,
		Results:      resultStore,
		ReferenceURL: refImages.ReferenceURL,
	}, log)

	// Auth
	tokenMgr := tokens.NewManager(cfg.JWTSigningKey)
	blacklist := auth.NewRedisBlacklist(rdb)

	var rl *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rl = middleware.NewRateLimitMiddleware(
			ratelimit.NewLimiter(rdb, cfg.RateLimit.Salt),
			middleware.RateLimitConfig{IP: cfg.RateLimit.IP, Company: cfg.RateLimit.Company},
		)
	}

	router := api.NewRouter(api.RouterDeps{
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWT:            middleware.NewJWTAuth(tokenMgr, blacklist),
		RateLimit:      rl,
		AnalyzeLimit:   cfg.RateLimit.Analyze,

		Cameras:   api.NewCameraHandler(camSvc),
		Inventory: api.NewInventoryHandler(camSvc),
		Views: &api.ViewHandler{
			Analyzer:    analysisSvc,
			Results:     resultStore,
			Views:       camSvc,
			References:  refImages,
			Events:      recorder,
			MaxUploadMB: cfg.Server.MaxUploadMB,
		},
		Settings: &api.SettingsHandler{Windows: companyWindows, Store: models.Windows, Audit: auditSvc},
		Audit:    &api.AuditHandler{Service: auditSvc},
		Auth:     &api.AuthHandler{Blacklist: blacklist},
		Health: &api.HealthHandler{Checks: map[string]api.Pinger{
			"postgres": db,
			"redis":    api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}

func openStore(cfg config.StorageConfig) (storage.Store, func(), error) {
	switch cfg.Backend {
	case "sftp":
		s, err := storage.NewSFTPStore(cfg.SFTP)
		if err != nil {
			return nil, nil, fmt.Errorf("sftp store: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := storage.NewFileStore(cfg.Root)
		if err != nil {
			return nil, nil, fmt.Errorf("file store: %w", err)
		}
		return s, func() {}, nil
	}
}
