// Package app assembles PulseGrid's dependencies and runs either the HTTP
// API or the background worker, per the two deployable modes §4.6 implies
// (request-serving surface vs. scheduler/worker runtime).
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/pulsegrid/pulsegrid/internal/authctx"
	"github.com/pulsegrid/pulsegrid/internal/config"
	"github.com/pulsegrid/pulsegrid/internal/httpserver"
	"github.com/pulsegrid/pulsegrid/internal/platform"
	"github.com/pulsegrid/pulsegrid/internal/queue"
	"github.com/pulsegrid/pulsegrid/internal/telemetry"
	"github.com/pulsegrid/pulsegrid/pkg/apikey"
	"github.com/pulsegrid/pulsegrid/pkg/client"
	"github.com/pulsegrid/pulsegrid/pkg/clientsettings"
	"github.com/pulsegrid/pulsegrid/pkg/evaluator"
	"github.com/pulsegrid/pulsegrid/pkg/incident"
	"github.com/pulsegrid/pulsegrid/pkg/ingest"
	"github.com/pulsegrid/pulsegrid/pkg/machine"
	"github.com/pulsegrid/pulsegrid/pkg/metric"
	"github.com/pulsegrid/pulsegrid/pkg/notifier"
	"github.com/pulsegrid/pulsegrid/pkg/notifier/emailprovider"
	"github.com/pulsegrid/pulsegrid/pkg/notifier/slackprovider"
	"github.com/pulsegrid/pulsegrid/pkg/probe"
)

// Run reads config, connects to infrastructure, and starts the requested
// mode ("api" or "worker").
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting pulsegrid", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	pool, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, pool, rdb, metricsReg)
	case "worker":
		return runWorker(ctx, cfg, logger, pool, rdb, metricsReg)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// components holds every domain store/service shared between the API and
// worker processes, so the two modes don't construct them differently.
type components struct {
	clientSvc    *client.Service
	apikeySvc    *apikey.Service
	auth         *authctx.Authenticator
	machineSvc   *machine.Service
	machineStore *machine.Store
	metricSvc    *metric.Service
	metricStore  *metric.Store
	settings     *clientsettings.Store
	probeSvc     *probe.Service
	probeStore   *probe.Store
	incidents    *incident.Manager
	driver       *evaluator.Driver
	notifyLog    *notifier.Store
	notifySvc    *notifier.Service
	ingestSvc    *ingest.Service
	runtime      *queue.Runtime
}

// build wires every component except the ones that need the Runtime
// itself (ingest's emitter, the incident manager's emitter) — those are
// patched in once the Runtime exists, since the Runtime depends on most of
// these components in turn.
func build(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) *components {
	c := &components{}

	c.clientSvc = client.NewService(pool, logger)
	c.apikeySvc = apikey.NewService(pool, logger)
	c.auth = authctx.NewAuthenticator(apikey.NewStore(pool), rdb)

	c.machineStore = machine.NewStore(pool)
	c.machineSvc = machine.NewService(pool, logger)

	c.metricStore = metric.NewStore(pool)
	c.metricSvc = metric.NewService(pool, logger)

	c.settings = clientsettings.NewStore(pool)

	c.probeStore = probe.NewStore(pool)
	c.probeSvc = probe.NewService(pool, logger)

	c.notifyLog = notifier.NewStore(pool)

	// The incident Manager and ingest Service need something satisfying
	// incident.Emitter / ingest.Emitter. Runtime provides that, but Runtime
	// needs the Manager and Driver already built — so construct Runtime
	// last, passing it these pointers, and it implements both interfaces
	// by holding them, not the other way around.
	c.incidents = incident.NewManager(pool, nil, logger)
	c.driver = evaluator.NewDriver(pool, c.metricStore, c.incidents, logger)
	c.ingestSvc = ingest.NewService(pool, nil, logger)

	providers := buildProviders(cfg, logger)
	c.notifySvc = notifier.NewService(pool, rdb, c.incidents, c.settings, c.notifyLog, providers,
		notifier.Config{DefaultReminderMinutes: cfg.DefaultAlertReminderMinutes, DefaultSlackWebhook: cfg.SlackWebhook},
		logger)

	prober := probe.NewProber(c.probeStore, c.settings, c.driver, logger, cfg.HTTPProberConcurrency)

	c.runtime = queue.New(pool, rdb, cfg, logger, c.driver, c.metricStore, c.machineStore, c.settings, prober, c.notifySvc)

	// Patch the emitter-backed components to use the Runtime now that it
	// exists. incident.Manager and ingest.Service hold an interface value,
	// not a concrete Runtime, so this is a plain field assignment, not a
	// reconstruction.
	c.incidents.SetEmitter(c.runtime)
	c.ingestSvc.SetEmitter(c.runtime)

	return c
}

// buildProviders wires the Slack and email notification providers per
// §4.5, falling back to a logging stub when the corresponding provider
// isn't configured (STUB_SLACK / STUB_SMTP, or missing SMTP host).
func buildProviders(cfg *config.Config, logger *slog.Logger) map[string]notifier.Provider {
	providers := make(map[string]notifier.Provider, 2)

	if cfg.StubSlack {
		providers["slack"] = notifier.NewStubProvider("slack", logger)
	} else {
		providers["slack"] = slackprovider.New()
	}

	if cfg.StubSMTP || cfg.SMTPHost == "" {
		providers["email"] = notifier.NewStubProvider("email", logger)
	} else {
		providers["email"] = emailprovider.New(emailprovider.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	return providers
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	c := build(cfg, pool, rdb, logger)

	srv := httpserver.NewServer(cfg, logger, pool, rdb, metricsReg, c.auth)

	srv.APIRouter.Mount("/clients", client.NewHandler(logger, c.clientSvc).Routes())
	srv.APIRouter.Mount("/api-keys", apikey.NewHandler(logger, c.apikeySvc).Routes())
	srv.APIRouter.Mount("/machines", machine.NewHandler(logger, c.machineSvc).Routes())
	srv.APIRouter.Mount("/metrics", metric.NewHandler(logger, c.metricSvc).Routes())
	srv.APIRouter.Mount("/http-targets", probe.NewHandler(logger, c.probeSvc).Routes())
	srv.APIRouter.Mount("/incidents", incident.NewHandler(logger, c.incidents).Routes())
	srv.APIRouter.Mount("/notifications", notifier.NewHandler(logger, c.notifyLog).Routes())
	srv.APIRouter.Mount("/settings", clientsettings.NewHandler(logger, c.settings).Routes())
	srv.APIRouter.Mount("/ingest", ingest.NewHandler(logger, c.ingestSvc).Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	logger.Info("worker started")
	c := build(cfg, pool, rdb, logger)
	return c.runtime.Run(ctx)
}
