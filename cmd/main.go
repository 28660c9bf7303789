package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okian/duelcard/internal/adapters/avatar"
	"github.com/okian/duelcard/internal/adapters/discord"
	"github.com/okian/duelcard/internal/adapters/http/api"
	"github.com/okian/duelcard/internal/adapters/http/swagger"
	"github.com/okian/duelcard/internal/adapters/repository"
	app "github.com/okian/duelcard/internal/app"
	"github.com/okian/duelcard/internal/config"
	"github.com/okian/duelcard/internal/render/card"
	"github.com/okian/duelcard/internal/render/fonts"
	"github.com/okian/duelcard/pkg/logger"
	"github.com/okian/duelcard/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithFile(cfg.LogFile)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	poster, err := newPoster(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, poster, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// openStore connects the configured challenge store. The returned func
// releases its connections.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	ttl := time.Duration(cfg.ChallengeTTLHours) * time.Hour

	switch strings.ToLower(cfg.StoreBackend) {
	case config.StoreRedis:
		client, err := repository.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisStore(client, repository.WithTTL(ttl)), func() { _ = client.Close() }, nil
	case config.StorePostgres:
		pool, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

// newPoster returns the Discord poster when a token is configured and the
// log-only poster otherwise.
func newPoster(ctx context.Context, cfg *config.Config, log logger.Logger) (app.Poster, error) {
	if cfg.DiscordToken == "" {
		log.Info(ctx, "no discord token; cards will only be logged")
		return app.NewLogPoster(log.Named("poster")), nil
	}
	p, err := discord.New(cfg.DiscordToken,
		discord.WithDefaultChannel(cfg.DiscordChannel),
		discord.WithLogger(log.Named("discord")),
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newService(cfg *config.Config, store repository.Store, poster app.Poster, log logger.Logger) *app.Service {
	registry := fonts.New(
		fonts.WithLogger(log.Named("fonts")),
		fonts.WithCandidates(fonts.DefaultCandidates(cfg.AssetDir, cfg.FontDir)...),
	)
	compositor := card.New(registry,
		card.WithSize(cfg.CanvasWidth, cfg.CanvasHeight),
		card.WithAssetDir(cfg.AssetDir),
		card.WithLogger(log.Named("card")),
	)
	fetcher := avatar.New(
		avatar.WithTimeout(time.Duration(cfg.AvatarTimeoutMS)*time.Millisecond),
		avatar.WithRetryMax(cfg.AvatarRetryMax),
		avatar.WithMaxBytes(cfg.AvatarMaxBytes),
		avatar.WithLogger(log.Named("avatar")),
	)

	return app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithCompositor(compositor),
		app.WithAvatarSource(fetcher),
		app.WithPoster(poster),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.SubmissionQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithResultHistory(cfg.ResultHistory),
	)
}

func newMux(ctx context.Context, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
// GetStats already refreshes the challenge total.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}

