// Package bootstrap wires the service together and runs it.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/safetycheck/safetycheck/internal/adapter"
	"github.com/safetycheck/safetycheck/internal/api"
	"github.com/safetycheck/safetycheck/internal/cache"
	"github.com/safetycheck/safetycheck/internal/classifier"
	"github.com/safetycheck/safetycheck/internal/config"
	"github.com/safetycheck/safetycheck/internal/logger"
	"github.com/safetycheck/safetycheck/internal/media"
	"github.com/safetycheck/safetycheck/internal/metrics"
	"github.com/safetycheck/safetycheck/internal/pipeline"
	"github.com/safetycheck/safetycheck/internal/ratelimit"
)

// Start loads configuration, assembles the pipeline and serves HTTP until
// a shutdown signal arrives.
func Start() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Must(cfg.Logging)
	defer func() { _ = log.Sync() }()

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("pipeline close failed", logger.Error(err))
		}
	}()

	server := api.NewServer(cfg.Server, api.NewHandler(p, log), log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildPipeline(cfg *config.Config, log logger.Logger) (*pipeline.Pipeline, error) {
	backend, err := buildCacheBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	resultCache := cache.New(backend, cfg.Cache.TTL)

	mediaCache, err := media.NewCache(cfg.Media, log)
	if err != nil {
		return nil, fmt.Errorf("media cache: %w", err)
	}
	mediaProc := media.NewProcessor(mediaCache, media.NewFeatureExtractor(log), log)

	registry := adapter.NewRegistry(log)
	// The paste-only adapter goes first: it claims no URLs, but paste
	// mode without a hint falls back to the first registered adapter.
	registry.Register(adapter.NewPasteAdapter())
	registry.Register(adapter.NewRedditAdapter(cfg.Adapters.Reddit, log))
	registry.Register(adapter.NewTwitterAdapter(cfg.Adapters.Twitter, log))
	registry.Register(adapter.NewTelegramAdapter(cfg.Adapters.Telegram, log))

	return pipeline.New(
		registry,
		mediaProc,
		resultCache,
		classifier.NewOpenAI(cfg.Classifier, log),
		ratelimit.NewQuota(cfg.Quota, log),
		ratelimit.NewAbuseDetector(cfg.Abuse, log),
		ratelimit.NewLimiter(cfg.ClassifierRPS, cfg.ClassifierRPS, log),
		metrics.New(),
		log,
	), nil
}

func buildCacheBackend(cfg *config.Config, log logger.Logger) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		backend, err := cache.NewRedisBackend(cfg.Cache.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return backend, nil
	default:
		return cache.NewMemoryBackend(), nil
	}
}
