// Command worker runs the event ingestion service: an HTTP API in front of
// the render/extract/normalize/dedupe pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LBtakeuti/fanfan-worker/internal/api"
	"github.com/LBtakeuti/fanfan-worker/internal/clock/system"
	"github.com/LBtakeuti/fanfan-worker/internal/config"
	"github.com/LBtakeuti/fanfan-worker/internal/event"
	"github.com/LBtakeuti/fanfan-worker/internal/extract"
	"github.com/LBtakeuti/fanfan-worker/internal/logging"
	"github.com/LBtakeuti/fanfan-worker/internal/metrics"
	"github.com/LBtakeuti/fanfan-worker/internal/pipeline"
	"github.com/LBtakeuti/fanfan-worker/internal/policy/ratelimit"
	"github.com/LBtakeuti/fanfan-worker/internal/policy/robots"
	"github.com/LBtakeuti/fanfan-worker/internal/publisher/pubsub"
	"github.com/LBtakeuti/fanfan-worker/internal/render"
	"github.com/LBtakeuti/fanfan-worker/internal/storage/gcs"
	"github.com/LBtakeuti/fanfan-worker/internal/storage/memory"
	"github.com/LBtakeuti/fanfan-worker/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	clk := system.New()
	limiter := ratelimit.New(cfg.Crawler.HostRequestsPerMinute, clk)
	gate := robots.New(robots.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.RequestTimeout(),
		Respect:   cfg.Crawler.RespectRobots,
	}, logger)

	var renderer event.Renderer
	if cfg.Render.Headless {
		cdp, err := render.NewChromedp(render.Config{
			UserAgent:  cfg.Crawler.UserAgent,
			NavTimeout: time.Duration(cfg.Render.NavTimeoutSec) * time.Second,
			DomainQPS:  cfg.Render.DomainQPS,
		}, logger)
		if err != nil {
			return fmt.Errorf("start renderer: %w", err)
		}
		defer cdp.Close()
		renderer = cdp
	} else {
		logger.Info("headless rendering disabled, using plain HTTP fetcher")
		renderer = render.NewProbe(cfg.Crawler.UserAgent, cfg.RequestTimeout())
	}

	var (
		events  event.EventStore
		sources event.SourceStore
	)
	if cfg.DB.DSN != "" {
		store, err := postgres.New(ctx, postgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer store.Close()
		events, sources = store, store
	} else {
		logger.Warn("no database configured, using in-memory stores")
		store := memory.NewStore()
		events, sources = store, store
	}

	var blobs event.BlobStore
	if cfg.Storage.GCSBucket != "" {
		bs, err := gcs.New(ctx, cfg.Storage.GCSBucket, cfg.Storage.Prefix)
		if err != nil {
			return fmt.Errorf("open snapshot bucket: %w", err)
		}
		defer bs.Close()
		blobs = bs
	}

	var pub event.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		p, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			return fmt.Errorf("open pubsub topic: %w", err)
		}
		defer p.Close()
		pub = p
	}

	heuristic := extract.NewHeuristic(extract.Options{
		VenueSuffixes: cfg.Extract.VenueSuffixes,
		VenueLabels:   cfg.Extract.VenueLabels,
		NoiseWords:    cfg.Extract.NoiseWords,
	})
	ai := extract.NewAI(extract.AIConfig{
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
		MaxChars: cfg.AI.MaxChars,
	}, logger)
	chain := extract.NewChain(logger, ai,
		extract.NewJSONLD(),
		heuristic,
		extract.NewICS(),
		extract.NewFeed(heuristic),
	)

	pipe := pipeline.New(pipeline.Deps{
		Renderer: renderer,
		Limiter:  limiter,
		Robots:   gate,
		Chain:    chain,
		Events:   events,
		Sources:  sources,
		Blobs:    blobs,
		Pub:      pub,
		Clock:    clk,
	}, cfg.Cooldown(), logger)

	server := api.NewServer(pipe, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("worker listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
