package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dealposter/internal/config"
	"github.com/dealposter/internal/delivery"
	"github.com/dealposter/internal/metrics"
	"github.com/dealposter/internal/model"
	"github.com/dealposter/internal/poster"
	"github.com/dealposter/internal/report"
	"github.com/dealposter/internal/source"
	"github.com/dealposter/internal/storage"
	"github.com/dealposter/internal/worker"
)

// runStore is satisfied by both the Postgres repository and the in-memory store.
type runStore interface {
	report.RunRecorder
	FindRecent(ctx context.Context, limit int) ([]model.Run, error)
	FindByID(ctx context.Context, id string) (*model.Run, error)
	FindDeliveries(ctx context.Context, runID string) ([]model.DeliveryRecord, error)
}

// app holds the wired components shared by all subcommands.
type app struct {
	cfg       *config.Config
	registry  *prometheus.Registry
	collector *metrics.Collector
	renderer  *poster.Renderer
	pool      *worker.Pool
	store     runStore
	runner    *report.Runner

	closers []func()
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadWithFile(configPath)
	}
	return config.Load(), nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.collector = metrics.NewCollector(a.registry)

	if err := a.initStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.renderer = poster.NewRenderer(poster.Options{
		OutputDir:    cfg.Poster.OutputDir,
		AssetsDir:    cfg.Poster.AssetsDir,
		FilePrefix:   cfg.Poster.FilePrefix,
		ImageTimeout: cfg.Poster.ImageTimeout,
		Fetcher:      a.imageFetcher(ctx),
		Fonts:        poster.LoadFonts(cfg.Poster.FontPaths),
		Observer:     a.collector,
	})

	a.pool = worker.NewPool(cfg.Report.RenderWorkers * 2)
	if err := a.pool.Start(cfg.Report.RenderWorkers); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to start render pool: %w", err)
	}
	a.closers = append(a.closers, a.pool.Stop)

	dispatcher, err := delivery.FromConfig(cfg, a.collector)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to set up delivery: %w", err)
	}

	src := source.Select(cfg.Source, time.Now)
	log.Printf("Using %s deal source", src.Name())

	a.runner = report.NewRunner(src, a.renderer, dispatcher, a.pool, report.Config{
		Targets: cfg.Report.Targets,
		Brands:  cfg.Report.Brands,
		Timeout: cfg.Report.RunTimeout,
	}, report.WithRecorder(a.store), report.WithMetrics(a.collector))

	return a, nil
}

func (a *app) initStore(ctx context.Context) error {
	if !a.cfg.Database.Enabled {
		a.store = storage.NewMemoryRunStore(0)
		return nil
	}

	log.Println("Connecting to database...")
	db, err := storage.NewDatabase(&a.cfg.Database)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { db.Close() })

	log.Println("Running migrations...")
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.store = storage.NewRunRepository(db)
	return nil
}

// imageFetcher adds the Redis cache when configured. A Redis outage only
// costs the cache.
func (a *app) imageFetcher(ctx context.Context) poster.ImageFetcher {
	fetcher := poster.NewHTTPImageFetcher(a.cfg.Poster.ImageTimeout, a.cfg.Source.UserAgent)
	if a.cfg.Redis.URL == "" {
		return fetcher
	}

	rdb, err := storage.NewRedisClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		log.Printf("Warning: image cache disabled: %v", err)
		return fetcher
	}
	a.closers = append(a.closers, func() { rdb.Close() })
	return poster.NewCachedImageFetcher(fetcher, rdb, a.cfg.Redis.ImageCacheTTL)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
