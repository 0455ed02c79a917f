package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealposter/internal/api"
	"github.com/dealposter/internal/metrics"
	"github.com/dealposter/internal/middleware"
	"github.com/dealposter/internal/scheduler"
	"github.com/dealposter/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the daily report schedule",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	provider := scheduler.NewProvider(
		scheduler.LoadLocation(cfg.Scheduler.Timezone),
		cfg.Scheduler.MisfireGrace,
	)
	sched := provider.EnsureStarted()
	defer sched.Stop()

	if len(cfg.Report.Targets) == 0 {
		log.Println("Warning: no target groups configured, the daily report will not be scheduled")
	} else {
		hour, minute := scheduler.ScheduleTimeOrDefault(cfg.Report.ScheduleTime)
		jobID := scheduler.DailyJobID(cfg.Report.Owner)
		err := sched.UpsertDailyJob(jobID, hour, minute, func() {
			a.runner.RunScheduled(ctx)
		})
		if err != nil {
			return err
		}
		log.Printf("Daily report %s scheduled at %02d:%02d (%s)", jobID, hour, minute, sched.Location())
	}

	admins, err := storage.NewAdminStore(cfg.Admin)
	if err != nil {
		return err
	}
	if !admins.Enabled() {
		log.Println("Warning: ADMIN_PASSWORD not set, password login is disabled")
	}

	auth := middleware.NewAuthMiddleware(cfg.JWT, cfg.Server.APIKey)
	handler := api.NewHandler(a.runner, a.store, sched, admins, auth, a.renderer.OutputDir(), cfg.Report.CommandName)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = metrics.Handler(a.registry)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, auth, metricsHandler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}
