package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dealposter/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Broadcast today's report once and exit",
	RunE:  runOnce,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render today's posters and print their paths without delivering them",
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(renderCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Report.Targets) == 0 {
		return fmt.Errorf("no target groups configured (set REPORT_TARGET_GROUPS)")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	run, err := a.runner.Run(ctx, report.TriggerManual)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "run %s: %s\n", run.ID, run.Status)
	for _, b := range run.Brands {
		fmt.Fprintf(os.Stdout, "  %s: rendered=%t sent=%d degraded=%d failed=%d\n",
			b.Brand, b.Rendered, b.Delivered, b.Degraded, b.Failed)
	}
	return nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := a.runner.Render(ctx)
	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}
	return err
}
