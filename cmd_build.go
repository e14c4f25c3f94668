package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var buildOutput string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the landing page into the output directory",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if buildOutput != "" {
		cfg.OutputDir = buildOutput
	}
	logger := newLogger(cfg.LogLevel)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.BuildStatic(ctx); err != nil {
		return err
	}
	status, _ := svc.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "built %s: %d slides, %d files in %s\n", cfg.OutputDir, status.Slides, status.Files, status.Duration.Round(time.Millisecond))
	return nil
}
