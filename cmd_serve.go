package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/7oh/landing-go/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the page and serve it through the asset cache",
	Long: `Builds the landing page, installs and activates the asset cache worker and
serves the site. In live mode the content and template directories are
watched and every rebuild refreshes the cache.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	logger.Info("starting", "version", SERVER_SIGNATURE, "live", cfg.Live, "cache", cfg.Cache.Name, "driver", cfg.Cache.Driver)

	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	storage, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, svc, storage, logger, SERVER_SIGNATURE)
	return srv.Start(ctx)
}
