package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/7oh/landing-go/assetcache"
	"github.com/7oh/landing-go/config"
	"github.com/7oh/landing-go/site"
	"github.com/7oh/landing-go/templatex"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "landing",
	Short:         "Build, serve and preview the 7oh landing page",
	Version:       SERVER_SIGNATURE,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to configuration file (empty to use defaults and environment only)")

	rootCmd.AddCommand(serveCmd, buildCmd, previewCmd, cacheCmd)
	cacheCmd.AddCommand(cacheLsCmd, cachePurgeCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "override the output directory")
	previewCmd.Flags().IntVar(&previewSlides, "slides", 0, "limit the number of testimonials shown (0 for all)")
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "initial terminal width in columns (0 to detect)")
	cachePurgeCmd.Flags().BoolVar(&purgeAll, "all", false, "also delete the configured cache")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration named by --config. A missing default
// file is not an error; the environment and defaults still apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	return config.Load(path)
}

func newService(cfg *config.Config, logger *slog.Logger) (*site.Service, error) {
	templates, err := templatex.Load(cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	return site.NewService(cfg, templates, logger), nil
}

func openStorage(cfg *config.Config) (assetcache.Storage, error) {
	switch cfg.Cache.Driver {
	case config.DriverSQLite:
		return assetcache.OpenSQLite(cfg.Cache.Path)
	default:
		return assetcache.NewMemoryStorage(), nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
