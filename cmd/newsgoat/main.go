package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/fetcher"
	"github.com/IshaanNene/newsgoat/internal/news"
	"github.com/IshaanNene/newsgoat/internal/observability"
	"github.com/IshaanNene/newsgoat/internal/storage"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsgoat",
		Short: "NewsGoat — DF.cl news scraper and extractor",
		Long: `NewsGoat scrapes the DF.cl front page and articles into normalized news records.

Features:
  • Field extraction with selector fallback cascades
  • Keyword categorization into Empresas, Economía, Mercados, Internacional, Opinión, Tecnología, General
  • Extractive summaries
  • Page and news caches with TTL and LRU eviction
  • JSON API, JSON/JSONL/CSV export, optional MongoDB archive
  • Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(articleCmd())
	rootCmd.AddCommand(latestCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger
// it describes.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// buildService wires the fetcher, metrics and optional archive into a
// news.Service.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*news.Service, *observability.Metrics, error) {
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
	}

	f, err := fetcher.New(cfg, logger, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("create fetcher: %w", err)
	}

	opts := []news.Option{news.WithMetrics(metrics)}
	if cfg.Storage.Archive.Enabled {
		archive, err := storage.NewMongoArchive(ctx, cfg.Storage.Archive, logger)
		if err != nil {
			logger.Warn("archive unavailable, continuing without it", "error", err)
		} else {
			opts = append(opts, news.WithArchive(archive))
		}
	}

	return news.NewService(cfg, f, logger, opts...), metrics, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NewsGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(lc.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
