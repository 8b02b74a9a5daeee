package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newsgoat/internal/api"
	"github.com/IshaanNene/newsgoat/internal/category"
	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/storage"
	"github.com/IshaanNene/newsgoat/internal/types"
)

var (
	outputPath    string
	outputFormat  string
	categoryLimit int
	searchLimit   int
	port          int
	serverURL     string
)

// addExportFlags registers -o/-f on commands that produce record lists.
func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "export file path (default: <storage.output_path>/news.<format>)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "export format: json, jsonl, csv (enables export)")
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON news API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signalContext()
			defer stop()

			svc, metrics, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := api.NewServer(cfg.Server, svc, metrics, cfg.Metrics.Path, logger)
			if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// articleCmd creates the "article" subcommand.
func articleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "article [url]",
		Short: "Extract a single article and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, _, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := svc.FetchArticle(ctx, args[0])
			if err != nil {
				return fmt.Errorf("article not available: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(rec)
		},
	}
}

// latestCmd creates the "latest" subcommand.
func latestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Resolve the front page into categorized records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, _, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			start := time.Now()
			latest, err := svc.GetLatestNews(ctx)
			if err != nil {
				return fmt.Errorf("front page unavailable: %w", err)
			}

			var all []*types.Record
			w := cmd.OutOrStdout()
			for _, c := range category.All() {
				recs := latest[c]
				if len(recs) == 0 {
					continue
				}
				fmt.Fprintf(w, "\n%s (%d)\n", c, len(recs))
				printRecords(w, recs)
				all = append(all, recs...)
			}
			fmt.Fprintf(w, "\n✅ %d records in %s\n", len(all), time.Since(start).Round(time.Millisecond))

			return export(ctx, cfg, all, logger)
		},
	}
	addExportFlags(cmd)
	return cmd
}

// categoryCmd creates the "category" subcommand.
func categoryCmd() *cobra.Command {
	names := make([]string, 0, len(category.All()))
	for _, c := range category.All() {
		names = append(names, string(c))
	}

	cmd := &cobra.Command{
		Use:   "category [name]",
		Short: "List the records of one category",
		Long: "List the records of one category (" + strings.Join(names, ", ") + ").\n" +
			"Unknown names list the newest records across all categories.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, _, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			recs, err := svc.GetNewsByCategory(ctx, args[0], categoryLimit)
			if err != nil {
				return fmt.Errorf("front page unavailable: %w", err)
			}
			printRecords(cmd.OutOrStdout(), recs)
			return export(ctx, cfg, recs, logger)
		},
	}
	cmd.Flags().IntVarP(&categoryLimit, "limit", "l", 5, "maximum records")
	addExportFlags(cmd)
	return cmd
}

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search current front page records",
		Long:  "Search title, description and content of the current front page records. Title matches rank first, then newer records.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, _, err := buildService(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			recs, err := svc.SearchNews(ctx, strings.Join(args, " "), searchLimit)
			if err != nil {
				return fmt.Errorf("front page unavailable: %w", err)
			}
			printRecords(cmd.OutOrStdout(), recs)
			return export(ctx, cfg, recs, logger)
		},
	}
	cmd.Flags().IntVarP(&searchLimit, "limit", "l", 10, "maximum records")
	addExportFlags(cmd)
	return cmd
}

// cacheCmd creates the "cache" subcommand. Caches live in the serving
// process, so clearing goes through the API.
func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the caches of a running server",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the page and news caches of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := serverURL
			if target == "" {
				cfg, err := config.Load(cfgFile)
				if err != nil {
					return err
				}
				target = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Post(strings.TrimRight(target, "/")+"/api/cache/clear", "application/json", nil)
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				return fmt.Errorf("clear cache: %s: %s", resp.Status, strings.TrimSpace(string(body)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ caches cleared")
			return nil
		},
	}
	clearCmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default: http://localhost:<server.port>)")

	cmd.AddCommand(clearCmd)
	return cmd
}

func printRecords(w io.Writer, recs []*types.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range recs {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", rec.ID, rec.CreatedAt, truncate(rec.Title, 70), rec.URL)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// export writes recs when -o or -f was given. With the archive enabled the
// records are also written to MongoDB.
func export(ctx context.Context, cfg *config.Config, recs []*types.Record, logger *slog.Logger) error {
	if outputPath == "" && outputFormat == "" {
		return nil
	}
	format := strings.ToLower(outputFormat)
	if format == "" {
		format = cfg.Storage.Type
	}
	path := outputPath
	if path == "" {
		path = storage.DefaultPath(cfg.Storage.OutputPath, format)
	}

	file, err := storage.NewFileStorage(format, path, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	var store storage.Storage = file
	if cfg.Storage.Archive.Enabled {
		archive, err := storage.NewMongoArchive(ctx, cfg.Storage.Archive, logger)
		if err != nil {
			logger.Warn("archive unavailable, exporting to file only", "error", err)
		} else {
			store = storage.NewMultiStorage([]storage.Storage{file, archive}, logger)
		}
	}

	if err := store.Store(recs); err != nil {
		store.Close()
		return err
	}
	if err := store.Close(); err != nil {
		return err
	}
	logger.Info("records exported", "path", path, "format", format, "backend", store.Name(), "count", len(recs))
	return nil
}
