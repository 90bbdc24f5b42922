package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/bookscrape/config"
	"github.com/aluiziolira/bookscrape/pipeline"
	"github.com/aluiziolira/bookscrape/scraper"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bookscrape",
		Short: "Scrape catalogue pages and export name, price and availability.",
		Long: `bookscrape walks the catalogue pages of a books.toscrape.com style site,
one page at a time with a random pause in between, and exports the
deduplicated items to a CSV/JSON file or a Google spreadsheet.

Every flag can also be set through a BOOKSCRAPE_* environment variable.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger, level := newLogger(cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Site to scrape")
	flags.StringVar(&cfg.PageTemplate, "page-template", cfg.PageTemplate, "Catalogue page path, {n} is the page number")
	flags.IntVar(&cfg.StartPage, "start-page", cfg.StartPage, "First page to scrape")
	flags.IntVar(&cfg.EndPage, "end-page", cfg.EndPage, "Last page to scrape (inclusive)")
	flags.BoolVar(&cfg.StopOnEmpty, "stop-on-empty", cfg.StopOnEmpty, "Stop at the first page without items")
	flags.DurationVar(&cfg.MinDelay, "min-delay", cfg.MinDelay, "Minimum pause between pages")
	flags.DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "Maximum pause between pages")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout per request attempt")
	flags.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Attempts per page, including the first")
	flags.DurationVar(&cfg.BackoffFactor, "backoff", cfg.BackoffFactor, "Backoff factor; attempt n waits factor*2^(n-1)")
	flags.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Upper bound on a single backoff (0 = none)")
	flags.IntSliceVar(&cfg.RetryableStatuses, "retry-status", cfg.RetryableStatuses, "HTTP statuses that are retried")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header sent with every request")
	flags.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")

	rootCmd.AddCommand(newCSVCmd(cfg), newSheetsCmd(cfg))
	return rootCmd
}

func newCSVCmd(cfg *config.Config) *cobra.Command {
	format := "csv"
	cmd := &cobra.Command{
		Use:   "csv [--output books.csv] [--format csv|json|dual]",
		Short: "Export to a local file, replacing it on every run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Sink = strings.ToLower(format)
			return runScrape(cmd.Context(), cfg, func(_ context.Context, metrics *scraper.Metrics) (pipeline.Exporter, error) {
				return createFileExporter(cfg.Sink, cfg.OutputFile, metrics)
			})
		},
	}
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path")
	cmd.Flags().StringVarP(&format, "format", "f", format, "Output format: csv, json, or dual")
	return cmd
}

func newSheetsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets [--sheet name] [--credentials google_creds.json]",
		Short: "Export to a Google spreadsheet, creating it if needed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Sink = "sheets"
			return runScrape(cmd.Context(), cfg, func(ctx context.Context, metrics *scraper.Metrics) (pipeline.Exporter, error) {
				service, err := pipeline.NewGoogleSheets(ctx, cfg.CredentialsFile)
				if err != nil {
					return nil, err
				}
				exporter := pipeline.NewSheetsExporter(service, cfg.SheetName, cfg.ShareWith)
				exporter.Observer = metrics
				return exporter, nil
			})
		},
	}
	cmd.Flags().StringVar(&cfg.SheetName, "sheet", cfg.SheetName, "Spreadsheet name")
	cmd.Flags().StringVar(&cfg.CredentialsFile, "credentials", cfg.CredentialsFile, "Service-account key file")
	cmd.Flags().StringVar(&cfg.ShareWith, "share-with", cfg.ShareWith, "Account granted edit access when the spreadsheet is created")
	return cmd
}

func createFileExporter(format, filename string, metrics *scraper.Metrics) (pipeline.Exporter, error) {
	switch format {
	case "csv":
		exporter := pipeline.NewFileExporter(filename, pipeline.FormatCSV)
		exporter.Observer = metrics
		return exporter, nil
	case "json":
		exporter := pipeline.NewFileExporter(filename, pipeline.FormatJSON)
		exporter.Observer = metrics
		return exporter, nil
	case "dual":
		base := strings.TrimSuffix(strings.TrimSuffix(filename, ".csv"), ".json")
		csvExporter := pipeline.NewFileExporter(base+".csv", pipeline.FormatCSV)
		csvExporter.Observer = metrics
		return pipeline.NewMultiExporter(
			csvExporter,
			pipeline.NewFileExporter(base+".json", pipeline.FormatJSON),
		), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
