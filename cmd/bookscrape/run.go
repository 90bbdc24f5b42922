package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/bookscrape/config"
	"github.com/aluiziolira/bookscrape/models"
	"github.com/aluiziolira/bookscrape/pipeline"
	"github.com/aluiziolira/bookscrape/scraper"
)

type exporterFactory func(ctx context.Context, metrics *scraper.Metrics) (pipeline.Exporter, error)

func runScrape(ctx context.Context, cfg *config.Config, newExporter exporterFactory) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	metrics := scraper.NewMetrics()
	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, metrics)
		defer stopMetrics()
	}

	// Built before scraping so bad credentials fail fast.
	exporter, err := newExporter(ctx, metrics)
	if err != nil {
		return fmt.Errorf("creating exporter: %w", err)
	}

	fetcher, err := scraper.NewFetcher(cfg, metrics)
	if err != nil {
		return fmt.Errorf("initialising fetcher: %w", err)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("start_page", cfg.StartPage),
		slog.Int("end_page", cfg.EndPage),
		slog.String("sink", cfg.Sink),
	)

	records, result, err := scraper.NewPager(cfg, fetcher, metrics).Run(ctx)
	if err != nil {
		return fmt.Errorf("scraping interrupted after %d page(s): %w", result.PageCount, err)
	}

	written, err := exporter.Export(ctx, records)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	metrics.AddExported(written)

	printSummary(result, written, target(cfg))
	return nil
}

func serveMetrics(addr string, metrics *scraper.Metrics) func() {
	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func target(cfg *config.Config) string {
	if cfg.Sink == "sheets" {
		return "spreadsheet " + cfg.SheetName
	}
	return cfg.OutputFile
}

func printSummary(result *models.RunResult, written int, target string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Retries:       %d\n", result.RetryCount)
	fmt.Printf("  Failed pages:  %d\n", len(result.FailedURLs))
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Scraped:       %d\n", result.RecordCount)
	if result.InvalidCount > 0 {
		fmt.Printf("  Incomplete:    %d\n", result.InvalidCount)
	}
	fmt.Printf("  Written:       %d\n", written)
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output:        %s\n", target)
	fmt.Println(separator)
}
