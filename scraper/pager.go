package scraper

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aluiziolira/bookscrape/config"
	"github.com/aluiziolira/bookscrape/models"
	"github.com/aluiziolira/bookscrape/parser"
)

// PageFetcher retrieves the raw body of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, int, error)
}

// Extractor turns a page body into records.
type Extractor func(body []byte) ([]models.Record, error)

// Pager walks the configured page range one page at a time, pausing a random
// politeness delay between consecutive pages.
type Pager struct {
	cfg     *config.Config
	fetcher PageFetcher
	extract Extractor
	metrics *Metrics

	sleep sleepFunc
	delay func() time.Duration
}

// NewPager wires a pager around fetcher, using the catalogue extractor.
func NewPager(cfg *config.Config, fetcher PageFetcher, metrics *Metrics) *Pager {
	return &Pager{
		cfg:     cfg,
		fetcher: fetcher,
		extract: parser.ExtractRecords,
		metrics: metrics,
		sleep:   sleepContext,
		delay:   uniformDelay(cfg.MinDelay, cfg.MaxDelay),
	}
}

// Run fetches every page in [StartPage, EndPage] in ascending order and
// returns the records in page order. Pages that fail to fetch or parse
// contribute no records. When ctx is cancelled Run stops and returns the
// records gathered so far along with ctx's error.
func (p *Pager) Run(ctx context.Context) ([]models.Record, *models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	var records []models.Record
	finish := func(err error) ([]models.Record, *models.RunResult, error) {
		result.EndTime = time.Now()
		result.RecordCount = len(records)
		if s, ok := p.fetcher.(interface{ Stats() FetchStats }); ok {
			stats := s.Stats()
			result.RequestCount = stats.Requests
			result.RetryCount = stats.Retries
		}
		return records, result, err
	}

	for page := p.cfg.StartPage; page <= p.cfg.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		pageRecords := p.scrapePage(ctx, page, result)
		records = append(records, pageRecords...)

		if len(pageRecords) == 0 && p.cfg.StopOnEmpty {
			slog.Info("no records on page, stopping", slog.Int("page", page))
			break
		}
		if page == p.cfg.EndPage {
			break
		}
		if err := p.sleep(ctx, p.delay()); err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

func (p *Pager) scrapePage(ctx context.Context, page int, result *models.RunResult) []models.Record {
	pageURL := p.cfg.PageURL(page)
	result.PageCount++

	body, _, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		result.ErrorCount++
		result.FailedURLs = append(result.FailedURLs, pageURL)
		result.ErrorsByType[errorTypeLabel(err)]++
		slog.Error("page skipped",
			slog.Int("page", page),
			slog.String("url", pageURL),
			slog.Any("error", err),
		)
		return nil
	}

	records, err := p.extract(body)
	if err != nil {
		result.ErrorCount++
		result.ErrorsByType["parse"]++
		slog.Error("page parse failed",
			slog.Int("page", page),
			slog.String("url", pageURL),
			slog.Any("error", err),
		)
		return nil
	}

	for _, r := range records {
		if err := parser.ValidateRecord(r); err != nil {
			result.InvalidCount++
			slog.Debug("incomplete record", slog.String("url", pageURL), slog.Any("error", err))
		}
	}
	p.metrics.AddExtracted(len(records))
	slog.Info("page scraped",
		slog.Int("page", page),
		slog.Int("records", len(records)),
	)
	return records
}

// uniformDelay draws durations uniformly from [min, max].
func uniformDelay(min, max time.Duration) func() time.Duration {
	return func() time.Duration {
		if max <= min {
			return min
		}
		return min + time.Duration(rand.Int64N(int64(max-min)+1))
	}
}
