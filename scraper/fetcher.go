package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/bookscrape/config"
)

// FetchStats counts the HTTP traffic a Fetcher has generated.
type FetchStats struct {
	Requests int
	Retries  int
}

// Fetcher issues GET requests through a synchronous colly collector and
// retries transient failures according to its RetryPolicy.
//
// A Fetcher handles one request at a time and is not safe for concurrent use.
type Fetcher struct {
	collector *colly.Collector
	policy    RetryPolicy
	metrics   *Metrics
	sleep     sleepFunc

	stats FetchStats

	// filled by the collector callbacks during an attempt
	body   []byte
	status int
}

// NewFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	f := &Fetcher{
		collector: collector,
		policy:    NewRetryPolicy(cfg),
		metrics:   metrics,
		sleep:     sleepContext,
	}

	collector.OnResponse(func(r *colly.Response) {
		f.status = r.StatusCode
		f.body = r.Body
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			f.status = r.StatusCode
		}
	})

	return f, nil
}

// Stats returns the request and retry counts so far.
func (f *Fetcher) Stats() FetchStats {
	return f.stats
}

// Fetch returns the body and status of a successful GET of pageURL. When the
// attempts run out, or the failure is not retryable, it returns a *FetchError
// carrying the last status and cause.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var fetchErr *FetchError
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		slog.Info("scraping",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
		)

		body, status, err := f.attempt(pageURL)
		if err == nil {
			f.metrics.IncAttempt("success")
			return body, status, nil
		}

		classified := classifyError(err, status)
		category := errorTypeLabel(classified)
		f.metrics.IncAttempt("failure")
		f.metrics.IncError(category)
		fetchErr = &FetchError{URL: pageURL, Attempts: attempt, Status: status, Err: classified}

		retryable := f.policy.Retryable(status) || (status == 0 && transient(classified))
		if !retryable || attempt == f.policy.MaxAttempts {
			slog.Warn("request failed",
				slog.String("url", pageURL),
				slog.String("category", category),
				slog.Int("attempts", attempt),
				slog.Any("error", classified),
			)
			return nil, status, fetchErr
		}

		delay := f.policy.Backoff(attempt)
		slog.Warn("retrying request",
			slog.String("url", pageURL),
			slog.String("category", category),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)
		if err := f.sleep(ctx, delay); err != nil {
			fetchErr.Err = err
			return nil, status, fetchErr
		}
		f.stats.Retries++
		f.metrics.IncRetries()
	}
	return nil, 0, fetchErr
}

func (f *Fetcher) attempt(pageURL string) ([]byte, int, error) {
	f.body, f.status = nil, 0
	f.stats.Requests++

	start := time.Now()
	err := f.collector.Visit(pageURL)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		return nil, f.status, err
	}
	return f.body, f.status, nil
}
