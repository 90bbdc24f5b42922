package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/bookscrape/models"
)

type fakeFetcher struct {
	calls []string
	pages map[string]string
	fail  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) ([]byte, int, error) {
	f.calls = append(f.calls, pageURL)
	if err, ok := f.fail[pageURL]; ok {
		return nil, 0, err
	}
	body, ok := f.pages[pageURL]
	if !ok {
		return nil, http.StatusNotFound, &FetchError{URL: pageURL, Attempts: 1, Status: http.StatusNotFound, Err: classifyError(nil, http.StatusNotFound)}
	}
	return []byte(body), http.StatusOK, nil
}

func newTestPager(fetcher PageFetcher, start, end int) (*Pager, *sleepRecorder) {
	cfg := testConfig()
	cfg.StartPage = start
	cfg.EndPage = end

	p := NewPager(cfg, fetcher, NewMetrics())
	rec := &sleepRecorder{}
	p.sleep = rec.sleep
	p.delay = func() time.Duration { return 2 * time.Second }
	return p, rec
}

func TestPagerFetchesEachPageInOrder(t *testing.T) {
	tests := []struct{ start, end int }{{1, 1}, {1, 3}, {4, 8}}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%d", tt.start, tt.end), func(t *testing.T) {
			fetcher := &fakeFetcher{pages: map[string]string{}}
			p, rec := newTestPager(fetcher, tt.start, tt.end)

			if _, _, err := p.Run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}

			want := tt.end - tt.start + 1
			if len(fetcher.calls) != want {
				t.Fatalf("fetches=%d, want %d", len(fetcher.calls), want)
			}
			for i, got := range fetcher.calls {
				if exp := p.cfg.PageURL(tt.start + i); got != exp {
					t.Fatalf("fetch %d = %s, want %s", i, got, exp)
				}
			}
			if len(rec.delays) != want-1 {
				t.Fatalf("delays=%d, want %d", len(rec.delays), want-1)
			}
		})
	}
}

func TestPagerAbsorbsFailedPages(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{
		pages: map[string]string{
			cfg.PageURL(1): buildCatalogPage(1, 2),
			cfg.PageURL(3): buildCatalogPage(3, 2),
		},
		fail: map[string]error{
			cfg.PageURL(2): &FetchError{URL: cfg.PageURL(2), Attempts: 4, Status: 503, Err: ErrServer{Status: 503, Err: errors.New("busy")}},
		},
	}
	p, _ := newTestPager(fetcher, 1, 3)

	records, result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"Book 1-1", "Book 1-2", "Book 3-1", "Book 3-2"}
	if len(records) != len(want) {
		t.Fatalf("records=%d, want %d", len(records), len(want))
	}
	for i, name := range want {
		if records[i].Name != name {
			t.Fatalf("record %d = %q, want %q", i, records[i].Name, name)
		}
	}
	if result.ErrorCount != 1 || result.ErrorsByType["server"] != 1 {
		t.Fatalf("errors=%d byType=%v", result.ErrorCount, result.ErrorsByType)
	}
	if len(result.FailedURLs) != 1 || result.FailedURLs[0] != cfg.PageURL(2) {
		t.Fatalf("failed urls=%v", result.FailedURLs)
	}
	if result.PageCount != 3 || result.RecordCount != 4 {
		t.Fatalf("pages=%d records=%d", result.PageCount, result.RecordCount)
	}
}

func TestPagerStopOnEmpty(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{pages: map[string]string{
		cfg.PageURL(1): buildCatalogPage(1, 3),
		cfg.PageURL(2): buildCatalogPage(2, 0),
		cfg.PageURL(3): buildCatalogPage(3, 3),
	}}
	p, rec := newTestPager(fetcher, 1, 5)
	p.cfg.StopOnEmpty = true

	records, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if len(fetcher.calls) != 2 || len(rec.delays) != 1 {
		t.Fatalf("fetches=%d delays=%d, want 2/1", len(fetcher.calls), len(rec.delays))
	}
}

func TestPagerCancelled(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	p, _ := newTestPager(fetcher, 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, _, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("fetches=%d, want 1", len(fetcher.calls))
	}
}

func TestUniformDelayBounds(t *testing.T) {
	min, max := 1500*time.Millisecond, 3500*time.Millisecond
	delay := uniformDelay(min, max)
	for i := 0; i < 1000; i++ {
		if d := delay(); d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}
	if d := uniformDelay(time.Second, time.Second)(); d != time.Second {
		t.Fatalf("degenerate interval delay = %v", d)
	}
}

func TestPagerIntegration(t *testing.T) {
	cfg := testConfig()
	cfg.StartPage = 1
	cfg.EndPage = 3

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", cfg.PageURL(1), htmlResponder(buildCatalogPage(1, 20)))
	transport.RegisterResponder("GET", cfg.PageURL(2), htmlResponder(buildCatalogPage(2, 20)))
	transport.RegisterResponder("GET", cfg.PageURL(3), httpmock.NewStringResponder(http.StatusNotFound, "<h1>404 Not Found</h1>"))

	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(transport)
	f.sleep = (&sleepRecorder{}).sleep

	p := NewPager(cfg, f, f.metrics)
	p.sleep = (&sleepRecorder{}).sleep

	records, result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(records) != 40 {
		t.Fatalf("records=%d, want 40 (failed=%v)", len(records), result.FailedURLs)
	}
	want := models.Record{Name: "Book 2-1", Price: "£2.01", Availability: "In stock"}
	if records[20] != want {
		t.Fatalf("record 20 = %+v, want %+v", records[20], want)
	}
	if result.RequestCount != 3 || result.RetryCount != 0 {
		t.Fatalf("requests=%d retries=%d, want 3/0", result.RequestCount, result.RetryCount)
	}
	if result.ErrorsByType["not_found"] != 1 {
		t.Fatalf("errors by type = %v", result.ErrorsByType)
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func buildCatalogPage(page, items int) string {
	var builder strings.Builder
	builder.WriteString("<html><body><ol class=\"row\">")

	for i := 1; i <= items; i++ {
		fmt.Fprintf(&builder, "<li><article class=\"product_pod\">")
		fmt.Fprintf(&builder, "<h3><a href=\"book-%d-%d/index.html\" title=\"Book %d-%d\">Book</a></h3>", page, i, page, i)
		fmt.Fprintf(&builder, "<p class=\"price_color\">&pound;%d.%02d</p>", page, i)
		builder.WriteString("<p class=\"instock availability\">\n  <i class=\"icon-ok\"></i>\n  In stock\n</p>")
		builder.WriteString("</article></li>")
	}

	builder.WriteString("</ol></body></html>")
	return builder.String()
}
