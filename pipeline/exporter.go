// Package pipeline deduplicates scraped records and hands them to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/bookscrape/models"
)

// Exporter writes a record sequence to a sink and returns how many rows
// were written. An empty sequence is a successful no-op.
type Exporter interface {
	Export(ctx context.Context, records []models.Record) (int, error)
}

// DuplicateObserver is told how many rows deduplication removed.
type DuplicateObserver interface {
	AddDuplicates(n int)
}

// prepare applies the checks every sink shares. It reports false when there
// is nothing to write.
func prepare(records []models.Record, sink string, observer DuplicateObserver) ([]models.Record, bool) {
	if len(records) == 0 {
		slog.Warn("no data collected, skipping export", slog.String("sink", sink))
		return nil, false
	}

	rows := Dedupe(records)
	if dropped := len(records) - len(rows); dropped > 0 {
		slog.Debug("dropped duplicate rows", slog.String("sink", sink), slog.Int("duplicates", dropped))
		if observer != nil {
			observer.AddDuplicates(dropped)
		}
	}
	return rows, true
}

// MultiExporter fans the same records out to several sinks.
type MultiExporter struct {
	Exporters []Exporter
}

// NewMultiExporter returns an exporter writing to every sink in order.
func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{Exporters: exporters}
}

// Export writes to each sink, continuing past failures. The returned count
// is the largest any sink reported.
func (m *MultiExporter) Export(ctx context.Context, records []models.Record) (int, error) {
	var (
		count int
		errs  []error
	)
	for i, exporter := range m.Exporters {
		n, err := exporter.Export(ctx, records)
		if err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
			continue
		}
		if n > count {
			count = n
		}
	}
	return count, errors.Join(errs...)
}
