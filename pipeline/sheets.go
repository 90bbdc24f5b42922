package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/bookscrape/models"
)

// SpreadsheetService is the subset of a remote spreadsheet API the sheets
// sink needs. Implementations must not retry; failures surface as is.
type SpreadsheetService interface {
	// FindSpreadsheet looks up a spreadsheet by exact name.
	FindSpreadsheet(ctx context.Context, name string) (id string, found bool, err error)
	CreateSpreadsheet(ctx context.Context, name string) (id string, err error)
	// ShareSpreadsheet grants email edit access.
	ShareSpreadsheet(ctx context.Context, id, email string) error
	// FirstWorksheet returns the title of the spreadsheet's first tab.
	FirstWorksheet(ctx context.Context, id string) (title string, err error)
	ClearWorksheet(ctx context.Context, id, worksheet string) error
	// WriteRows writes rows starting at the worksheet's top-left cell.
	WriteRows(ctx context.Context, id, worksheet string, rows [][]string) error
}

// SheetsExporter replaces the first worksheet of a named spreadsheet with
// the deduplicated records, creating the spreadsheet on first use.
type SheetsExporter struct {
	service   SpreadsheetService
	name      string
	shareWith string

	Observer DuplicateObserver
}

// NewSheetsExporter returns a spreadsheet sink for name. When shareWith is
// non-empty, a newly created spreadsheet is shared with that account.
func NewSheetsExporter(service SpreadsheetService, name, shareWith string) *SheetsExporter {
	return &SheetsExporter{service: service, name: name, shareWith: shareWith}
}

// Export clears the worksheet and writes the header and rows in one call.
// Running it again with other records leaves only the new records.
func (se *SheetsExporter) Export(ctx context.Context, records []models.Record) (int, error) {
	rows, ok := prepare(records, "sheets", se.Observer)
	if !ok {
		return 0, nil
	}

	id, err := se.resolve(ctx)
	if err != nil {
		return 0, err
	}

	worksheet, err := se.service.FirstWorksheet(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("open first worksheet of %q: %w", se.name, err)
	}
	if err := se.service.ClearWorksheet(ctx, id, worksheet); err != nil {
		return 0, fmt.Errorf("clear worksheet %q: %w", worksheet, err)
	}

	values := make([][]string, 0, len(rows)+1)
	values = append(values, models.Header())
	for _, r := range rows {
		values = append(values, r.Row())
	}
	if err := se.service.WriteRows(ctx, id, worksheet, values); err != nil {
		return 0, fmt.Errorf("write worksheet %q: %w", worksheet, err)
	}

	slog.Info("data uploaded to spreadsheet",
		slog.String("spreadsheet", se.name),
		slog.String("worksheet", worksheet),
		slog.Int("records", len(rows)),
	)
	return len(rows), nil
}

func (se *SheetsExporter) resolve(ctx context.Context) (string, error) {
	id, found, err := se.service.FindSpreadsheet(ctx, se.name)
	if err != nil {
		return "", fmt.Errorf("find spreadsheet %q: %w", se.name, err)
	}
	if found {
		slog.Info("found existing spreadsheet", slog.String("spreadsheet", se.name), slog.String("id", id))
		return id, nil
	}

	id, err = se.service.CreateSpreadsheet(ctx, se.name)
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", se.name, err)
	}
	slog.Info("created new spreadsheet", slog.String("spreadsheet", se.name), slog.String("id", id))

	if se.shareWith != "" {
		if err := se.service.ShareSpreadsheet(ctx, id, se.shareWith); err != nil {
			return "", fmt.Errorf("share spreadsheet %q with %s: %w", se.name, se.shareWith, err)
		}
	}
	return id, nil
}
