package pipeline

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleSheets implements SpreadsheetService with the Sheets and Drive APIs.
type GoogleSheets struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewGoogleSheets authenticates with a service-account key file.
func NewGoogleSheets(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*GoogleSheets, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}, opts...)
	return newGoogleSheets(ctx, opts...)
}

func newGoogleSheets(ctx context.Context, opts ...option.ClientOption) (*GoogleSheets, error) {
	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &GoogleSheets{sheets: sheetsService, drive: driveService}, nil
}

func (g *GoogleSheets) FindSpreadsheet(ctx context.Context, name string) (string, bool, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)
	list, err := g.drive.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, err
	}
	if len(list.Files) == 0 {
		return "", false, nil
	}
	return list.Files[0].Id, true, nil
}

func (g *GoogleSheets) CreateSpreadsheet(ctx context.Context, name string) (string, error) {
	created, err := g.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: name},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.SpreadsheetId, nil
}

func (g *GoogleSheets) ShareSpreadsheet(ctx context.Context, id, email string) error {
	_, err := g.drive.Permissions.Create(id, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).Context(ctx).Do()
	return err
}

func (g *GoogleSheets) FirstWorksheet(ctx context.Context, id string) (string, error) {
	spreadsheet, err := g.sheets.Spreadsheets.Get(id).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", id)
	}
	return spreadsheet.Sheets[0].Properties.Title, nil
}

func (g *GoogleSheets) ClearWorksheet(ctx context.Context, id, worksheet string) error {
	_, err := g.sheets.Spreadsheets.Values.
		Clear(id, quoteSheetName(worksheet), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheets) WriteRows(ctx context.Context, id, worksheet string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	_, err := g.sheets.Spreadsheets.Values.
		Update(id, quoteSheetName(worksheet)+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// escapeQuery escapes a literal for a Drive search query.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// quoteSheetName quotes a worksheet title for A1 notation.
func quoteSheetName(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
