package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aluiziolira/bookscrape/models"
)

// Format selects the file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FileExporter overwrites a local file with the deduplicated records.
type FileExporter struct {
	Path     string
	Format   Format
	Observer DuplicateObserver
}

// NewFileExporter returns a file sink for path.
func NewFileExporter(path string, format Format) *FileExporter {
	return &FileExporter{Path: path, Format: format}
}

// Export replaces the file at Path. The new content is written to a
// temporary file in the same directory and renamed into place, so readers
// see either the previous file or the complete new one.
func (fe *FileExporter) Export(ctx context.Context, records []models.Record) (int, error) {
	rows, ok := prepare(records, "file", fe.Observer)
	if !ok {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var encode func(io.Writer, []models.Record) error
	switch fe.Format {
	case FormatCSV, "":
		encode = encodeCSV
	case FormatJSON:
		encode = encodeJSONLines
	default:
		return 0, fmt.Errorf("unsupported format: %s", fe.Format)
	}

	if err := writeAtomic(fe.Path, func(w io.Writer) error {
		return encode(w, rows)
	}); err != nil {
		return 0, err
	}

	slog.Info("data saved",
		slog.String("path", fe.Path),
		slog.String("format", string(fe.Format)),
		slog.Int("records", len(rows)),
	)
	return len(rows), nil
}

func encodeCSV(w io.Writer, rows []models.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(models.Header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := writer.Write(r.Row()); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

func encodeJSONLines(w io.Writer, rows []models.Record) error {
	buffer := bufio.NewWriter(w)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, r := range rows {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

func writeAtomic(filename string, write func(io.Writer) error) (err error) {
	if err := ensureDir(filename); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replace %q: %w", filename, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
