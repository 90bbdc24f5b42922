package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/bookscrape/config"
	"github.com/aluiziolira/bookscrape/pipeline"
)

func catalogueServer(t *testing.T, pages int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for page := 1; page <= pages; page++ {
		body := fmt.Sprintf(`<html><body>
<article class="product_pod"><h3><a title="Book %d">Book</a></h3><p class="price_color">£%d.00</p><p class="availability"> In stock </p></article>
<article class="product_pod"><h3><a title="Shared">Shared</a></h3><p class="price_color">£1.00</p><p class="availability"> In stock </p></article>
</body></html>`, page, page)
		mux.HandleFunc(fmt.Sprintf("/catalogue/page-%d.html", page), func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCSVCommandEndToEnd(t *testing.T) {
	server := catalogueServer(t, 2)
	output := filepath.Join(t.TempDir(), "books.csv")

	cfg := config.DefaultConfig()
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{
		"--base-url", server.URL,
		"--start-page", "1",
		"--end-page", "3",
		"--min-delay", "0s",
		"--max-delay", "0s",
		"--max-attempts", "1",
		"csv", "--output", output,
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Equal(t, [][]string{
		{"Name", "Price", "Availability"},
		{"Book 1", "£1.00", "In stock"},
		{"Shared", "£1.00", "In stock"},
		{"Book 2", "£2.00", "In stock"},
	}, rows)
}

func TestCSVCommandRejectsInvalidRange(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := newRootCmd(cfg)
	cmd.SetArgs([]string{"--start-page", "4", "--end-page", "2", "csv"})
	cmd.SetOut(new(discard))
	cmd.SetErr(new(discard))

	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "start page")
}

func TestCreateFileExporter(t *testing.T) {
	exporter, err := createFileExporter("dual", "out/books.csv", nil)
	require.NoError(t, err)

	multi, ok := exporter.(*pipeline.MultiExporter)
	require.True(t, ok)
	require.Len(t, multi.Exporters, 2)
	require.Equal(t, "out/books.csv", multi.Exporters[0].(*pipeline.FileExporter).Path)
	require.Equal(t, "out/books.json", multi.Exporters[1].(*pipeline.FileExporter).Path)

	_, err = createFileExporter("xml", "books.xml", nil)
	require.ErrorContains(t, err, "unsupported format")
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }
