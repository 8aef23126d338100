package core

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/BookFetch/internal/crawlers"
	"github.com/RecoveryAshes/BookFetch/internal/models"
	"github.com/RecoveryAshes/BookFetch/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topPage = `<html><body>
<h2 id="books-last1">Top 100 EBooks yesterday</h2>
<ol>
  <li><a href="/ebooks/84">Frankenstein</a></li>
  <li><a href="/ebooks/1342">Pride and Prejudice</a></li>
  <li>removed title</li>
  <li><a href="/ebooks/11">Alice</a></li>
</ol>
</body></html>`

// newCatalogServer 模拟排行榜页和条目正文
// /files/404.txt 返回404错误页
func newCatalogServer(t *testing.T, indexStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/top", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(indexStatus)
		fmt.Fprint(w, topPage)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/files/"), ".txt")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if id == "404" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, "not found")
			return
		}
		fmt.Fprintf(w, "TEXT OF %s", id)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHarvester(t *testing.T, srv *httptest.Server, mutate func(*Config)) (*Harvester, *Config) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Source.IndexURL = srv.URL + "/top"
	cfg.Fetch.ItemURLTemplate = srv.URL + "/files/{id}.txt"
	cfg.Fetch.TimeoutSec = 5
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Progress = false
	cfg.Report.Dir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	hm, err := NewHeaderManager(tempHeadersFile(t, ""), nil)
	require.NoError(t, err)

	h, err := NewHarvester(cfg, hm)
	require.NoError(t, err)
	h.ProgressOutput = io.Discard
	t.Cleanup(func() { _ = h.Close() })
	return h, cfg
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestHarvester_Run(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)
	h, cfg := newTestHarvester(t, srv, nil)

	report, err := h.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, models.RunStatusCompleted, report.Status)
	assert.Equal(t, []models.Identifier{"84", "1342", "11"}, report.Identifiers)
	assert.Equal(t, 3, report.Stats.ListedIDs)
	assert.Equal(t, 1, report.Stats.SkippedItems)
	assert.Equal(t, 3, report.Stats.WrittenFiles)
	assert.Equal(t, http.StatusOK, report.Stats.IndexStatus)
	assert.Empty(t, report.Stats.IndexError)

	assert.Equal(t, "TEXT OF 84", readFile(t, filepath.Join(cfg.Output.Dir, "book-0")))
	assert.Equal(t, "TEXT OF 1342", readFile(t, filepath.Join(cfg.Output.Dir, "book-1")))
	assert.Equal(t, "TEXT OF 11", readFile(t, filepath.Join(cfg.Output.Dir, "book-2")))

	require.Len(t, report.Files, 3)
	assert.Equal(t, models.Identifier("1342"), report.Files[1].Identifier)
	assert.Equal(t, srv.URL+"/files/1342.txt", report.Files[1].URL)
	assert.Equal(t, int64(len("TEXT OF 84")+len("TEXT OF 1342")+len("TEXT OF 11")), report.Stats.TotalSize)

	data, err := os.ReadFile(filepath.Join(cfg.Report.Dir, report.RunID, utils.ReportFileName))
	require.NoError(t, err)
	var saved models.HarvestReport
	require.NoError(t, saved.FromJSON(data))
	assert.Equal(t, report.RunID, saved.RunID)
	assert.Equal(t, models.RunStatusCompleted, saved.Status)
}

func TestHarvester_IndexNotSuccess(t *testing.T) {
	srv := newCatalogServer(t, http.StatusServiceUnavailable)
	h, cfg := newTestHarvester(t, srv, nil)

	report, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusEmpty, report.Status)
	assert.Equal(t, http.StatusServiceUnavailable, report.Stats.IndexStatus)
	assert.NotEmpty(t, report.Stats.IndexError)
	assert.Zero(t, report.Stats.WrittenFiles)

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHarvester_Strict(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)
	h, cfg := newTestHarvester(t, srv, func(c *Config) { c.Source.Strict = true })

	report, err := h.Run(context.Background())
	var extractionErr *crawlers.ExtractionError
	require.ErrorAs(t, err, &extractionErr)

	assert.Equal(t, models.RunStatusFailed, report.Status)
	assert.Equal(t, 1, report.Stats.SkippedItems)
	assert.NotEmpty(t, report.Stats.IndexError)

	entries, _ := os.ReadDir(cfg.Output.Dir)
	assert.Empty(t, entries)
}

func TestHarvester_PresetIdentifiers(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)
	h, cfg := newTestHarvester(t, srv, func(c *Config) {
		c.Output.Naming = string(models.NamingIdentifier)
		// 预置列表时不访问索引页
		c.Source.IndexURL = "http://127.0.0.1:1/unreachable"
	})
	h.SetIdentifiers(models.IdentifierList{"2701", "98"})

	report, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Stats.WrittenFiles)
	assert.Zero(t, report.Stats.IndexStatus)
	assert.Equal(t, "TEXT OF 2701", readFile(t, filepath.Join(cfg.Output.Dir, "book-2701")))
	assert.Equal(t, "TEXT OF 98", readFile(t, filepath.Join(cfg.Output.Dir, "book-98")))
}

func TestHarvester_ErrorPages(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)

	t.Run("默认写入错误页正文", func(t *testing.T) {
		h, cfg := newTestHarvester(t, srv, nil)
		h.SetIdentifiers(models.IdentifierList{"1", "404", "2"})

		report, err := h.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, report.Stats.WrittenFiles)
		assert.Equal(t, 1, report.Stats.ErrorPages)
		assert.Equal(t, "not found", readFile(t, filepath.Join(cfg.Output.Dir, "book-1")))
	})

	t.Run("check_status时中止", func(t *testing.T) {
		h, cfg := newTestHarvester(t, srv, func(c *Config) { c.Fetch.CheckStatus = true })
		h.SetIdentifiers(models.IdentifierList{"1", "404", "2"})

		report, err := h.Run(context.Background())
		require.ErrorIs(t, err, crawlers.ErrUnexpectedStatus)

		assert.Equal(t, models.RunStatusPartial, report.Status)
		assert.Equal(t, 1, report.Stats.WrittenFiles)
		assert.Equal(t, 1, report.Stats.FailedItems)
		require.Len(t, report.FailedItems, 1)
		assert.Equal(t, models.Identifier("404"), report.FailedItems[0].Identifier)

		_, statErr := os.Stat(filepath.Join(cfg.Output.Dir, "book-2"))
		assert.True(t, os.IsNotExist(statErr))

		data, err := os.ReadFile(filepath.Join(cfg.Report.Dir, report.RunID, utils.FailedItemsFileName))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"identifier": "404"`)
	})

	t.Run("check_status加continue_on_error", func(t *testing.T) {
		h, _ := newTestHarvester(t, srv, func(c *Config) {
			c.Fetch.CheckStatus = true
			c.Download.ContinueOnError = true
		})
		h.SetIdentifiers(models.IdentifierList{"1", "404", "2"})

		report, err := h.Run(context.Background())
		require.Error(t, err)

		assert.Equal(t, models.RunStatusPartial, report.Status)
		assert.Equal(t, 2, report.Stats.WrittenFiles)
		assert.Equal(t, 1, report.Stats.FailedItems)
	})
}

func TestHarvester_ReportDisabled(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)
	h, cfg := newTestHarvester(t, srv, func(c *Config) { c.Report.Enabled = false })

	_, err := h.Run(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(cfg.Report.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHarvester_List(t *testing.T) {
	srv := newCatalogServer(t, http.StatusOK)
	h, _ := newTestHarvester(t, srv, func(c *Config) { c.Source.Limit = 2 })

	result, err := h.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.IdentifierList{"84", "1342"}, result.Identifiers)
}

func TestNewHarvester_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Naming = "random"

	_, err := NewHarvester(cfg, nil)
	assert.Error(t, err)
}
