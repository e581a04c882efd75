package fileparser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtractText(t *testing.T) {
	parser := New("")
	path := writeTempFile(t, "notes.md", "# Standup notes\n- shipped uploads")

	extraction, err := parser.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "text", extraction.Kind)
	assert.Contains(t, extraction.Content, "Standup notes")
}

func TestExtractCSV(t *testing.T) {
	parser := New("")
	path := writeTempFile(t, "tasks.csv", "ticket,title,status\nCDW-001,Login audit,Done\nCDW-002,Fix uploads,To Do\n")

	extraction, err := parser.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "csv", extraction.Kind)
	assert.Equal(t, 2, extraction.Rows)
	assert.Equal(t, 3, extraction.Columns)
	assert.Contains(t, extraction.Content, "Headers: ticket, title, status")
	assert.Contains(t, extraction.Content, "Total rows: 2")
	assert.Contains(t, extraction.Content, "Row 1: CDW-001, Login audit, Done")
}

func TestExtractCSVCapsPreviewRows(t *testing.T) {
	parser := New("")
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "%d,v%d\n", i, i)
	}
	path := writeTempFile(t, "big.csv", b.String())

	extraction, err := parser.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 80, extraction.Rows)
	assert.Contains(t, extraction.Content, "... and 30 more rows")
	assert.NotContains(t, extraction.Content, "Row 51:")
}

func TestExtractJSONPrettyPrints(t *testing.T) {
	parser := New("")
	path := writeTempFile(t, "config.json", `{"name":"doit","retries":3}`)

	extraction, err := parser.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "json", extraction.Kind)
	assert.Contains(t, extraction.Content, "JSON File Content:")
	assert.Contains(t, extraction.Content, "  \"name\": \"doit\"")
}

func TestExtractUnsupportedExtension(t *testing.T) {
	parser := New("")
	path := writeTempFile(t, "image.png", "not really an image")

	_, err := parser.Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestExtractPDFRequiresTika(t *testing.T) {
	parser := New("")
	path := writeTempFile(t, "report.pdf", "%PDF-1.4")

	_, err := parser.Extract(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestExtractViaTika(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))
		fmt.Fprint(w, "  Quarterly report body  ")
	}))
	defer server.Close()

	parser := New(server.URL)
	path := writeTempFile(t, "report.pdf", "%PDF-1.4")

	extraction, err := parser.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "pdf", extraction.Kind)
	assert.Equal(t, "PDF File Content:\n\nQuarterly report body", extraction.Content)
}

func TestExtractViaTikaFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unprocessable", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	parser := New(server.URL)
	path := writeTempFile(t, "broken.docx", "garbage")

	_, err := parser.Extract(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status code: 422")
}

func TestSummarize(t *testing.T) {
	short := "fits as is"
	assert.Equal(t, short, Summarize(short, 100))

	long := strings.Repeat("x", 500)
	summarized := Summarize(long, 100)
	assert.True(t, strings.HasPrefix(summarized, strings.Repeat("x", 400)))
	assert.Contains(t, summarized, "[Content truncated - showing first 100 tokens of file]")
	assert.NotContains(t, summarized, strings.Repeat("x", 401))
}

func TestSummarizeKeepsRuneBoundary(t *testing.T) {
	// 500 three-byte runes; the 400-byte cut would land mid-rune.
	long := strings.Repeat("日", 500)
	summarized := Summarize(long, 100)

	assert.True(t, utf8.ValidString(summarized))
	assert.True(t, strings.HasPrefix(summarized, strings.Repeat("日", 133)))
	assert.Contains(t, summarized, "[Content truncated - showing first 100 tokens of file]")
}
