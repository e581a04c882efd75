// Package fileparser extracts text content from uploaded files so it can be
// handed to the assistant. Plain text, CSV, and JSON are handled in process;
// PDF and Word documents go through an Apache Tika server.
package fileparser

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ErrUnsupported marks file types the parser cannot extract. Callers treat
// it as a degraded path, not a request failure.
var ErrUnsupported = errors.New("unsupported file type")

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".py":   true,
	".js":   true,
	".go":   true,
	".xml":  true,
	".html": true,
	".css":  true,
}

// Extraction is the extracted text plus format metadata used to build the
// assistant's acknowledgment.
type Extraction struct {
	Content string
	Kind    string
	Rows    int
	Columns int
}

type Parser struct {
	tikaURL string
	client  *http.Client
}

// New creates a parser. tikaURL may be empty, in which case PDF and Word
// extraction report ErrUnsupported.
func New(tikaURL string) *Parser {
	return &Parser{
		tikaURL: strings.TrimRight(tikaURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Extract reads the file at path and returns its text content. The file
// type is decided by extension.
func (p *Parser) Extract(ctx context.Context, path string) (*Extraction, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		return extractText(path)
	case ext == ".csv":
		return extractCSV(path)
	case ext == ".json":
		return extractJSON(path)
	case ext == ".pdf" || ext == ".docx" || ext == ".doc":
		return p.extractViaTika(ctx, path, ext)
	default:
		return nil, errors.Wrapf(ErrUnsupported, "%s", ext)
	}
}

func extractText(path string) (*Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return &Extraction{Content: string(raw), Kind: "text"}, nil
}

func extractCSV(path string) (*Extraction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Uploaded spreadsheets are often ragged.
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse csv %s", path)
	}
	if len(rows) == 0 {
		return nil, errors.New("CSV file is empty")
	}

	headers := rows[0]
	dataRows := rows[1:]

	var b strings.Builder
	b.WriteString("CSV File Content:\n\n")
	fmt.Fprintf(&b, "Headers: %s\n", strings.Join(headers, ", "))
	fmt.Fprintf(&b, "Total rows: %d\n\n", len(dataRows))
	b.WriteString("Data:\n")
	shown := dataRows
	if len(shown) > 50 {
		shown = shown[:50]
	}
	for i, row := range shown {
		fmt.Fprintf(&b, "Row %d: %s\n", i+1, strings.Join(row, ", "))
	}
	if len(dataRows) > 50 {
		fmt.Fprintf(&b, "\n... and %d more rows", len(dataRows)-50)
	}

	return &Extraction{
		Content: b.String(),
		Kind:    "csv",
		Rows:    len(dataRows),
		Columns: len(headers),
	}, nil
}

func extractJSON(path string) (*Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return nil, errors.Wrapf(err, "failed to parse json %s", path)
	}
	return &Extraction{
		Content: "JSON File Content:\n\n" + pretty.String(),
		Kind:    "json",
	}, nil
}

// extractViaTika sends the file body to the Tika server's /tika endpoint
// and reads back plain text.
func (p *Parser) extractViaTika(ctx context.Context, path, ext string) (*Extraction, error) {
	if p.tikaURL == "" {
		return nil, errors.Wrapf(ErrUnsupported, "%s extraction requires a Tika server", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.tikaURL+"/tika", f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct tika request")
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reach tika server")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read tika response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("tika extraction failed, status code: %d, response body: %s", resp.StatusCode, body)
	}

	kind := "pdf"
	if ext != ".pdf" {
		kind = "docx"
	}
	label := "PDF"
	if kind == "docx" {
		label = "Word Document"
	}
	return &Extraction{
		Content: fmt.Sprintf("%s File Content:\n\n%s", label, strings.TrimSpace(string(body))),
		Kind:    kind,
	}, nil
}

// Summarize truncates extracted content to roughly maxTokens tokens at four
// characters per token, appending a notice when it cuts.
func Summarize(content string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(content) <= maxChars {
		return content
	}
	// Back off to a rune boundary so the cut never leaves invalid UTF-8.
	for maxChars > 0 && !utf8.RuneStart(content[maxChars]) {
		maxChars--
	}
	return content[:maxChars] + fmt.Sprintf("\n\n[Content truncated - showing first %d tokens of file]", maxTokens)
}
