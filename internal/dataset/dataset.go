// Package dataset loads the spreadsheets into tables. Sources are local CSV
// or XLSX files, or published Google Sheets CSV URLs. Loading is tolerant:
// ragged rows are padded, the delimiter is sniffed, and Latin-1 exports are
// transcoded.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/evinicim/metalab-insights/internal/table"
)

// Options controls loading. The zero value is usable; DefaultOptions fills
// in the limits.
type Options struct {
	// Delimiter forces the CSV field separator; 0 means sniff.
	Delimiter rune
	// MaxRows caps the number of data rows read per table.
	MaxRows int
	// Sheet selects an XLSX sheet by name; empty means SheetIndex.
	Sheet string
	// SheetIndex selects an XLSX sheet by position when Sheet is empty.
	SheetIndex int
	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration
}

// DefaultOptions returns the limits used by the CLI.
func DefaultOptions() Options {
	return Options{MaxRows: 20000, Timeout: 30 * time.Second}
}

// ReadFile loads a local file, dispatching on the extension.
func ReadFile(path string, opt Options) (*table.Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path, opt)
	}
	return ReadCSV(path, opt)
}

// ReadCSV loads a CSV or TSV file.
func ReadCSV(path string, opt Options) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	return parseCSV(tableName(path), data, opt)
}

func parseCSV(name string, data []byte, opt Options) (*table.Table, error) {
	// Sheets exported from older tooling arrive as Windows-1252.
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("transcode csv: %w", err)
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.New(name, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := table.New(name, header)
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = int(^uint(0) >> 1)
	}
	for t.NumRows() < maxRows {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.NumRows()+2, err)
		}
		if allEmpty(rec) {
			continue
		}
		t.AppendRow(rec)
	}
	return t, nil
}

// sniffDelimiter picks the separator with the most occurrences in the header
// line, defaulting to comma.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, c := range []byte{';', '\t'} {
		if n := bytes.Count(line, []byte{c}); n > bestCount {
			best, bestCount = rune(c), n
		}
	}
	return best
}

func allEmpty(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadXLSX loads one sheet of a workbook, selected by Options.Sheet or
// Options.SheetIndex. The first row is the header.
func ReadXLSX(path string, opt Options) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if opt.SheetIndex < 0 || opt.SheetIndex >= len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (%d sheets)", opt.SheetIndex, len(sheets))
		}
		sheet = sheets[opt.SheetIndex]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.New(tableName(path), nil), nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	t := table.New(tableName(path), header)
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = int(^uint(0) >> 1)
	}
	for _, rec := range rows[1:] {
		if t.NumRows() >= maxRows {
			break
		}
		if allEmpty(rec) {
			continue
		}
		t.AppendRow(rec)
	}
	return t, nil
}

// Fetch downloads a published CSV, like a Google Sheets "publish to web"
// export, and parses it. name becomes the table name.
func Fetch(ctx context.Context, name, url string, opt Options) (*table.Table, error) {
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %q: unexpected status %s", name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return parseCSV(name, data, opt)
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
