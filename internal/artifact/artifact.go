// Package artifact writes the per-run CSV of security prices.
package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"securityprices/internal/provider"
)

// Header is the first row of every artifact.
var Header = []string{"SECURITY", "LAST", "52-WK H", "52-WK L"}

var ErrBadHeader = errors.New("unexpected artifact header")

// FileName derives the artifact name from the run start time.
func FileName(t time.Time) string {
	return "Security_Prices_" + t.Format("2006-01-02-1504-05") + ".CSV"
}

// File is an artifact on disk. It holds no open handle between appends.
type File struct {
	Path string
}

// Create makes dir if needed and writes a fresh artifact holding only the
// header. An existing file of the same name is an error.
func Create(dir string, now time.Time) (*File, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	if err := writeRows(f, [][]string{Header}); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close artifact: %w", err)
	}
	return &File{Path: path}, nil
}

// Append opens the artifact in append mode, writes one row per quote,
// then flushes and closes it.
func (a *File) Append(quotes []provider.Quote) error {
	f, err := os.OpenFile(a.Path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	rows := make([][]string, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, []string{
			q.Symbol,
			formatFloat(q.Last),
			formatFloat(q.YearHigh),
			formatFloat(q.YearLow),
		})
	}
	if err := writeRows(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}

// writeRows uses the spreadsheet dialect: comma delimited, CRLF endings,
// quoting only where needed.
func writeRows(f *os.File, rows [][]string) error {
	w := csv.NewWriter(f)
	w.UseCRLF = true
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Read loads a finished artifact, checking the header and parsing the
// numeric columns back into quotes.
func Read(path string) ([]provider.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	if len(records) == 0 || !slices.Equal(records[0], Header) {
		return nil, ErrBadHeader
	}

	out := make([]provider.Quote, 0, len(records)-1)
	for i, rec := range records[1:] {
		var q provider.Quote
		q.Symbol = rec[0]
		for j, dst := range []*float64{&q.Last, &q.YearHigh, &q.YearLow} {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+2, Header[j+1], err)
			}
			*dst = v
		}
		out = append(out, q)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
