// Package report persists and renders the result table of a run.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

// Header is the CSV header row. The leading empty column holds the row index.
var Header = []string{"", "branch", "id", "compile", "test", "reached", "failed"}

// WriteCSV overwrites path with one row per record
func WriteCSV(path string, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := Encode(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes records as CSV to w
func Encode(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for i, rec := range records {
		row := []string{
			strconv.Itoa(i),
			rec.Branch,
			rec.ID,
			flag(rec.Compile),
			flag(rec.Test),
			string(rec.Reached),
			string(rec.Failed),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a report written by WriteCSV
func ReadCSV(path string) ([]domain.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses CSV produced by Encode. Reports from older runs that only
// carry the branch/id/compile/test columns are accepted.
func Decode(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("reading report: missing header")
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < 5 {
			return nil, fmt.Errorf("report row %d: want at least 5 columns, got %d", n+1, len(row))
		}
		rec := domain.Record{
			Branch:  row[1],
			ID:      row[2],
			Compile: parseFlag(row[3]),
			Test:    parseFlag(row[4]),
		}
		if len(row) > 6 {
			rec.Reached = domain.ParseStage(row[5])
			rec.Failed = domain.ParseStage(row[6])
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes the report if it exists and reports whether it did
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("removing report: %w", err)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseFlag(s string) bool {
	switch s {
	case "1", "1.0", "true", "True":
		return true
	}
	return false
}
