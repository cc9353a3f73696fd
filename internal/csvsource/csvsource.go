package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// candidateColumns are matched, in priority order, case-insensitively
// against the header row.
var candidateColumns = []string{"image_url", "url"}

// Common errors.
var (
	ErrNoURLColumn = errors.New("csvsource: no image_url or url column found")
	ErrEmptyFile   = errors.New("csvsource: file has no header row")
)

// Source is the URL column extracted from a CSV export.
type Source struct {
	// Column is the detected header name, as written in the file.
	Column string

	// URLs holds the raw column values in row order. Blank values are
	// preserved; the pipeline counts them as skipped.
	URLs []string
}

// Stats counts usable versus blank values.
func (s *Source) Stats() (valid, blank int) {
	for _, u := range s.URLs {
		if strings.TrimSpace(u) == "" {
			blank++
		} else {
			valid++
		}
	}
	return valid, blank
}

// Read loads the CSV at path and extracts the URL column. When column is
// non-empty it names the column to use (still matched case-insensitively);
// otherwise the first match among image_url and url wins.
func Read(path, column string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	defer f.Close()

	return parse(f, column)
}

func parse(r io.Reader, column string) (*Source, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are common in hand-edited exports

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("csvsource: read header: %w", err)
	}

	idx, name := findColumn(header, column)
	if idx < 0 {
		if column != "" {
			return nil, fmt.Errorf("csvsource: column %q not found", column)
		}
		return nil, ErrNoURLColumn
	}

	src := &Source{Column: name}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvsource: read row: %w", err)
		}

		value := ""
		if idx < len(record) {
			value = record[idx]
		}
		src.URLs = append(src.URLs, value)
	}

	return src, nil
}

// findColumn locates the URL column in the header row. A caller-supplied
// override takes precedence over the candidate list.
func findColumn(header []string, override string) (int, string) {
	if override != "" {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), override) {
				return i, strings.TrimSpace(h)
			}
		}
		return -1, ""
	}

	for _, cand := range candidateColumns {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), cand) {
				return i, strings.TrimSpace(h)
			}
		}
	}
	return -1, ""
}
