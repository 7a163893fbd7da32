package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/guttosm/cryptopulse/internal/schema"
)

// ParsedFile is a CSV file read fully into memory, ready to append.
type ParsedFile struct {
	Header []string // normalized column names
	Rows   [][]any  // aligned with Header; nil cells are NULL
}

// parseFile opens and parses one CSV file. The whole file is read before
// anything is written so a malformed file never lands partially.
//
// It fails on:
//   - unrecoverable I/O or CSV quoting errors
//   - a header that cannot be normalized or has no named column (ErrSchemaIncompatible)
//
// It tolerates:
//   - ragged rows: missing trailing cells become NULL, extra cells are dropped
//   - blank header cells: the column and its cells are dropped
//   - empty or whitespace-only cells, which become NULL
//   - a completely empty file, which yields no header and no rows
func parseFile(ctx context.Context, path string) (*ParsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parse(ctx, f)
}

func parse(ctx context.Context, in io.Reader) (*ParsedFile, error) {
	r := csv.NewReader(in)
	r.Comma = ','
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParsedFile{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	named, keep := namedColumns(header)
	if len(named) == 0 {
		return nil, fmt.Errorf("%w: header has no named columns", ErrSchemaIncompatible)
	}
	cols, err := schema.NormalizeHeader(named)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaIncompatible, err)
	}

	out := &ParsedFile{Header: cols}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read line after %d: %w", line, err)
		}
		line++

		row := make([]any, len(cols))
		for i, src := range keep {
			if src >= len(rec) {
				break
			}
			if v := strings.TrimSpace(rec[src]); v != "" {
				row[i] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// namedColumns drops blank header cells (e.g. from a trailing comma) and
// returns the remaining names with their positions in the record.
func namedColumns(header []string) ([]string, []int) {
	names := make([]string, 0, len(header))
	keep := make([]int, 0, len(header))
	for i, h := range header {
		bare := strings.TrimSpace(strings.Trim(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), `"`))
		if bare == "" {
			continue
		}
		names = append(names, h)
		keep = append(keep, i)
	}
	return names, keep
}
