// Package schema tracks the column set of each raw table as a versioned
// descriptor. A file that carries columns the table does not know yet
// extends the descriptor; existing rows read the new columns as NULL.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/guttosm/cryptopulse/internal/domain/models"
)

// ErrInvalidColumn is returned when a header cannot be turned into a safe identifier.
var ErrInvalidColumn = errors.New("invalid column name")

const maxIdentLen = 63

var (
	identRe     = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	separatorRe = regexp.MustCompile(`[\s\-./]+`)
)

// Descriptor is one version of a raw table's domain column set.
type Descriptor struct {
	Table   models.RawTable
	Version int
	Columns []string
}

// Has reports whether col is part of the descriptor.
func (d Descriptor) Has(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Change is a persisted schema evolution step.
type Change struct {
	Table   models.RawTable
	Version int
	Columns []string
}

// Registry holds the current descriptor of every raw table. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[models.RawTable]Descriptor
}

// NewRegistry returns a registry seeded with the base columns of every raw table at version 1.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[models.RawTable]Descriptor)}
	for _, t := range models.RawTables() {
		r.tables[t] = Descriptor{Table: t, Version: 1, Columns: t.BaseColumns()}
	}
	return r
}

// Descriptor returns a copy of the current descriptor of t.
func (r *Registry) Descriptor(t models.RawTable) Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := r.tables[t]
	d.Columns = append([]string(nil), d.Columns...)
	return d
}

// Apply replays persisted changes, in version order, on top of the base descriptors.
func (r *Registry) Apply(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Table != changes[j].Table {
			return changes[i].Table < changes[j].Table
		}
		return changes[i].Version < changes[j].Version
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range changes {
		d, ok := r.tables[ch.Table]
		if !ok {
			continue
		}
		for _, c := range ch.Columns {
			if !d.Has(c) {
				d.Columns = append(d.Columns, c)
			}
		}
		if ch.Version > d.Version {
			d.Version = ch.Version
		}
		r.tables[ch.Table] = d
	}
}

// Reconcile compares a normalized header against the descriptor of t.
//
// It returns the change needed to cover the header (nil when the header
// adds nothing) without applying it. Callers persist the change and then
// Commit it.
func (r *Registry) Reconcile(t models.RawTable, header []string) (*Change, error) {
	r.mu.RLock()
	d, ok := r.tables[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown raw table %q", t)
	}

	var added []string
	for _, col := range header {
		if !d.Has(col) {
			added = append(added, col)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}
	return &Change{Table: t, Version: d.Version + 1, Columns: added}, nil
}

// Commit applies a change produced by Reconcile.
func (r *Registry) Commit(ch Change) {
	r.Apply([]Change{ch})
}

// NormalizeColumn turns a CSV header cell into a lower snake_case identifier.
//
// Leading BOMs, surrounding spaces and quotes are stripped; runs of spaces,
// dashes, dots and slashes become a single underscore. Names that collide
// with the raw metadata columns are rejected.
func NormalizeColumn(raw string) (string, error) {
	s := strings.TrimPrefix(raw, "\ufeff")
	s = strings.Trim(strings.TrimSpace(s), `"`)
	s = strings.ToLower(strings.TrimSpace(s))
	s = separatorRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")

	switch {
	case s == "":
		return "", fmt.Errorf("%w: empty header %q", ErrInvalidColumn, raw)
	case len(s) > maxIdentLen:
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidColumn, raw, maxIdentLen)
	case !identRe.MatchString(s):
		return "", fmt.Errorf("%w: %q", ErrInvalidColumn, raw)
	case s == models.ColRowSeq || s == models.ColIngestedAt || s == models.ColSourceFile:
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidColumn, raw)
	}
	return s, nil
}

// NormalizeHeader normalizes every cell of a header row and rejects duplicates.
func NormalizeHeader(header []string) ([]string, error) {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		col, err := NormalizeColumn(h)
		if err != nil {
			return nil, err
		}
		if j, dup := seen[col]; dup {
			return nil, fmt.Errorf("%w: %q duplicates column %d", ErrInvalidColumn, h, j+1)
		}
		seen[col] = i
		out[i] = col
	}
	return out, nil
}
