// Package records defines the in-memory tabular model shared by the ingest,
// transform, and storage stages. A Record is one raw row keyed by source
// column name; a Snapshot is one full pull of a source dataset.
package records

import "sort"

// Record is a single raw row. Values are whatever the source decoder produced
// (string, float64, nil, ...); typing happens later in the transform stage.
type Record map[string]any

// String returns the value for key as a string. Non-string and missing
// values return ("", false).
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Snapshot is one tabular snapshot of a source dataset: an ordered column
// list plus the raw rows. Columns is sorted so that any scan over it (for
// example column-name inference) is deterministic across runs regardless of
// JSON map iteration order.
type Snapshot struct {
	Columns []string
	Rows    []Record
}

// NewSnapshot builds a Snapshot from raw rows. The column list is the sorted
// union of all keys seen across rows.
func NewSnapshot(rows []Record) *Snapshot {
	seen := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return &Snapshot{Columns: cols, Rows: rows}
}

// Len returns the number of rows.
func (s *Snapshot) Len() int { return len(s.Rows) }

// HasColumn reports whether the snapshot contains the named column.
func (s *Snapshot) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn registers a column name that was injected after the snapshot was
// built (e.g. a derived region_code). No-op when already present.
func (s *Snapshot) AddColumn(name string) {
	if s.HasColumn(name) {
		return
	}
	s.Columns = append(s.Columns, name)
	sort.Strings(s.Columns)
}
