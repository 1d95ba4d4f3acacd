// Package table implements the small relational core the cohort pipelines are
// built from: an ordered, column-named frame plus the grouped selection,
// subsetting, missingness and resampling operators applied by the stages.
//
// Frames are value-like. Operators return new frames and never mutate their
// inputs; rows keep the stable index they were assigned at load so artifacts
// preserve original row identity across stages.
package table

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is a single frame row. Cells align with the frame's column order and
// hold nil (missing), string, float64, int64, time.Time or time.Duration.
// Index is the row's original position in its source table.
type Row struct {
	Index int64
	Cells []any
}

// Frame is an ordered collection of named columns over rows.
type Frame struct {
	name     string
	cols     []string
	colIndex map[string]int
	rows     []Row
}

// New returns an empty frame with the given name and column order.
func New(name string, cols []string) (*Frame, error) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("table %s: empty column name at position %d", name, i)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("table %s: duplicate column %q", name, c)
		}
		idx[c] = i
	}
	return &Frame{name: name, cols: append([]string(nil), cols...), colIndex: idx}, nil
}

// Name returns the frame's table name, used in schema errors.
func (f *Frame) Name() string { return f.name }

// Columns returns a copy of the column order.
func (f *Frame) Columns() []string { return append([]string(nil), f.cols...) }

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.colIndex[name]
	return ok
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return len(f.rows) }

// Append adds a row with the next positional index. Cells must match the
// column count.
func (f *Frame) Append(cells ...any) error {
	return f.appendIndexed(int64(len(f.rows)), cells)
}

func (f *Frame) appendIndexed(index int64, cells []any) error {
	if len(cells) != len(f.cols) {
		return fmt.Errorf("table %s: row has %d cells, want %d", f.name, len(cells), len(f.cols))
	}
	f.rows = append(f.rows, Row{Index: index, Cells: append([]any(nil), cells...)})
	return nil
}

func (f *Frame) appendRow(r Row) { f.rows = append(f.rows, r) }

// derived returns an empty frame sharing name and columns, used by operators.
func (f *Frame) derived() *Frame {
	out := &Frame{name: f.name, cols: f.cols, colIndex: f.colIndex}
	return out
}

// columnIndex resolves a column name or returns a SchemaError naming the frame.
func (f *Frame) columnIndex(col string) (int, error) {
	i, ok := f.colIndex[col]
	if !ok {
		return 0, SchemaError{Table: f.name, Column: col}
	}
	return i, nil
}

// View returns a named-access view over row i. The view is only valid while
// the frame is alive and must not outlive it.
func (f *Frame) View(i int) RowView { return RowView{f: f, i: i} }

// RowView provides named cell access for a single row.
type RowView struct {
	f *Frame
	i int
}

// Index returns the row's original index.
func (r RowView) Index() int64 { return r.f.rows[r.i].Index }

// Value returns the raw cell for col, or nil when the column is absent.
func (r RowView) Value(col string) any {
	ci, ok := r.f.colIndex[col]
	if !ok {
		return nil
	}
	return r.f.rows[r.i].Cells[ci]
}

// Missing reports whether the cell for col is absent, nil or empty.
func (r RowView) Missing(col string) bool { return IsMissing(r.Value(col)) }

// String formats the cell for col using the canonical CSV encoding.
func (r RowView) String(col string) string { return FormatValue(r.Value(col)) }

// Time returns the cell as a timestamp when it holds one.
func (r RowView) Time(col string) (time.Time, bool) {
	t, ok := r.Value(col).(time.Time)
	return t, ok
}

// Duration returns the cell as a duration when it holds one.
func (r RowView) Duration(col string) (time.Duration, bool) {
	d, ok := r.Value(col).(time.Duration)
	return d, ok
}

// Float returns the cell as a number, parsing string cells on demand.
// Missing, unparseable and NaN cells report false.
func (r RowView) Float(col string) (float64, bool) {
	return asFloat(r.Value(col))
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int64:
		return float64(x), true
	case string:
		if x == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(x, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsMissing reports whether a cell value counts as missing: nil or the empty
// string. Typed values (timestamps, numbers, durations) are never missing.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// FormatValue renders a cell using the canonical CSV encoding: timestamps as
// "2006-01-02 15:04:05", durations via time.Duration.String, numbers in
// shortest form, missing as the empty string.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(timeLayout)
	case time.Duration:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// Filter returns a new frame holding the rows for which keep returns true,
// in their original order.
func (f *Frame) Filter(keep func(RowView) bool) *Frame {
	out := f.derived()
	for i := range f.rows {
		if keep(f.View(i)) {
			out.appendRow(f.rows[i])
		}
	}
	return out
}

// WithColumn returns a new frame with an appended column whose cells are
// produced by value. Row order and indexes are preserved.
func (f *Frame) WithColumn(name string, value func(RowView) (any, error)) (*Frame, error) {
	if _, exists := f.colIndex[name]; exists {
		return nil, fmt.Errorf("table %s: column %q already exists", f.name, name)
	}
	out, err := New(f.name, append(f.Columns(), name))
	if err != nil {
		return nil, err
	}
	for i := range f.rows {
		v, err := value(f.View(i))
		if err != nil {
			return nil, fmt.Errorf("table %s: row %d: %w", f.name, f.rows[i].Index, err)
		}
		cells := make([]any, 0, len(f.cols)+1)
		cells = append(cells, f.rows[i].Cells...)
		cells = append(cells, v)
		out.appendRow(Row{Index: f.rows[i].Index, Cells: cells})
	}
	return out, nil
}

// RenameColumns returns a new frame with columns renamed per the mapping.
// Unmapped columns keep their names; rows are shared, not copied.
func (f *Frame) RenameColumns(mapping map[string]string) (*Frame, error) {
	cols := make([]string, len(f.cols))
	for i, c := range f.cols {
		if next, ok := mapping[c]; ok {
			cols[i] = next
		} else {
			cols[i] = c
		}
	}
	out, err := New(f.name, cols)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// keySeparator joins key cells into a composite group key. Unit separator is
// absent from the clinical exports this package targets.
const keySeparator = "\x1f"

// compositeKey encodes the named cells of row i into a comparable string.
// Missing cells encode as empty, so missing keys match missing keys.
func (f *Frame) compositeKey(i int, colIdxs []int) string {
	if len(colIdxs) == 1 {
		return FormatValue(f.rows[i].Cells[colIdxs[0]])
	}
	parts := make([]string, len(colIdxs))
	for n, ci := range colIdxs {
		parts[n] = FormatValue(f.rows[i].Cells[ci])
	}
	return strings.Join(parts, keySeparator)
}

// columnIndexes resolves each named column or fails with a SchemaError.
func (f *Frame) columnIndexes(cols []string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		ci, err := f.columnIndex(c)
		if err != nil {
			return nil, err
		}
		out[i] = ci
	}
	return out, nil
}

// groups partitions row positions by the composite key of keyCols, returning
// keys in sorted order for deterministic iteration.
func (f *Frame) groups(keyCols []int) ([]string, map[string][]int) {
	byKey := make(map[string][]int)
	for i := range f.rows {
		k := f.compositeKey(i, keyCols)
		byKey[k] = append(byKey[k], i)
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, byKey
}
