package table

import (
	"sort"
	"time"
)

// SecondDistinctEvent returns, per distinct value of groupKey, the full row
// carrying the second-smallest among the group's distinct timestamps. Rows
// tied with the smallest timestamp record the same occurrence and are
// skipped, not counted as a second event. A group with fewer than two
// distinct timestamps contributes no row; the caller accounts for the loss
// as attrition rather than an error. Ties at the second timestamp break to
// the lowest original index. Missing timestamps are ignored. Output rows are
// ordered by group key.
func SecondDistinctEvent(f *Frame, groupKey, timeColumn string) (*Frame, error) {
	keyCols, err := f.columnIndexes([]string{groupKey})
	if err != nil {
		return nil, err
	}
	ti, err := f.columnIndex(timeColumn)
	if err != nil {
		return nil, err
	}
	first := make(map[string]time.Time)
	for i := range f.rows {
		t, ok := f.rows[i].Cells[ti].(time.Time)
		if !ok {
			continue
		}
		k := f.compositeKey(i, keyCols)
		if cur, seen := first[k]; !seen || t.Before(cur) {
			first[k] = t
		}
	}
	type second struct {
		row int
		t   time.Time
	}
	picked := make(map[string]second)
	for i := range f.rows {
		t, ok := f.rows[i].Cells[ti].(time.Time)
		if !ok {
			continue
		}
		k := f.compositeKey(i, keyCols)
		if !t.After(first[k]) {
			continue
		}
		cur, seen := picked[k]
		if !seen || beats(EndpointMin, t, f.rows[i].Index, cur.t, f.rows[cur.row].Index) {
			picked[k] = second{row: i, t: t}
		}
	}
	keys := make([]string, 0, len(picked))
	for k := range picked {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := f.derived()
	for _, k := range keys {
		out.appendRow(f.rows[picked[k].row])
	}
	return out, nil
}
