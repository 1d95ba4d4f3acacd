package table

import (
	"fmt"
	"sort"
	"time"
)

// Endpoint selects which extreme of a time column a grouped selection keeps.
type Endpoint string

const (
	// EndpointMin keeps the earliest row per group.
	EndpointMin Endpoint = "min"
	// EndpointMax keeps the latest row per group.
	EndpointMax Endpoint = "max"
)

// SelectEndpoint returns one row per distinct value of groupKey: the row
// holding the minimum or maximum of timeColumn within the group. Ties on the
// timestamp break to the row with the lowest original index, so repeated runs
// over the same load produce the same survivor. Rows with a missing timestamp
// are not eligible; a group with no eligible row contributes nothing. Output
// rows are ordered by group key.
func SelectEndpoint(f *Frame, groupKey, timeColumn string, mode Endpoint) (*Frame, error) {
	if mode != EndpointMin && mode != EndpointMax {
		return nil, fmt.Errorf("table %s: unknown endpoint mode %q", f.name, mode)
	}
	keyCols, err := f.columnIndexes([]string{groupKey})
	if err != nil {
		return nil, err
	}
	ti, err := f.columnIndex(timeColumn)
	if err != nil {
		return nil, err
	}
	type winner struct {
		row int
		t   time.Time
	}
	best := make(map[string]winner)
	for i := range f.rows {
		t, ok := f.rows[i].Cells[ti].(time.Time)
		if !ok {
			continue
		}
		k := f.compositeKey(i, keyCols)
		cur, seen := best[k]
		if !seen || beats(mode, t, f.rows[i].Index, cur.t, f.rows[cur.row].Index) {
			best[k] = winner{row: i, t: t}
		}
	}
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := f.derived()
	for _, k := range keys {
		out.appendRow(f.rows[best[k].row])
	}
	return out, nil
}

// beats reports whether a candidate (time, index) displaces the current
// winner under the given mode.
func beats(mode Endpoint, t time.Time, index int64, curT time.Time, curIndex int64) bool {
	if t.Equal(curT) {
		return index < curIndex
	}
	if mode == EndpointMax {
		return t.After(curT)
	}
	return t.Before(curT)
}
