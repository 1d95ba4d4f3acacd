package table

import (
	"fmt"
	"time"
)

// Column names produced by the temporal operators.
const (
	// TimeToEndColumn holds the remaining duration to a stay's end.
	TimeToEndColumn = "time_to_end"
	// BlockColumn holds the zero-based block index within a group.
	BlockColumn = "block"
	// minSuffix marks the min-aggregated duration column after blocking.
	minSuffix = "_min"
	// TimeToEndMinColumn is the block-level minimum remaining duration.
	TimeToEndMinColumn = TimeToEndColumn + minSuffix
)

// AddTimeToEnd appends a "time_to_end" duration column holding endColumn -
// timeColumn per row. The cell is missing when either side is missing. The
// difference may be negative when an observation falls after the end column;
// rows are kept either way and later cutoffs decide what survives.
func AddTimeToEnd(f *Frame, timeColumn, endColumn string) (*Frame, error) {
	if _, err := f.columnIndex(timeColumn); err != nil {
		return nil, err
	}
	if _, err := f.columnIndex(endColumn); err != nil {
		return nil, err
	}
	return f.WithColumn(TimeToEndColumn, func(r RowView) (any, error) {
		t, tok := r.Time(timeColumn)
		end, eok := r.Time(endColumn)
		if !tok || !eok {
			return nil, nil
		}
		return end.Sub(t), nil
	})
}

// BlockSpec configures ResampleBlocks.
type BlockSpec struct {
	// GroupKey partitions rows; one block sequence is built per group.
	GroupKey string
	// TimeColumn assigns each row to a block.
	TimeColumn string
	// Every is the fixed block width.
	Every time.Duration
	// TimeVars are feature columns aggregated to the mean of their
	// parseable values per block.
	TimeVars []string
	// StaticVars are copied unchanged from the group's first row onto
	// every block. The group key is always included.
	StaticVars []string
	// DurationColumn, when set, is aggregated to the per-block minimum
	// and renamed with a "_min" suffix.
	DurationColumn string
}

// ResampleBlocks buckets each group's rows into fixed-width windows anchored
// at the group's earliest timestamp: block i covers
// [start+i*Every, start+(i+1)*Every). Blocks are emitted contiguously from 0
// through the last occupied block; a window with no observations still
// yields a row, with every aggregate missing, so downstream missingness
// filtering sees the gap. Aggregation only ever reads rows inside the block.
// Groups whose rows all lack the timestamp contribute nothing. Output rows
// are ordered by group key then block and are indexed positionally.
func ResampleBlocks(f *Frame, spec BlockSpec) (*Frame, error) {
	if spec.Every <= 0 {
		return nil, fmt.Errorf("table %s: block width %v must be positive", f.name, spec.Every)
	}
	keyCols, err := f.columnIndexes([]string{spec.GroupKey})
	if err != nil {
		return nil, err
	}
	ti, err := f.columnIndex(spec.TimeColumn)
	if err != nil {
		return nil, err
	}
	varCols, err := f.columnIndexes(spec.TimeVars)
	if err != nil {
		return nil, err
	}
	statics := spec.StaticVars
	if !contains(statics, spec.GroupKey) {
		statics = append([]string{spec.GroupKey}, statics...)
	}
	staticCols, err := f.columnIndexes(statics)
	if err != nil {
		return nil, err
	}
	durCol := -1
	outCols := append(append([]string(nil), statics...), BlockColumn)
	outCols = append(outCols, spec.TimeVars...)
	if spec.DurationColumn != "" {
		durCol, err = f.columnIndex(spec.DurationColumn)
		if err != nil {
			return nil, err
		}
		outCols = append(outCols, spec.DurationColumn+minSuffix)
	}
	out, err := New(f.name, outCols)
	if err != nil {
		return nil, err
	}
	keys, byKey := f.groups(keyCols)
	for _, k := range keys {
		rows := byKey[k]
		var start time.Time
		timed := rows[:0:0]
		for _, ri := range rows {
			t, ok := f.rows[ri].Cells[ti].(time.Time)
			if !ok {
				continue
			}
			if len(timed) == 0 || t.Before(start) {
				start = t
			}
			timed = append(timed, ri)
		}
		if len(timed) == 0 {
			continue
		}
		last := 0
		buckets := make(map[int][]int)
		for _, ri := range timed {
			t := f.rows[ri].Cells[ti].(time.Time)
			b := int(t.Sub(start) / spec.Every)
			buckets[b] = append(buckets[b], ri)
			if b > last {
				last = b
			}
		}
		anchor := timed[0]
		for _, ri := range timed {
			if f.rows[ri].Index < f.rows[anchor].Index {
				anchor = ri
			}
		}
		for b := 0; b <= last; b++ {
			cells := make([]any, 0, len(outCols))
			for _, ci := range staticCols {
				cells = append(cells, f.rows[anchor].Cells[ci])
			}
			cells = append(cells, int64(b))
			for _, ci := range varCols {
				cells = append(cells, meanOf(f, buckets[b], ci))
			}
			if durCol >= 0 {
				cells = append(cells, minDurationOf(f, buckets[b], durCol))
			}
			if err := out.Append(cells...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// meanOf averages the parseable values of column ci over the given rows,
// returning nil when none parse.
func meanOf(f *Frame, rows []int, ci int) any {
	sum, n := 0.0, 0
	for _, ri := range rows {
		if v, ok := asFloat(f.rows[ri].Cells[ci]); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return sum / float64(n)
}

// minDurationOf returns the smallest duration of column ci over the given
// rows, or nil when the column is missing throughout.
func minDurationOf(f *Frame, rows []int, ci int) any {
	var best time.Duration
	found := false
	for _, ri := range rows {
		d, ok := f.rows[ri].Cells[ci].(time.Duration)
		if !ok {
			continue
		}
		if !found || d < best {
			best, found = d, true
		}
	}
	if !found {
		return nil
	}
	return best
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
