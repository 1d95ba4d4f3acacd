package pipeline

import (
	"time"

	"edcohort/pkg/table"
)

// restrictToCohort keeps vital-sign rows charted for cohort stays and
// attaches each stay's window bounds. The cohort has exactly one row per
// stay (validated before this runs), so the window lookup is unambiguous.
func restrictToCohort(vitals, cohort *table.Frame) (*table.Frame, error) {
	restricted, err := table.Restrict(vitals, cohort, []string{colStayID})
	if err != nil {
		return nil, err
	}
	type window struct{ in, out any }
	byStay := make(map[string]window, cohort.NumRows())
	for i := 0; i < cohort.NumRows(); i++ {
		r := cohort.View(i)
		byStay[r.String(colStayID)] = window{in: r.Value(colInTime), out: r.Value(colOutTime)}
	}
	out, err := restricted.WithColumn(colInTime, func(r table.RowView) (any, error) {
		return byStay[r.String(colStayID)].in, nil
	})
	if err != nil {
		return nil, err
	}
	return out.WithColumn(colOutTime, func(r table.RowView) (any, error) {
		return byStay[r.String(colStayID)].out, nil
	})
}

// clipToStayWindow keeps observations charted inside the stay, bounds
// inclusive, then renames the raw measurement columns to the canonical
// feature vocabulary.
func clipToStayWindow(f *table.Frame, vocabulary map[string]string) (*table.Frame, error) {
	clipped := f.Filter(func(r table.RowView) bool {
		charted, ok := r.Time(colChartTime)
		if !ok {
			return false
		}
		in, iok := r.Time(colInTime)
		out, ook := r.Time(colOutTime)
		if !iok || !ook {
			return false
		}
		return !charted.Before(in) && !charted.After(out)
	})
	return clipped.RenameColumns(vocabulary)
}

// alignToBlocks appends the remaining-time column and buckets each stay's
// observations into fixed-width blocks anchored at its first observation.
func alignToBlocks(f *table.Frame, cfg VitalsConfig) (*table.Frame, error) {
	timed, err := table.AddTimeToEnd(f, colChartTime, colOutTime)
	if err != nil {
		return nil, err
	}
	return table.ResampleBlocks(timed, table.BlockSpec{
		GroupKey:       colStayID,
		TimeColumn:     colChartTime,
		Every:          cfg.Every,
		TimeVars:       cfg.Features,
		StaticVars:     []string{colInTime, colOutTime},
		DurationColumn: table.TimeToEndColumn,
	})
}

// nearEndOnly keeps block rows whose minimum remaining time is within the
// cutoff. A block with a missing remaining time cannot satisfy the bound
// and drops.
func nearEndOnly(f *table.Frame, cutoff time.Duration) *table.Frame {
	return f.Filter(func(r table.RowView) bool {
		d, ok := r.Duration(table.TimeToEndMinColumn)
		return ok && d <= cutoff
	})
}
