package table

import "fmt"

// FilterSparseGroups drops whole groups whose observations are too sparse to
// be usable. A group survives only when it has at least minCount rows AND
// every feature column is non-missing in at least minFrac of them;
// equivalently, a group is dropped as soon as any feature's missing fraction
// exceeds 1 - minFrac. Both boundaries are inclusive: a group with exactly
// minCount rows and exactly minFrac non-missing on its worst feature is
// kept. Surviving rows keep their order and indexes. The second return value
// counts dropped groups.
func FilterSparseGroups(f *Frame, groupKey string, features []string, minCount int, minFrac float64) (*Frame, int, error) {
	if minFrac < 0 || minFrac > 1 {
		return nil, 0, fmt.Errorf("table %s: non-missing fraction %v outside [0,1]", f.name, minFrac)
	}
	keyCols, err := f.columnIndexes([]string{groupKey})
	if err != nil {
		return nil, 0, err
	}
	featCols, err := f.columnIndexes(features)
	if err != nil {
		return nil, 0, err
	}
	keys, byKey := f.groups(keyCols)
	dropped := 0
	out := f.derived()
	kept := make(map[string]bool, len(byKey))
	for _, k := range keys {
		rows := byKey[k]
		if dense(f, rows, featCols, minCount, minFrac) {
			kept[k] = true
		} else {
			dropped++
		}
	}
	for i := range f.rows {
		if kept[f.compositeKey(i, keyCols)] {
			out.appendRow(f.rows[i])
		}
	}
	return out, dropped, nil
}

func dense(f *Frame, rows []int, featCols []int, minCount int, minFrac float64) bool {
	n := len(rows)
	if n < minCount {
		return false
	}
	for _, ci := range featCols {
		present := 0
		for _, ri := range rows {
			if !IsMissing(f.rows[ri].Cells[ci]) {
				present++
			}
		}
		// Compare via products to keep the boundary exact for the
		// usual fractions (3/5 at 0.6 survives, 1/3 at 0.6 does not).
		if float64(present) < minFrac*float64(n) {
			return false
		}
	}
	return true
}
