package table

// Restrict keeps exactly the rows of f whose key tuple appears in reference
// (a semi-join). Row order and indexes are preserved and rows are never
// multiplied, so restricting twice with the same reference equals
// restricting once. Missing key cells match missing key cells. A key column
// absent from either side is a SchemaError naming that side.
func Restrict(f, reference *Frame, keyColumns []string) (*Frame, error) {
	fCols, err := f.columnIndexes(keyColumns)
	if err != nil {
		return nil, err
	}
	refCols, err := reference.columnIndexes(keyColumns)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]struct{}, reference.NumRows())
	for i := range reference.rows {
		keep[reference.compositeKey(i, refCols)] = struct{}{}
	}
	out := f.derived()
	for i := range f.rows {
		if _, ok := keep[f.compositeKey(i, fCols)]; ok {
			out.appendRow(f.rows[i])
		}
	}
	return out, nil
}
