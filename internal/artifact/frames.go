package artifact

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"edcohort/pkg/table"
)

// PutFrame serializes the frame as CSV and stores it under key. The encoding
// always carries the leading row-identity column, so the same rows read back
// with GetFrame keep their original indexes.
func PutFrame(ctx context.Context, store Store, key string, f *table.Frame) (Info, error) {
	var buf bytes.Buffer
	if err := table.Write(&buf, f); err != nil {
		return Info{}, fmt.Errorf("encode %s: %w", key, err)
	}
	opts := PutOptions{
		ContentType: "text/csv",
		Metadata: map[string]string{
			"table": f.Name(),
			"rows":  strconv.Itoa(f.NumRows()),
		},
	}
	info, err := store.Put(ctx, key, &buf, opts)
	if err != nil {
		return Info{}, fmt.Errorf("store %s: %w", key, err)
	}
	return info, nil
}

// GetFrame loads a frame previously stored with PutFrame. Columns named in
// timeColumns are parsed as timestamps; empty cells stay missing.
func GetFrame(ctx context.Context, store Store, key, name string, timeColumns []string) (*table.Frame, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	f, err := table.Read(rc, table.ReadOptions{Name: name, TimeColumns: timeColumns, HasIndex: true})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return f, nil
}
