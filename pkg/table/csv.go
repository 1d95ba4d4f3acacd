package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// timeLayout is the canonical timestamp encoding of the clinical exports.
// dateLayout covers date-only columns such as a patient's date of death.
const (
	timeLayout = "2006-01-02 15:04:05"
	dateLayout = "2006-01-02"
)

// ReadOptions configures CSV decoding.
type ReadOptions struct {
	// Name is the table name recorded on the frame and used in errors.
	Name string
	// TimeColumns are parsed into time.Time; empty cells become missing.
	// A declared column absent from the header is a SchemaError.
	TimeColumns []string
	// HasIndex marks the first column as a previously written row index
	// (pipeline artifacts carry one). Without it rows are indexed by
	// position.
	HasIndex bool
}

// Read decodes a CSV source into a frame. All cells load as raw strings
// except declared time columns, which parse with the canonical timestamp
// layout and fall back to the date-only layout.
func Read(r io.Reader, opts ReadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("table %s: read header: %w", opts.Name, err)
	}
	if opts.HasIndex {
		if len(header) == 0 {
			return nil, fmt.Errorf("table %s: empty header", opts.Name)
		}
		header = header[1:]
	}
	f, err := New(opts.Name, header)
	if err != nil {
		return nil, err
	}
	timeCols := make(map[int]bool, len(opts.TimeColumns))
	for _, c := range opts.TimeColumns {
		ci, err := f.columnIndex(c)
		if err != nil {
			return nil, err
		}
		timeCols[ci] = true
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table %s: line %d: %w", opts.Name, line, err)
		}
		index := int64(f.NumRows())
		if opts.HasIndex {
			index, err = strconv.ParseInt(rec[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("table %s: line %d: bad row index %q: %w", opts.Name, line, rec[0], err)
			}
			rec = rec[1:]
		}
		cells := make([]any, len(rec))
		for i, field := range rec {
			if !timeCols[i] {
				cells[i] = field
				continue
			}
			if field == "" {
				cells[i] = nil
				continue
			}
			t, err := parseTime(field)
			if err != nil {
				return nil, fmt.Errorf("table %s: line %d: column %q: %w", opts.Name, line, f.cols[i], err)
			}
			cells[i] = t
		}
		if err := f.appendIndexed(index, cells); err != nil {
			return nil, fmt.Errorf("table %s: line %d: %w", opts.Name, line, err)
		}
	}
	return f, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q", s)
	}
	return t, nil
}

// Write encodes a frame as CSV with a leading unnamed index column carrying
// each row's original identity, matching the artifact layout readers expect.
func Write(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, f.cols...)); err != nil {
		return fmt.Errorf("table %s: write header: %w", f.name, err)
	}
	rec := make([]string, len(f.cols)+1)
	for i := range f.rows {
		rec[0] = strconv.FormatInt(f.rows[i].Index, 10)
		for c, v := range f.rows[i].Cells {
			rec[c+1] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("table %s: write row %d: %w", f.name, f.rows[i].Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
