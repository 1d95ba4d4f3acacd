package table

import "fmt"

// SchemaError reports a required column missing from a table. It aborts the
// stage that raised it; the message names both the table and the column so
// the failure is actionable without a stack trace.
type SchemaError struct {
	Table  string
	Column string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("table %s: missing required column %q", e.Table, e.Column)
}
