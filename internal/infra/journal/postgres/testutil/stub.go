// Package testutil provides a stub database driver for postgres journal
// store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// StubConn records statements and serves a fake journal table.
type StubConn struct {
	Execs     []string
	Rows      []JournalRow
	FailPing  bool
	FailExec  bool
	FailQuery bool
	RowsErr   error
}

// JournalRow mirrors the journal table columns.
type JournalRow struct {
	RunID     string
	Pipeline  string
	StartedAt int64
	Payload   []byte
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("not implemented") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO JOURNAL") {
		if len(args) != 4 {
			return nil, fmt.Errorf("expected 4 args, got %d", len(args))
		}
		row := JournalRow{
			RunID:     args[0].Value.(string),
			Pipeline:  args[1].Value.(string),
			StartedAt: args[2].Value.(int64),
			Payload:   append([]byte(nil), args[3].Value.([]byte)...),
		}
		var filtered []JournalRow
		for _, existing := range c.Rows {
			if existing.RunID == row.RunID {
				continue
			}
			filtered = append(filtered, existing)
		}
		c.Rows = append(filtered, row)
		return driver.RowsAffected(1), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext. It understands the journal
// selects: filter by pipeline, order by started_at, optional DESC and LIMIT 1.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("expected pipeline arg, got %d", len(args))
	}
	pipeline := args[0].Value.(string)
	var matched []JournalRow
	for _, r := range c.Rows {
		if r.Pipeline == pipeline {
			matched = append(matched, r)
		}
	}
	desc := strings.Contains(strings.ToUpper(query), "DESC")
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].StartedAt == matched[j].StartedAt {
			if desc {
				return matched[i].RunID > matched[j].RunID
			}
			return matched[i].RunID < matched[j].RunID
		}
		if desc {
			return matched[i].StartedAt > matched[j].StartedAt
		}
		return matched[i].StartedAt < matched[j].StartedAt
	})
	if strings.Contains(strings.ToUpper(query), "LIMIT 1") && len(matched) > 1 {
		matched = matched[:1]
	}
	values := make([][]driver.Value, 0, len(matched))
	for _, r := range matched {
		values = append(values, []driver.Value{append([]byte(nil), r.Payload...)})
	}
	return &stubRows{cols: []string{"payload"}, rows: values, err: c.RowsErr}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
