// Package testutil provides a database/sql driver that understands just
// enough SQL to back the postgres snapshot store in tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync/atomic"
)

// StubConn records every statement and keeps inserted rows per table.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailTables map[string]bool
}

var registered atomic.Int64

// NewStubDB opens a sql.DB whose single connection is the returned StubConn.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", registered.Add(1))
	sql.Register(name, stubDriver{conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// statement is a parsed query: the verb, its table, the listed columns and
// an optional single-column equality predicate.
type statement struct {
	verb   string
	table  string
	cols   []string
	where  string
	upsert bool
}

func parse(query string) (statement, error) {
	toks := strings.Fields(strings.NewReplacer("(", " ", ")", " ", ",", " ", "=", " ").Replace(query))
	if len(toks) == 0 {
		return statement{}, errors.New("empty statement")
	}
	lower := make([]string, len(toks))
	for i, t := range toks {
		lower[i] = strings.ToLower(t)
	}
	at := func(word string) int { return slices.Index(lower, word) }
	st := statement{verb: lower[0]}
	bad := fmt.Errorf("cannot parse %s: %s", st.verb, query)
	switch st.verb {
	case "insert":
		values := at("values")
		if len(lower) < 4 || lower[1] != "into" || values < 4 {
			return st, bad
		}
		st.table, st.cols = lower[2], lower[3:values]
		st.upsert = at("conflict") > 0
	case "select":
		from := at("from")
		if from < 2 || from+1 >= len(lower) {
			return st, bad
		}
		st.cols, st.table = lower[1:from], lower[from+1]
	case "delete":
		if len(lower) < 3 || lower[1] != "from" {
			return st, bad
		}
		st.table = lower[2]
	}
	if w := at("where"); w > 0 {
		if w+1 >= len(lower) {
			return st, bad
		}
		st.where = lower[w+1]
	}
	return st, nil
}

func (c *StubConn) failing(table string) bool { return c.FailTables[table] }

// ExecContext implements driver.ExecerContext. Statements other than INSERT
// and DELETE are recorded and succeed.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("exec fail")
	}
	st, err := parse(query)
	if err != nil {
		return nil, err
	}
	if c.failing(st.table) {
		return nil, fmt.Errorf("exec fail for %s", st.table)
	}
	switch st.verb {
	case "insert":
		if len(st.cols) != len(args) {
			return nil, fmt.Errorf("%s: %d columns, %d args", st.table, len(st.cols), len(args))
		}
		row := make(map[string]any, len(st.cols))
		for i, col := range st.cols {
			row[col] = args[i].Value
		}
		if st.upsert {
			c.drop(st.table, st.cols[0], row[st.cols[0]])
		}
		c.Tables[st.table] = append(c.Tables[st.table], row)
		return driver.RowsAffected(1), nil
	case "delete":
		if st.where == "" || len(args) == 0 {
			return nil, fmt.Errorf("delete from %s needs a keyed predicate", st.table)
		}
		return driver.RowsAffected(c.drop(st.table, st.where, args[0].Value)), nil
	}
	return driver.RowsAffected(0), nil
}

func (c *StubConn) drop(table, col string, v any) int64 {
	before := len(c.Tables[table])
	c.Tables[table] = slices.DeleteFunc(c.Tables[table], func(row map[string]any) bool { return row[col] == v })
	return int64(before - len(c.Tables[table]))
}

// QueryContext implements driver.QueryerContext. Rows come back in insertion
// order; ORDER BY is ignored.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	st, err := parse(query)
	if err != nil {
		return nil, err
	}
	if st.verb != "select" {
		return nil, fmt.Errorf("not a query: %s", query)
	}
	if c.failing(st.table) {
		return nil, fmt.Errorf("query fail for %s", st.table)
	}
	if st.where != "" && len(args) == 0 {
		return nil, fmt.Errorf("select from %s: missing args", st.table)
	}
	out := &stubRows{cols: st.cols}
	for _, row := range c.Tables[st.table] {
		if st.where != "" && row[st.where] != args[0].Value {
			continue
		}
		vals := make([]driver.Value, len(st.cols))
		for i, col := range st.cols {
			vals[i] = row[col]
		}
		out.rows = append(out.rows, vals)
	}
	return out, nil
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailExec {
		return errors.New("ping fail")
	}
	return nil
}

// Prepare implements driver.Conn; only the context fast paths are supported.
func (c *StubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported: %s", query)
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if len(r.rows) == 0 {
		return io.EOF
	}
	copy(dest, r.rows[0])
	r.rows = r.rows[1:]
	return nil
}
