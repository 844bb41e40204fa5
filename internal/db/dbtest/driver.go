// Package dbtest registers an in-memory database/sql driver whose answers
// are scripted per test.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
)

// DriverName is the name the driver is registered under.
const DriverName = "phpmysqltest"

type Column struct {
	Name      string
	Type      string
	Length    int64
	HasLength bool
	NotNull   bool
}

type ResultSet struct {
	Columns []Column
	Rows    [][]driver.Value
}

// Server answers the statements sent to one DSN.
type Server struct {
	Query func(q string) (*ResultSet, error)
	Exec  func(q string) (driver.Result, error)

	mu      sync.Mutex
	queries []string
	opens   int
	closes  int
}

// Queries returns every statement received so far.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func (s *Server) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes counts physical connections closed.
func (s *Server) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func (s *Server) record(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
}

// Static answers every query with rs.
func Static(rs *ResultSet) *Server {
	return &Server{
		Query: func(string) (*ResultSet, error) { return rs, nil },
	}
}

var (
	servers  sync.Map // dsn -> *Server
	serverID atomic.Int64
)

func init() {
	sql.Register(DriverName, drv{})
}

// NewServer makes srv reachable for the duration of the test and returns
// its DSN.
func NewServer(t testing.TB, srv *Server) string {
	t.Helper()
	dsn := fmt.Sprintf("test-%d", serverID.Add(1))
	servers.Store(dsn, srv)
	t.Cleanup(func() { servers.Delete(dsn) })
	return dsn
}

type drv struct{}

func (drv) Open(name string) (driver.Conn, error) {
	v, ok := servers.Load(name)
	if !ok {
		return nil, fmt.Errorf("unknown test server %q", name)
	}
	srv := v.(*Server)
	srv.mu.Lock()
	srv.opens++
	srv.mu.Unlock()
	return &conn{srv: srv}, nil
}

type conn struct {
	srv *Server
}

func (c *conn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *conn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *conn) Close() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	c.srv.closes++
	return nil
}

func (c *conn) Ping(context.Context) error { return nil }

func (c *conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.srv.record(query)
	if c.srv.Query == nil {
		return nil, errors.New("test server does not answer queries")
	}
	rs, err := c.srv.Query(query)
	if err != nil {
		return nil, err
	}
	return &rows{rs: rs}, nil
}

func (c *conn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.srv.record(query)
	if c.srv.Exec == nil {
		return driver.RowsAffected(0), nil
	}
	return c.srv.Exec(query)
}

type rows struct {
	rs *ResultSet
	i  int
}

func (r *rows) Columns() []string {
	names := make([]string, len(r.rs.Columns))
	for i, c := range r.rs.Columns {
		names[i] = c.Name
	}
	return names
}

func (r *rows) Close() error { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.i >= len(r.rs.Rows) {
		return io.EOF
	}
	row := r.rs.Rows[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

func (r *rows) ColumnTypeDatabaseTypeName(i int) string {
	return r.rs.Columns[i].Type
}

func (r *rows) ColumnTypeLength(i int) (int64, bool) {
	return r.rs.Columns[i].Length, r.rs.Columns[i].HasLength
}

func (r *rows) ColumnTypeNullable(i int) (bool, bool) {
	return !r.rs.Columns[i].NotNull, true
}
