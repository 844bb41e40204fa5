package session

import (
	"bytes"
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/kendallb/PhalangerMySql/internal/db/dbtest"
)

func init() {
	db.RegisterDialect(&db.Dialect{
		Name:              "sessiontest",
		DriverName:        dbtest.DriverName,
		GlobalVariableSQL: "SHOW GLOBAL VARIABLES LIKE '%s'",
	})
}

func numbersServer() *dbtest.Server {
	return &dbtest.Server{
		Query: func(q string) (*dbtest.ResultSet, error) {
			if strings.HasPrefix(q, "UPDATE") {
				return &dbtest.ResultSet{}, nil
			}
			return &dbtest.ResultSet{
				Columns: []dbtest.Column{{Name: "n", Type: "INT"}},
				Rows:    [][]driver.Value{{int64(1)}, {int64(2)}},
			}, nil
		},
	}
}

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	s := New(db.DefaultSettings, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { s.Close() })
	return s, &buf
}

func connect(t *testing.T, s *Session, srv *dbtest.Server) uuid.UUID {
	t.Helper()
	id, err := s.Connect(context.Background(), "sessiontest", dbtest.NewServer(t, srv))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return id
}

func TestQueryUsesLastLink(t *testing.T) {
	s, _ := newTestSession(t)
	first := numbersServer()
	second := numbersServer()
	connect(t, s, first)
	connect(t, s, second)

	id, err := s.Query(context.Background(), uuid.Nil, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Query() returned no result id")
	}
	if len(first.Queries()) != 0 || len(second.Queries()) != 1 {
		t.Errorf("queries first = %v, second = %v; want the last link used", first.Queries(), second.Queries())
	}

	res := s.Result(id)
	if res == nil {
		t.Fatal("Result() = nil for a fresh result")
	}
	v, err := res.FieldValue(1, 0)
	if err != nil || v != "2" {
		t.Errorf("FieldValue(1, 0) = %v, %v; want 2", v, err)
	}
}

func TestQueryWithoutResultSet(t *testing.T) {
	s, _ := newTestSession(t)
	link := connect(t, s, numbersServer())

	id, err := s.Query(context.Background(), link, "UPDATE t SET n = 1", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if id != uuid.Nil {
		t.Errorf("Query() = %v, want uuid.Nil for a statement without rows", id)
	}
}

func TestValidateWarns(t *testing.T) {
	s, buf := newTestSession(t)
	link := connect(t, s, numbersServer())
	resID, err := s.Query(context.Background(), link, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	tests := []struct {
		name    string
		lookup  func() bool
		warning string
	}{
		{"result as link", func() bool { return s.Connection(resID) == nil }, invalidLinkWarning},
		{"link as result", func() bool { return s.Result(link) == nil }, invalidResultWarning},
		{"unknown link", func() bool { return s.Connection(uuid.New()) == nil }, invalidLinkWarning},
		{"unknown result", func() bool { return s.Result(uuid.New()) == nil }, invalidResultWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			if !tt.lookup() {
				t.Fatal("lookup returned a resource")
			}
			out := buf.String()
			if !strings.Contains(out, "level=WARN") || !strings.Contains(out, tt.warning) {
				t.Errorf("log = %q, want warning %q", out, tt.warning)
			}
		})
	}
}

func TestFree(t *testing.T) {
	s, buf := newTestSession(t)
	srv := numbersServer()
	link := connect(t, s, srv)
	resID, err := s.Query(context.Background(), link, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	res := s.Result(resID)

	if !s.Free(link) {
		t.Fatal("Free(link) = false")
	}
	if s.Free(link) {
		t.Error("second Free(link) = true")
	}
	if res.Valid() {
		t.Error("result still open after its link was freed")
	}
	if got := srv.Closes(); got != 1 {
		t.Errorf("native closes = %d, want 1", got)
	}

	buf.Reset()
	if s.Result(resID) != nil {
		t.Error("Result() returned a freed result")
	}
	if !strings.Contains(buf.String(), invalidResultWarning) {
		t.Errorf("log = %q, want invalid result warning", buf.String())
	}

	if _, err := s.Query(context.Background(), uuid.Nil, "SELECT 1", true); !errors.Is(err, db.ErrInvalidResource) {
		t.Errorf("Query() on freed default link error = %v, want ErrInvalidResource", err)
	}
}

func TestCloseTearsDown(t *testing.T) {
	s, _ := newTestSession(t)
	srvA := numbersServer()
	srvB := numbersServer()
	linkA := connect(t, s, srvA)
	connect(t, s, srvB)

	resID, err := s.Query(context.Background(), linkA, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	res := s.Result(resID)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if res.Valid() {
		t.Error("result still open after Close")
	}
	if srvA.Closes() != 1 || srvB.Closes() != 1 {
		t.Errorf("closes = %d, %d; want 1, 1", srvA.Closes(), srvB.Closes())
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestAdoptLeavesNativeOpen(t *testing.T) {
	s, _ := newTestSession(t)
	srv := numbersServer()
	link, err := db.OpenLink(context.Background(), mustDialect(t), dbtest.NewServer(t, srv))
	if err != nil {
		t.Fatalf("OpenLink() error = %v", err)
	}
	defer link.Close()

	id, err := s.Adopt("sessiontest", link)
	if err != nil {
		t.Fatalf("Adopt() error = %v", err)
	}
	if conn := s.Connection(id); conn == nil || !conn.Shared() {
		t.Fatal("adopted link is not a shared connection")
	}
	s.Free(id)

	if got := srv.Closes(); got != 0 {
		t.Errorf("native closes = %d, want 0", got)
	}
	if err := link.PingContext(context.Background()); err != nil {
		t.Errorf("adopted connection unusable after Free: %v", err)
	}

	if _, err := s.Adopt("sessiontest", nil); !errors.Is(err, db.ErrInvalidArgument) {
		t.Errorf("Adopt(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestSetSharedConnection(t *testing.T) {
	s, _ := newTestSession(t)
	private := numbersServer()
	linkID := connect(t, s, private)

	shared := numbersServer()
	link, err := db.OpenLink(context.Background(), mustDialect(t), dbtest.NewServer(t, shared))
	if err != nil {
		t.Fatalf("OpenLink() error = %v", err)
	}
	defer link.Close()

	if err := s.SetSharedConnection(linkID, link); err != nil {
		t.Fatalf("SetSharedConnection() error = %v", err)
	}
	if _, err := s.Query(context.Background(), linkID, "SELECT n FROM t", true); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(shared.Queries()) != 1 {
		t.Errorf("shared queries = %v, want 1", shared.Queries())
	}
	if private.Closes() != 1 {
		t.Errorf("private closes = %d, want 1", private.Closes())
	}

	if err := s.SetSharedConnection(uuid.New(), link); !errors.Is(err, db.ErrInvalidResource) {
		t.Errorf("SetSharedConnection(unknown) error = %v, want ErrInvalidResource", err)
	}
}

func TestSetSharedConnectionWithOpenResult(t *testing.T) {
	s, buf := newTestSession(t)
	private := numbersServer()
	linkID := connect(t, s, private)

	resID, err := s.Query(context.Background(), linkID, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	res := s.Result(resID)
	if v, err := res.FieldValue(0, 0); err != nil || v != "1" {
		t.Fatalf("FieldValue(0, 0) = %v, %v", v, err)
	}

	shared := numbersServer()
	link, err := db.OpenLink(context.Background(), mustDialect(t), dbtest.NewServer(t, shared))
	if err != nil {
		t.Fatalf("OpenLink() error = %v", err)
	}
	defer link.Close()

	done := make(chan error, 1)
	go func() { done <- s.SetSharedConnection(linkID, link) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("SetSharedConnection() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SetSharedConnection() blocked on an open result")
	}

	if res.Valid() {
		t.Error("result of the replaced connection still open")
	}
	if private.Closes() != 1 {
		t.Errorf("private closes = %d, want 1", private.Closes())
	}

	buf.Reset()
	if s.Result(resID) != nil {
		t.Error("Result() returned a result of the replaced connection")
	}
	if !strings.Contains(buf.String(), invalidResultWarning) {
		t.Errorf("log = %q, want invalid result warning", buf.String())
	}

	resID, err = s.Query(context.Background(), linkID, "SELECT n FROM t", true)
	if err != nil {
		t.Fatalf("Query() on shared connection error = %v", err)
	}
	if _, err := s.Result(resID).FieldValue(1, 0); err != nil {
		t.Fatalf("FieldValue(1, 0) error = %v", err)
	}

	freed := make(chan bool, 1)
	go func() { freed <- s.Free(linkID) }()
	select {
	case ok := <-freed:
		if !ok {
			t.Error("Free(link) = false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Free() blocked on an open result")
	}
	if shared.Closes() != 0 {
		t.Errorf("shared closes = %d, want 0", shared.Closes())
	}
}

func TestSettings(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetSettings(db.Settings{DefaultCommandTimeout: 12})

	if got := s.Settings(s.ID()); got.DefaultCommandTimeout != 12 {
		t.Errorf("Settings(own) = %+v, want timeout 12", got)
	}
	if got := s.Settings(uuid.New()); got != db.DefaultSettings {
		t.Errorf("Settings(other) = %+v, want defaults", got)
	}

	link := connect(t, s, numbersServer())
	cmd, err := s.Connection(link).CreateCommand("SELECT 1")
	if err != nil {
		t.Fatalf("CreateCommand() error = %v", err)
	}
	if cmd.Timeout.Seconds() != 12 {
		t.Errorf("Timeout = %v, want 12s", cmd.Timeout)
	}
}

func TestConnectInfersDriver(t *testing.T) {
	s, _ := newTestSession(t)

	if _, err := s.Connect(context.Background(), "", "not a dsn"); !errors.Is(err, db.ErrInvalidArgument) {
		t.Errorf("Connect(uninferable) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := s.Connect(context.Background(), "nosuchdriver", "x"); err == nil {
		t.Error("Connect(unknown driver) should fail")
	}

	_, err := s.Connect(context.Background(), "", "mysql://bob@localhost:1/shop?timeout=10ms")
	var connErr *db.ConnectionError
	if !errors.As(err, &connErr) || connErr.Driver != "mysql" {
		t.Errorf("Connect(mysql url) error = %v, want mysql *ConnectionError", err)
	}
}

func mustDialect(t *testing.T) *db.Dialect {
	t.Helper()
	d, err := db.LookupDialect("sessiontest")
	if err != nil {
		t.Fatalf("LookupDialect() error = %v", err)
	}
	return d
}
