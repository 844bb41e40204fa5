package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/db"
)

const (
	invalidLinkWarning   = "supplied resource is not a valid MySQL-Link resource"
	invalidResultWarning = "supplied resource is not a valid MySQL result resource"
)

// Session owns the links and results opened on behalf of one script
// request. Resources are addressed by id; a freed or unknown id is reported
// as a warning and treated as missing.
type Session struct {
	id     uuid.UUID
	logger *slog.Logger

	mu       sync.Mutex
	settings db.Settings
	links    map[uuid.UUID]*db.Connection
	results  map[uuid.UUID]*db.Result
	lastLink uuid.UUID
}

// New creates a session. A nil logger discards warnings.
func New(settings db.Settings, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.New()
	return &Session{
		id:       id,
		logger:   logger.With("session", id),
		settings: settings,
		links:    make(map[uuid.UUID]*db.Connection),
		results:  make(map[uuid.UUID]*db.Result),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// Settings implements db.SettingsSource. Connections owned by another
// session get the defaults.
func (s *Session) Settings(owner uuid.UUID) db.Settings {
	if owner != s.id {
		return db.DefaultSettings
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings seen by commands created from now on.
func (s *Session) SetSettings(settings db.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Connect opens a link with the named driver. An empty driver is inferred
// from the connection string.
func (s *Session) Connect(ctx context.Context, driver, dsn string) (uuid.UUID, error) {
	d, err := s.dialect(driver, dsn)
	if err != nil {
		return uuid.Nil, err
	}

	conn, err := db.Connect(ctx, d, dsn, s.id, s)
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[conn.ID] = conn
	s.lastLink = conn.ID

	s.logger.Debug("Link opened", "link", conn.ID, "driver", d.Name)
	return conn.ID, nil
}

// Adopt registers a link over a connection owned by the caller. Freeing
// the link leaves native open.
func (s *Session) Adopt(driver string, native db.Native) (uuid.UUID, error) {
	if native == nil {
		return uuid.Nil, fmt.Errorf("%w: nil connection", db.ErrInvalidArgument)
	}
	d, err := db.LookupDialect(driver)
	if err != nil {
		return uuid.Nil, err
	}

	conn := db.NewSharedConnection(d, native, s.id, s)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[conn.ID] = conn
	s.lastLink = conn.ID
	return conn.ID, nil
}

// SetSharedConnection points an open link at a connection owned by the
// caller. Results the link produced so far are freed.
func (s *Session) SetSharedConnection(linkID uuid.UUID, native db.Native) error {
	conn := s.Connection(linkID)
	if conn == nil {
		return db.ErrInvalidResource
	}
	if err := conn.SetSharedConnection(native); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.freeResults(linkID)
	return nil
}

// Query runs sql on linkID, or on the most recently opened link when
// linkID is uuid.Nil, and registers the result. Statements that produce no
// result set return uuid.Nil.
func (s *Session) Query(ctx context.Context, linkID uuid.UUID, sql string, convert bool) (uuid.UUID, error) {
	conn := s.Connection(s.resolveLink(linkID))
	if conn == nil {
		return uuid.Nil, db.ErrInvalidResource
	}

	res, err := conn.ExecuteQuery(ctx, sql, convert)
	if err != nil {
		return uuid.Nil, err
	}
	if res.FieldCount() == 0 {
		res.Close()
		return uuid.Nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.ID] = res
	return res.ID, nil
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, linkID uuid.UUID, sql string) (db.ExecResult, error) {
	conn := s.Connection(s.resolveLink(linkID))
	if conn == nil {
		return db.ExecResult{}, db.ErrInvalidResource
	}
	return conn.Exec(ctx, sql)
}

func (s *Session) resolveLink(linkID uuid.UUID) uuid.UUID {
	if linkID != uuid.Nil {
		return linkID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLink
}

// Connection validates id as an open link. Anything else is reported as a
// warning and yields nil.
func (s *Session) Connection(id uuid.UUID) *db.Connection {
	s.mu.Lock()
	conn, ok := s.links[id]
	s.mu.Unlock()

	if !ok || !conn.Valid() {
		s.logger.Warn(invalidLinkWarning, "resource", id)
		return nil
	}
	return conn
}

// Result validates id as an open result. Anything else is reported as a
// warning and yields nil.
func (s *Session) Result(id uuid.UUID) *db.Result {
	s.mu.Lock()
	res, ok := s.results[id]
	s.mu.Unlock()

	if !ok || !res.Valid() {
		s.logger.Warn(invalidResultWarning, "resource", id)
		return nil
	}
	return res
}

// Free closes the link or result registered under id. Freeing a link also
// frees the results it produced. It reports whether anything was freed.
func (s *Session) Free(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res, ok := s.results[id]; ok {
		delete(s.results, id)
		s.closeResult(res)
		return true
	}

	conn, ok := s.links[id]
	if !ok {
		return false
	}
	s.freeResults(id)
	delete(s.links, id)
	if s.lastLink == id {
		s.lastLink = uuid.Nil
	}
	if err := conn.Close(); err != nil {
		s.logger.Warn("Closing link", "link", id, "error", err)
	}
	return true
}

// freeResults closes the results linkID produced. s.mu must be held.
func (s *Session) freeResults(linkID uuid.UUID) {
	for rid, res := range s.results {
		if res.ConnectionID() == linkID {
			delete(s.results, rid)
			s.closeResult(res)
		}
	}
}

func (s *Session) closeResult(res *db.Result) {
	if err := res.Close(); err != nil {
		s.logger.Warn("Closing result", "result", res.ID, "error", err)
	}
}

// Close tears the session down. Results are closed before the links that
// produced them.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, res := range s.results {
		if err := res.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing result %s: %w", id, err))
		}
	}
	for id, conn := range s.links {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing link %s: %w", id, err))
		}
	}
	clear(s.results)
	clear(s.links)
	s.lastLink = uuid.Nil
	return errors.Join(errs...)
}

func (s *Session) dialect(driver, dsn string) (*db.Dialect, error) {
	if driver == "" {
		driver = db.InferDialect(dsn)
		if driver == "" {
			return nil, fmt.Errorf("%w: cannot infer driver from connection string", db.ErrInvalidArgument)
		}
	}
	return db.LookupDialect(driver)
}
