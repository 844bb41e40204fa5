package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type state int

const (
	stateOpen state = iota
	stateClosed
)

// Native is a live physical connection. *sql.Conn and *Link satisfy it.
type Native interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Unwrapper is implemented by connection decorators (profilers, tracers).
// Shared connections are unwrapped down to the innermost Native.
type Unwrapper interface {
	Unwrap() Native
}

// Settings are the per-session values a connection looks up.
type Settings struct {
	// DefaultCommandTimeout in seconds. Negative leaves the driver default.
	DefaultCommandTimeout int
}

// DefaultSettings leave every driver default in place.
var DefaultSettings = Settings{DefaultCommandTimeout: -1}

// SettingsSource resolves the settings of the session owning a connection.
type SettingsSource interface {
	Settings(owner uuid.UUID) Settings
}

// Link owns one physical connection checked out of a private *sql.DB.
type Link struct {
	*sql.Conn
	db *sql.DB
}

// OpenLink opens dsn with the dialect's driver and pins a single physical
// connection, pinging it before returning.
func OpenLink(ctx context.Context, d *Dialect, dsn string) (*Link, error) {
	if d.NormalizeDSN != nil {
		normalized, err := d.NormalizeDSN(dsn)
		if err != nil {
			return nil, err
		}
		dsn = normalized
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Link{Conn: conn, db: db}, nil
}

// Close returns the connection and closes the private pool behind it.
func (l *Link) Close() error {
	if l.db == nil {
		return nil
	}
	err := errors.Join(l.Conn.Close(), l.db.Close())
	l.db = nil
	return err
}

// Connection is a logical handle over a Native connection. When shared, the
// native connection belongs to someone else and Close leaves it open.
//
// A Connection is not safe for concurrent use, and a shared native
// connection must not be used through two handles at the same time.
type Connection struct {
	ID uuid.UUID

	owner      uuid.UUID
	settings   SettingsSource
	dialect    *Dialect
	connString string
	native     Native
	shared     bool
	state      state
	lastErr    error

	// results produced by this handle and possibly still open. They are
	// closed before the native connection, which cannot close under them.
	results []*Result
}

// Connect opens a connection eagerly. owner identifies the session whose
// settings apply; settings may be nil.
func Connect(
	ctx context.Context,
	d *Dialect,
	connString string,
	owner uuid.UUID,
	settings SettingsSource,
) (*Connection, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil dialect", ErrInvalidArgument)
	}

	link, err := OpenLink(ctx, d, connString)
	if err != nil {
		return nil, &ConnectionError{Driver: d.Name, Cause: err}
	}

	return &Connection{
		ID:         uuid.New(),
		owner:      owner,
		settings:   settings,
		dialect:    d,
		connString: connString,
		native:     link,
		state:      stateOpen,
	}, nil
}

// NewSharedConnection wraps a native connection owned elsewhere.
func NewSharedConnection(d *Dialect, native Native, owner uuid.UUID, settings SettingsSource) *Connection {
	return &Connection{
		ID:       uuid.New(),
		owner:    owner,
		settings: settings,
		dialect:  d,
		native:   unwrapNative(native),
		shared:   true,
		state:    stateOpen,
	}
}

func (c *Connection) ConnString() string { return c.connString }
func (c *Connection) Dialect() *Dialect   { return c.dialect }
func (c *Connection) Shared() bool        { return c.shared }
func (c *Connection) Owner() uuid.UUID    { return c.owner }

// Valid reports whether the connection has not been closed.
func (c *Connection) Valid() bool { return c != nil && c.state == stateOpen }

func (c *Connection) check() error {
	if !c.Valid() || c.native == nil {
		return ErrInvalidResource
	}
	return nil
}

// SetSharedConnection closes the handle's open results and its private
// connection, then adopts native, which stays owned by the caller. Errors
// from closing are logged, not returned.
func (c *Connection) SetSharedConnection(native Native) error {
	if !c.Valid() {
		return ErrInvalidResource
	}
	if native == nil {
		return fmt.Errorf("%w: nil connection", ErrInvalidArgument)
	}

	if err := c.closeResults(); err != nil {
		slog.Warn("Closing results before sharing", "link", c.ID, "error", err)
	}
	if !c.shared && c.native != nil {
		if err := c.native.Close(); err != nil {
			slog.Warn("Closing private connection before sharing",
				"link", c.ID,
				"error", err,
			)
		}
	}

	c.native = unwrapNative(native)
	c.shared = true
	return nil
}

func unwrapNative(native Native) Native {
	for {
		u, ok := native.(Unwrapper)
		if !ok {
			return native
		}
		inner := u.Unwrap()
		if inner == nil {
			return native
		}
		native = inner
	}
}

// CreateCommand binds sql to the live connection, applying the owning
// session's default command timeout when one is configured.
func (c *Connection) CreateCommand(sql string) (*Command, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	cmd := &Command{SQL: sql, native: c.native}

	settings := DefaultSettings
	if c.settings != nil {
		settings = c.settings.Settings(c.owner)
	}
	if settings.DefaultCommandTimeout >= 0 {
		cmd.Timeout = time.Duration(settings.DefaultCommandTimeout) * time.Second
	}
	return cmd, nil
}

// ExecuteQuery runs sql and wraps its cursor. On failure the native error is
// kept as the connection's last error and a *QueryError is returned.
func (c *Connection) ExecuteQuery(ctx context.Context, sql string, convert bool) (*Result, error) {
	cmd, err := c.CreateCommand(sql)
	if err != nil {
		return nil, err
	}

	rows, cancel, err := cmd.Query(ctx)
	if err != nil {
		c.lastErr = err
		return nil, &QueryError{Query: sql, Cause: err}
	}

	res, err := NewResult(c.ID, rows, convert)
	if err != nil {
		cancel()
		c.lastErr = err
		return nil, &QueryError{Query: sql, Cause: err}
	}
	res.release = cancel
	c.track(res)

	c.lastErr = nil
	return res, nil
}

func (c *Connection) track(res *Result) {
	open := c.results[:0]
	for _, r := range c.results {
		if r.Valid() {
			open = append(open, r)
		}
	}
	c.results = append(open, res)
}

func (c *Connection) closeResults() error {
	var errs []error
	for _, r := range c.results {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing result %s: %w", r.ID, err))
		}
	}
	c.results = nil
	return errors.Join(errs...)
}

// ExecResult reports the effect of a statement that returns no rows.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64
}

// Exec runs a statement that returns no rows. Counts the driver cannot
// report are -1.
func (c *Connection) Exec(ctx context.Context, sql string) (ExecResult, error) {
	cmd, err := c.CreateCommand(sql)
	if err != nil {
		return ExecResult{}, err
	}

	res, err := cmd.Exec(ctx)
	if err != nil {
		c.lastErr = err
		return ExecResult{}, &QueryError{Query: sql, Cause: err}
	}
	c.lastErr = nil

	out := ExecResult{RowsAffected: -1, LastInsertID: -1}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// Ping checks the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := c.native.PingContext(ctx); err != nil {
		c.lastErr = err
		return err
	}
	return nil
}

// LastError returns the native error recorded by the last failed operation.
func (c *Connection) LastError() error { return c.lastErr }

// LastErrorNumber is 0 with no recorded error, -1 when the error did not come
// from a driver, and the driver's code otherwise.
func (c *Connection) LastErrorNumber() int {
	return ErrorNumber(c.lastErr)
}

// LastErrorMessage returns ErrorMessage of the recorded error.
func (c *Connection) LastErrorMessage() string {
	return ErrorMessage(c.lastErr)
}

// ExceptionMessage formats err the way the connection reports errors.
func (c *Connection) ExceptionMessage(err error) (string, error) {
	return ExceptionMessage(err)
}

var (
	variableName = regexp.MustCompile(`^[A-Za-z0-9_%]+$`)
	databaseName = regexp.MustCompile(`^[A-Za-z0-9_$]+$`)
)

// QueryGlobalVariable looks up a server variable. It returns nil unless the
// lookup yields exactly one row of exactly two columns, in which case the
// converted second column is returned. name may contain LIKE wildcards but
// nothing that needs quoting.
func (c *Connection) QueryGlobalVariable(ctx context.Context, name string) (any, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !variableName.MatchString(name) {
		return nil, fmt.Errorf("%w: variable name %q", ErrInvalidArgument, name)
	}
	if c.dialect == nil || c.dialect.GlobalVariableSQL == "" {
		return nil, ErrUnsupported
	}

	res, err := c.ExecuteQuery(ctx, fmt.Sprintf(c.dialect.GlobalVariableSQL, name), true)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if res.FieldCount() != 2 {
		return nil, nil
	}
	value, err := res.FieldValue(0, 1)
	if err != nil {
		if errors.Is(err, ErrInvalidRowIndex) {
			return nil, nil
		}
		return nil, err
	}
	if err := res.ensure(1); err == nil {
		return nil, nil
	} else if !errors.Is(err, ErrInvalidRowIndex) {
		return nil, err
	}
	return value, nil
}

// SelectDB switches the default database of the connection.
func (c *Connection) SelectDB(ctx context.Context, name string) error {
	if err := c.check(); err != nil {
		return err
	}
	if !databaseName.MatchString(name) {
		return fmt.Errorf("%w: database name %q", ErrInvalidArgument, name)
	}
	if c.dialect == nil || c.dialect.SelectDBSQL == "" {
		return ErrUnsupported
	}
	_, err := c.Exec(ctx, fmt.Sprintf(c.dialect.SelectDBSQL, name))
	return err
}

// Close releases the handle and every result it produced that is still
// open. A private native connection is closed; a shared one is only
// dropped. Calling Close more than once is a no-op.
func (c *Connection) Close() error {
	if c == nil || c.state == stateClosed {
		return nil
	}
	c.state = stateClosed

	err := c.closeResults()
	native := c.native
	c.native = nil
	if c.shared || native == nil {
		return err
	}
	return errors.Join(err, native.Close())
}
