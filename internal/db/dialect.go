package db

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect describes a database/sql driver links can be opened with, and the
// few statements this package has to phrase differently per database.
type Dialect struct {
	// Name is the key the dialect is registered under, e.g. "mysql".
	Name string
	// DriverName is the name passed to sql.Open.
	DriverName string

	// NormalizeDSN rewrites a connection string before it is opened. Optional.
	NormalizeDSN func(dsn string) (string, error)

	// GlobalVariableSQL is a fmt template taking a validated variable name.
	// The query must return (name, value) rows. Empty means unsupported.
	GlobalVariableSQL string

	// SelectDBSQL is a fmt template taking a validated database name.
	// Empty means unsupported.
	SelectDBSQL string

	// DriverError extracts the numeric code and message of a native error.
	DriverError func(err error) (code int, message string, ok bool)
}

var (
	dialects     = make(map[string]*Dialect)
	dialectOrder []*Dialect
)

// RegisterDialect makes d available under its name and any aliases.
// Registering the same name twice replaces the earlier dialect.
func RegisterDialect(d *Dialect, aliases ...string) {
	if _, exists := dialects[d.Name]; !exists {
		dialectOrder = append(dialectOrder, d)
	}
	dialects[d.Name] = d
	for _, alias := range aliases {
		dialects[alias] = d
	}
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (*Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("driver not implemented for %s", name)
	}
	return d, nil
}

// SupportedDialects lists the registered dialect names, aliases excluded.
func SupportedDialects() []string {
	names := make([]string, 0, len(dialectOrder))
	for _, d := range dialectOrder {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

// DriverError reports the driver code and message carried by err, trying
// every registered dialect. ok is false for errors no driver produced.
func DriverError(err error) (code int, message string, ok bool) {
	if err == nil {
		return 0, "", false
	}
	for _, d := range dialectOrder {
		if d.DriverError == nil {
			continue
		}
		if code, message, ok := d.DriverError(err); ok {
			return code, message, true
		}
	}
	return 0, "", false
}

func init() {
	RegisterDialect(&Dialect{
		Name:              "mysql",
		DriverName:        "mysql",
		NormalizeDSN:      normalizeMySQLDSN,
		GlobalVariableSQL: "SHOW GLOBAL VARIABLES LIKE '%s'",
		SelectDBSQL:       "USE `%s`",
		DriverError:       mysqlDriverError,
	}, "mariadb")
}

// normalizeMySQLDSN accepts both the driver's native DSN and a mysql:// URL
// form, and turns on parseTime so DATE/DATETIME columns arrive as time.Time.
func normalizeMySQLDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	for _, scheme := range []string{"mysql://", "mariadb://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			dsn = urlToMySQLDSN(rest)
			break
		}
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// urlToMySQLDSN turns user:pass@host:port/db?opts into
// user:pass@tcp(host:port)/db?opts.
func urlToMySQLDSN(rest string) string {
	creds, hostPart := "", rest
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		creds, hostPart = rest[:i+1], rest[i+1:]
	}
	host, tail := hostPart, ""
	if i := strings.IndexAny(hostPart, "/?"); i >= 0 {
		host, tail = hostPart[:i], hostPart[i:]
	}
	if !strings.HasPrefix(tail, "/") {
		tail = "/" + tail
	}
	return creds + "tcp(" + host + ")" + tail
}

func mysqlDriverError(err error) (int, string, bool) {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return 0, "", false
	}
	return int(myErr.Number), myErr.Message, true
}
