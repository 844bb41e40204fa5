package db

import (
	"strings"
)

// InferDialect attempts to infer the dialect name from a connection string.
// Returns the detected name or empty string if unable to infer.
func InferDialect(connString string) string {
	conn := strings.TrimSpace(connString)

	// URL scheme detection
	if strings.HasPrefix(conn, "postgres://") || strings.HasPrefix(conn, "postgresql://") {
		return "postgres"
	}
	if strings.HasPrefix(conn, "mysql://") || strings.HasPrefix(conn, "mariadb://") {
		return "mysql"
	}
	if strings.HasPrefix(conn, "oracle://") {
		return "oracle"
	}
	if strings.HasPrefix(conn, "file:") {
		return "sqlite3"
	}

	// go-sql-driver/mysql native form: user:pass@tcp(host:3306)/db
	if strings.Contains(conn, "@tcp(") || strings.Contains(conn, "@unix(") {
		return "mysql"
	}

	// libpq key/value form
	if strings.Contains(conn, "host=") && strings.Contains(conn, "dbname=") {
		return "postgres"
	}

	// SQLite file pattern detection
	if strings.HasSuffix(conn, ".db") ||
		strings.HasSuffix(conn, ".sqlite") ||
		strings.HasSuffix(conn, ".sqlite3") ||
		conn == ":memory:" {
		return "sqlite3"
	}

	return ""
}
