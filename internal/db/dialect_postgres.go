package db

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

const postgresSettingsSQL = "SELECT name, setting FROM pg_settings WHERE name LIKE '%s'"

func init() {
	RegisterDialect(&Dialect{
		Name:              "postgres",
		DriverName:        "postgres",
		GlobalVariableSQL: postgresSettingsSQL,
		DriverError:       pqDriverError,
	}, "postgresql")

	RegisterDialect(&Dialect{
		Name:              "pgx",
		DriverName:        "pgx",
		GlobalVariableSQL: postgresSettingsSQL,
		DriverError:       pgxDriverError,
	})
}

// Postgres reports SQLSTATE codes. Purely numeric ones are passed through as
// the error number, the rest (e.g. 42P01) report -1.
func sqlStateNumber(state string) int {
	n, err := strconv.Atoi(state)
	if err != nil {
		return -1
	}
	return n
}

func pqDriverError(err error) (int, string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return 0, "", false
	}
	return sqlStateNumber(string(pqErr.Code)), pqErr.Message, true
}

func pgxDriverError(err error) (int, string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return 0, "", false
	}
	return sqlStateNumber(pgErr.Code), pgErr.Message, true
}
