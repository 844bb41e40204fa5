//go:build cgo

package db

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

func init() {
	RegisterDialect(&Dialect{
		Name:        "sqlite3",
		DriverName:  "sqlite3",
		DriverError: sqliteDriverError,
	}, "sqlite")
}

func sqliteDriverError(err error) (int, string, bool) {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return 0, "", false
	}
	return int(liteErr.Code), liteErr.Error(), true
}
