package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/db/dbtest"
)

var testDialect = &Dialect{
	Name:              "test",
	DriverName:        dbtest.DriverName,
	GlobalVariableSQL: "SHOW GLOBAL VARIABLES LIKE '%s'",
	SelectDBSQL:       "USE `%s`",
	DriverError:       mysqlDriverError,
}

func init() {
	RegisterDialect(testDialect)
}

// connectTest opens a Connection against srv through the in-memory driver.
func connectTest(t *testing.T, srv *dbtest.Server, settings SettingsSource) *Connection {
	t.Helper()
	conn, err := Connect(context.Background(), testDialect, dbtest.NewServer(t, srv), uuid.Nil, settings)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}
