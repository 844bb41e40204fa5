//go:build cgo

package db

import (
	"github.com/godror/godror"
)

func init() {
	RegisterDialect(&Dialect{
		Name:              "oracle",
		DriverName:        "godror",
		GlobalVariableSQL: "SELECT name, value FROM v$parameter WHERE name LIKE '%s'",
		DriverError:       oracleDriverError,
	}, "godror")
}

func oracleDriverError(err error) (int, string, bool) {
	oraErr, ok := godror.AsOraErr(err)
	if !ok {
		return 0, "", false
	}
	return oraErr.Code(), oraErr.Message(), true
}
