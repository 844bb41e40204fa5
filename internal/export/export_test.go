package export

import (
	"bytes"
	"context"
	"database/sql/driver"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/kendallb/PhalangerMySql/internal/db/dbtest"
	"github.com/xuri/excelize/v2"
)

var exportDialect = &db.Dialect{Name: "exporttest", DriverName: dbtest.DriverName}

func init() {
	db.RegisterDialect(exportDialect)
}

func ordersResult(t *testing.T) *db.Result {
	t.Helper()
	rs := &dbtest.ResultSet{
		Columns: []dbtest.Column{
			{Name: "id", Type: "INT"},
			{Name: "customer", Type: "VARCHAR"},
			{Name: "note", Type: "BLOB"},
		},
		Rows: [][]driver.Value{
			{int64(1), "Ann, Inc.", []byte("fragile")},
			{int64(2), "Bob", nil},
			{int64(3), "Cy", []byte{0xff, 0x00}},
		},
	}
	conn, err := db.Connect(context.Background(), exportDialect, dbtest.NewServer(t, dbtest.Static(rs)), uuid.Nil, nil)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	res, err := conn.ExecuteQuery(context.Background(), "SELECT * FROM orders", true)
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	t.Cleanup(func() { res.Close() })
	return res
}

func TestCSV(t *testing.T) {
	res := ordersResult(t)

	var buf bytes.Buffer
	n, err := CSV(res, &buf)
	if err != nil {
		t.Fatalf("CSV() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CSV() = %d rows, want 3", n)
	}

	want := "id,customer,note\n1,\"Ann, Inc.\",fragile\n2,Bob,\n3,Cy,ff00\n"
	if buf.String() != want {
		t.Errorf("CSV() output = %q, want %q", buf.String(), want)
	}
}

func TestWriteExcel(t *testing.T) {
	res := ordersResult(t)

	var buf bytes.Buffer
	n, err := WriteExcel(context.Background(), res, &buf)
	if err != nil {
		t.Fatalf("WriteExcel() error = %v", err)
	}
	if n != 3 {
		t.Errorf("WriteExcel() = %d rows, want 3", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("sheet has %d rows, want 4: %v", len(rows), rows)
	}
	if rows[0][0] != "id" || rows[0][1] != "customer" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "Ann, Inc." {
		t.Errorf("first row = %v", rows[1])
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()

	res := ordersResult(t)
	path := filepath.Join(dir, "orders.csv")
	if _, err := ToFile(context.Background(), res, path); err != nil {
		t.Fatalf("ToFile(csv) error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("csv file not written: %v", err)
	}

	res = ordersResult(t)
	path = filepath.Join(dir, "orders.xlsx")
	if _, err := ToFile(context.Background(), res, path); err != nil {
		t.Fatalf("ToFile(xlsx) error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("xlsx file not written: %v", err)
	}

	if _, err := ToFile(context.Background(), ordersResult(t), filepath.Join(dir, "orders.json")); err == nil {
		t.Error("ToFile(json) should fail")
	}
}

func TestExportClosedResult(t *testing.T) {
	res := ordersResult(t)
	res.Close()

	if _, err := CSV(res, &bytes.Buffer{}); err != db.ErrInvalidResource {
		t.Errorf("CSV() error = %v, want ErrInvalidResource", err)
	}
	if _, err := WriteExcel(context.Background(), res, &bytes.Buffer{}); err != db.ErrInvalidResource {
		t.Errorf("WriteExcel() error = %v, want ErrInvalidResource", err)
	}
}
