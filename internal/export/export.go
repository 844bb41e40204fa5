package export

import (
	"context"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kendallb/PhalangerMySql/internal/db"
)

var Formats = []string{"xlsx", "csv"}

// ToFile writes the remaining rows of res to output, choosing the format
// from its extension. It returns the number of rows written.
func ToFile(ctx context.Context, res *db.Result, output string) (int, error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), "."))

	switch format {
	case "xlsx":
		return Excel(ctx, res, output)
	case "csv":
		f, err := os.Create(output)
		if err != nil {
			return 0, err
		}
		n, err := CSV(res, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return n, err
	default:
		return 0, fmt.Errorf("output format %q not implemented, use one of %v", format, Formats)
	}
}

// CSV writes a header line and the remaining rows of res. NULL becomes an
// empty field.
func CSV(res *db.Result, w io.Writer) (int, error) {
	columns := res.Columns()
	if columns == nil {
		return 0, db.ErrInvalidResource
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	n := 0
	record := make([]string, len(columns))
	for {
		row, err := res.FetchRow()
		if err != nil {
			return n, err
		}
		if row == nil {
			break
		}
		for i, v := range row {
			record[i] = cellText(v)
		}
		if err := cw.Write(record); err != nil {
			return n, err
		}
		n++
	}

	cw.Flush()
	return n, cw.Error()
}

// cellText renders binary values that are not valid UTF-8 as hex.
func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		if utf8.Valid(v) {
			return string(v)
		}
		return hex.EncodeToString(v)
	default:
		return fmt.Sprint(v)
	}
}
