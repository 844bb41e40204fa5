package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// TypeTag is the canonical column type a result field is reported as. It
// decides both the display name handed to scripts and how values are
// converted.
type TypeTag string

const (
	TagString    TypeTag = "string"
	TagInt       TypeTag = "int"
	TagReal      TypeTag = "real"
	TagYear      TypeTag = "year"
	TagDate      TypeTag = "date"
	TagTimestamp TypeTag = "timestamp"
	TagDateTime  TypeTag = "datetime"
	TagTime      TypeTag = "time"
	TagSet       TypeTag = "set"
	TagEnum      TypeTag = "enum"
	TagBlob      TypeTag = "blob"
	TagBit       TypeTag = "bit"
	TagNull      TypeTag = "null"
	TagUnknown   TypeTag = "unknown"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	zeroDate     = "0000-00-00"
	zeroDateTime = "0000-00-00 00:00:00"

	unsignedPrefix = "UNSIGNED "
)

func (t TypeTag) String() string { return string(t) }

// MapTypeName maps a driver's DatabaseTypeName to its canonical tag. It never
// fails: names it does not know map to TagUnknown, an absent name or the
// driver's NULL type map to TagNull.
func MapTypeName(native string) TypeTag {
	name := normalizeTypeName(native)

	switch name {
	case "", "NULL":
		return TagNull

	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "INT24", "BIGINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "BOOL", "BOOLEAN":
		return TagInt

	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NEWDECIMAL", "NUMERIC",
		"FLOAT4", "FLOAT8", "MONEY", "NUMBER", "BINARY_FLOAT", "BINARY_DOUBLE":
		return TagReal

	case "YEAR":
		return TagYear
	case "DATE", "NEWDATE":
		return TagDate
	case "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITH LOCAL TIME ZONE":
		return TagTimestamp
	case "DATETIME", "DATETIME2", "SMALLDATETIME":
		return TagDateTime
	case "TIME", "TIMETZ":
		return TagTime
	case "SET":
		return TagSet
	case "ENUM":
		return TagEnum
	case "BIT", "VARBIT":
		return TagBit

	case "CHAR", "VARCHAR", "BINARY", "VARBINARY", "VAR_STRING", "STRING", "JSON", "JSONB",
		"BPCHAR", "UUID", "GUID", "NAME", "VARCHAR2", "NVARCHAR2", "NCHAR", "ROWID":
		return TagString

	case "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB",
		"TINYTEXT", "TEXT", "MEDIUMTEXT", "LONGTEXT",
		"GEOMETRY", "BYTEA", "CLOB", "NCLOB", "RAW", "LONG RAW", "LONG":
		return TagBlob
	}

	return TagUnknown
}

// IsUnsignedTypeName reports whether the driver marked the column unsigned.
// go-sql-driver/mysql prefixes integer type names with "UNSIGNED ".
func IsUnsignedTypeName(native string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(native)), unsignedPrefix)
}

// IsNumericTag reports whether values of the tag are numbers for quoting
// purposes. Timestamps and years count as numeric.
func IsNumericTag(tag TypeTag) bool {
	switch tag {
	case TagInt, TagReal, TagYear, TagTimestamp:
		return true
	default:
		return false
	}
}

func normalizeTypeName(native string) string {
	name := strings.ToUpper(strings.TrimSpace(native))
	name = strings.TrimPrefix(name, unsignedPrefix)
	// sqlite reports the declared type verbatim, e.g. VARCHAR(20)
	if i := strings.IndexByte(name, '('); i > 0 {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

// ConvertValue converts a value scanned from a driver into the loosely typed
// form scripts see: nil, a string, or a []byte for binary columns. The Go
// type of v decides the conversion; the tag only picks date formatting and
// whether bytes are text.
func ConvertValue(tag TypeTag, v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return v

	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)

	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)

	case bool:
		if v {
			return "1"
		}
		return "0"

	case []byte:
		return convertBytes(tag, v)
	case sql.RawBytes:
		return convertBytes(tag, v)

	case time.Time:
		return formatTime(tag, v)
	case sql.NullTime:
		if !v.Valid {
			return zeroTime(tag)
		}
		return formatTime(tag, v.Time)
	case mysql.NullTime:
		if !v.Valid {
			return zeroTime(tag)
		}
		return formatTime(tag, v.Time)
	}

	slog.Debug("converting unhandled driver value", "tag", tag, "type", fmt.Sprintf("%T", v))
	return fmt.Sprint(v)
}

func convertBytes(tag TypeTag, b []byte) any {
	switch tag {
	case TagBlob, TagBit, TagUnknown:
		out := make([]byte, len(b))
		copy(out, b)
		return out
	default:
		return string(b)
	}
}

func formatTime(tag TypeTag, t time.Time) string {
	if t.IsZero() {
		return zeroTime(tag)
	}
	if tag == TagDate {
		return t.Format(dateLayout)
	}
	return t.Format(dateTimeLayout)
}

func zeroTime(tag TypeTag) string {
	if tag == TagDate {
		return zeroDate
	}
	return zeroDateTime
}
