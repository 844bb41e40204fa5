package db

import (
	"database/sql"
	"strconv"
	"strings"
)

// ColumnInfo is the schema of one result field, captured once when the
// result is created.
type ColumnInfo struct {
	Name       string
	NativeType string
	Tag        TypeTag
	Length     int // -1 when the driver does not report it
	Nullable   bool
	Numeric    bool
	Unsigned   bool
	Blob       bool
}

func newColumnInfo(ct *sql.ColumnType) ColumnInfo {
	native := ct.DatabaseTypeName()
	tag := MapTypeName(native)

	length := -1
	if n, ok := ct.Length(); ok && n >= 0 {
		length = int(n)
	} else if n, ok := declaredLength(native); ok {
		length = n
	}

	// drivers that cannot tell report nullable
	nullable, ok := ct.Nullable()
	if !ok {
		nullable = true
	}

	return ColumnInfo{
		Name:       ct.Name(),
		NativeType: native,
		Tag:        tag,
		Length:     length,
		Nullable:   nullable,
		Numeric:    IsNumericTag(tag),
		Unsigned:   IsUnsignedTypeName(native),
		Blob:       tag == TagBlob,
	}
}

// declaredLength reads the size from a declared type such as VARCHAR(20)
// or DECIMAL(10,2), which drivers like sqlite report verbatim.
func declaredLength(native string) (int, bool) {
	open := strings.IndexByte(native, '(')
	end := strings.IndexAny(native, ",)")
	if open < 0 || end <= open {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(native[open+1 : end]))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Flags renders the column flags the way mysql_field_flags does, space
// separated, e.g. "not_null unsigned".
func (c ColumnInfo) Flags() string {
	var flags []string
	if !c.Nullable {
		flags = append(flags, "not_null")
	}
	if c.Unsigned {
		flags = append(flags, "unsigned")
	}
	if c.Blob {
		flags = append(flags, "blob")
	}
	if c.Tag == TagEnum {
		flags = append(flags, "enum")
	}
	if c.Tag == TagSet {
		flags = append(flags, "set")
	}
	if c.Tag == TagTimestamp {
		flags = append(flags, "timestamp")
	}
	return strings.Join(flags, " ")
}
