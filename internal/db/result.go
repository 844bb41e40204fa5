package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Result is a random-access view over a forward-only *sql.Rows. Rows are
// pulled from the native cursor only when an accessor reaches them and are
// kept until the result is closed, so earlier rows can be read again.
//
// A Result is not safe for concurrent use.
type Result struct {
	ID uuid.UUID

	connID  uuid.UUID
	rows    *sql.Rows
	release context.CancelFunc
	columns []ColumnInfo
	convert bool
	state   state

	cache  [][]any
	cursor int // next row FetchRow returns
	done   bool
	err    error
}

// NewResult captures the schema of rows and wraps it. Capturing the schema
// does not advance the cursor. A statement without a result set yields an
// empty schema. When convert is false field values are returned exactly as
// the driver scanned them.
func NewResult(connID uuid.UUID, rows *sql.Rows, convert bool) (*Result, error) {
	if rows == nil {
		return nil, fmt.Errorf("%w: nil rows", ErrInvalidArgument)
	}

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("getting column types: %w", err)
	}

	columns := make([]ColumnInfo, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = newColumnInfo(ct)
	}

	return &Result{
		ID:      uuid.New(),
		connID:  connID,
		rows:    rows,
		columns: columns,
		convert: convert,
		state:   stateOpen,
		done:    len(columns) == 0,
	}, nil
}

// ConnectionID identifies the connection the result was produced by.
func (r *Result) ConnectionID() uuid.UUID { return r.connID }

// Valid reports whether the result has not been closed.
func (r *Result) Valid() bool { return r.state == stateOpen }

func (r *Result) check() error {
	if r == nil || r.state != stateOpen {
		return ErrInvalidResource
	}
	return nil
}

// FieldCount returns the number of fields, or -1 for a closed result.
func (r *Result) FieldCount() int {
	if r.check() != nil {
		return -1
	}
	return len(r.columns)
}

// RowCount returns the number of rows. The cursor is forward-only, so the
// count is only known once every row has been pulled; until then it is -1.
func (r *Result) RowCount() int {
	if r.check() != nil || !r.done {
		return -1
	}
	return len(r.cache)
}

// Err returns the error that ended iteration of the native cursor, if any.
func (r *Result) Err() error {
	if err := r.check(); err != nil {
		return err
	}
	return r.err
}

// FieldValue returns field of row, pulling rows from the cursor until row
// has been materialized.
func (r *Result) FieldValue(row, field int) (any, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if field < 0 || field >= len(r.columns) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFieldIndex, field)
	}
	if err := r.ensure(row); err != nil {
		return nil, err
	}
	return r.value(r.cache[row], field), nil
}

// FieldLength returns the column size the driver reported, or -1 when it is
// unknown, the index is out of range, or the result is closed.
func (r *Result) FieldLength(field int) int {
	c, err := r.Column(field)
	if err != nil {
		return -1
	}
	return c.Length
}

// Column returns the schema of one field.
func (r *Result) Column(field int) (*ColumnInfo, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if field < 0 || field >= len(r.columns) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFieldIndex, field)
	}
	c := r.columns[field]
	return &c, nil
}

// Columns returns a copy of the full schema, nil for a closed result.
func (r *Result) Columns() []ColumnInfo {
	if r.check() != nil {
		return nil
	}
	return append([]ColumnInfo(nil), r.columns...)
}

func (r *Result) FieldName(field int) (string, error) {
	c, err := r.Column(field)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

func (r *Result) FieldType(field int) (TypeTag, error) {
	c, err := r.Column(field)
	if err != nil {
		return TagUnknown, err
	}
	return c.Tag, nil
}

func (r *Result) FieldFlags(field int) (string, error) {
	c, err := r.Column(field)
	if err != nil {
		return "", err
	}
	return c.Flags(), nil
}

// FetchRow returns the row at the read position and moves past it. A nil
// row with a nil error means every row has been read.
func (r *Result) FetchRow() ([]any, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if err := r.ensure(r.cursor); err != nil {
		if r.err != nil {
			return nil, r.err
		}
		return nil, nil
	}

	raw := r.cache[r.cursor]
	r.cursor++

	row := make([]any, len(raw))
	for i := range raw {
		row[i] = r.value(raw, i)
	}
	return row, nil
}

// FetchAssoc is FetchRow keyed by field name. When names repeat the last
// field wins.
func (r *Result) FetchAssoc() (map[string]any, error) {
	row, err := r.FetchRow()
	if err != nil || row == nil {
		return nil, err
	}
	assoc := make(map[string]any, len(row))
	for i, v := range row {
		assoc[r.columns[i].Name] = v
	}
	return assoc, nil
}

// DataSeek moves the read position used by FetchRow.
func (r *Result) DataSeek(row int) error {
	if err := r.check(); err != nil {
		return err
	}
	if err := r.ensure(row); err != nil {
		return err
	}
	r.cursor = row
	return nil
}

// Close releases the native cursor. Calling Close more than once is a no-op.
func (r *Result) Close() error {
	if r == nil || r.state == stateClosed {
		return nil
	}
	r.state = stateClosed
	r.cache = nil

	var err error
	if r.rows != nil {
		err = r.rows.Close()
	}
	if r.release != nil {
		r.release()
	}
	return err
}

func (r *Result) value(raw []any, field int) any {
	if !r.convert {
		return raw[field]
	}
	return ConvertValue(r.columns[field].Tag, raw[field])
}

// ensure pulls rows until row is cached.
func (r *Result) ensure(row int) error {
	if row < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRowIndex, row)
	}
	for len(r.cache) <= row {
		if !r.pull() {
			if r.err != nil {
				return r.err
			}
			return fmt.Errorf("%w: %d", ErrInvalidRowIndex, row)
		}
	}
	return nil
}

// pull advances the native cursor once and caches the scanned row.
func (r *Result) pull() bool {
	if r.done {
		return false
	}
	if !r.rows.Next() {
		r.done = true
		r.err = r.rows.Err()
		return false
	}

	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.done = true
		r.err = fmt.Errorf("scanning row: %w", err)
		r.rows.Close()
		return false
	}

	r.cache = append(r.cache, values)
	return true
}
