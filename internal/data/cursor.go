package data

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// typeMap resolves the names of the built-in PostgreSQL types.
var typeMap = pgtype.NewMap()

// Cursor walks the result sets of one batch, one row at a time. Processors
// read it; the proxy owns it.
type Cursor struct {
	results   pgx.BatchResults
	remaining int

	rows   pgx.Rows
	fields []pgconn.FieldDescription
	values []any

	// last is the final row read across all result sets
	last       []any
	lastFields []pgconn.FieldDescription

	fieldName func(string) string
	tables    int
	rowCount  int
	err       error
}

func newCursor(results pgx.BatchResults, statements int, fieldName func(string) string) *Cursor {
	return &Cursor{results: results, remaining: statements, fieldName: fieldName}
}

// open starts the next result set.
func (c *Cursor) open() bool {
	if c.remaining == 0 || c.err != nil {
		return false
	}
	c.remaining--

	rows, err := c.results.Query()
	if err != nil {
		c.err = err
		return false
	}
	c.rows = rows
	c.fields = rows.FieldDescriptions()
	c.values = nil
	c.tables++
	return true
}

func (c *Cursor) closeRows() {
	if c.rows == nil {
		return
	}
	c.rows.Close()
	if err := c.rows.Err(); err != nil && c.err == nil {
		c.err = err
	}
	c.rows = nil
}

// Next advances to the next row of the current result set.
func (c *Cursor) Next() bool {
	if c.rows == nil {
		return false
	}
	if !c.rows.Next() {
		c.closeRows()
		return false
	}

	values, err := c.rows.Values()
	if err != nil {
		c.err = err
		c.closeRows()
		return false
	}
	c.values = values
	c.last, c.lastFields = values, c.fields
	c.rowCount++
	return true
}

// NextResult moves to the following result set. The fields of the previous
// one stay readable until it is called.
func (c *Cursor) NextResult() bool {
	c.closeRows()
	return c.open()
}

// FieldCount returns the number of columns of the current result set.
func (c *Cursor) FieldCount() int { return len(c.fields) }

// FieldName returns the converted name of column i.
func (c *Cursor) FieldName(i int) string {
	return c.fieldName(c.fields[i].Name)
}

// FieldType returns the PostgreSQL type name of column i.
func (c *Cursor) FieldType(i int) string {
	return typeName(c.fields[i].DataTypeOID)
}

// FieldValue returns column i of the current row.
func (c *Cursor) FieldValue(i int) any {
	if i >= len(c.values) {
		return nil
	}
	return native(c.values[i])
}

// Err returns the first error met while reading.
func (c *Cursor) Err() error { return c.err }

// lastColumn returns the column of the final row whose raw name matches
// name, ignoring case.
func (c *Cursor) lastColumn(name string) (any, bool) {
	for i, f := range c.lastFields {
		if strings.EqualFold(f.Name, name) && i < len(c.last) {
			return native(c.last[i]), true
		}
	}
	return nil, false
}

// firstLastColumn returns the first column of the final row.
func (c *Cursor) firstLastColumn() (any, bool) {
	if len(c.last) == 0 {
		return nil, false
	}
	return native(c.last[0]), true
}

func (c *Cursor) close() error {
	c.closeRows()
	if err := c.results.Close(); err != nil && c.err == nil {
		c.err = err
	}
	return c.err
}

func typeName(oid uint32) string {
	if t, ok := typeMap.TypeForOID(oid); ok {
		return t.Name
	}
	return fmt.Sprintf("oid(%d)", oid)
}

// native converts the driver's representation of a column into the value
// stored in a row.
func native(x any) any {
	switch v := x.(type) {
	case [16]byte:
		return uuid.UUID(v)
	case pgtype.Numeric:
		return numeric(v)
	}
	return x
}

func numeric(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		f, err := n.Float64Value()
		if err != nil {
			return nil
		}
		return f.Float64
	}
	if n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
