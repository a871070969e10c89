package data

import (
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/models"
)

// Processor turns the result sets of a cursor into a value. The cursor is
// positioned on the first result set when Process is called.
type Processor interface {
	Process(c *Cursor) (*dynamic.Value, error)
	// ReadsParameters reports whether output parameters are copied into
	// the processed value.
	ReadsParameters() bool
}

// TablesProcessor materialises every result set as one entry of Tables,
// holding its rows under Table and its column names and types under
// Columns.
type TablesProcessor struct{}

func (TablesProcessor) Process(c *Cursor) (*dynamic.Value, error) {
	data := dynamic.New(nil)
	tables := data.Get(models.KeyTables)

	for {
		table := dynamic.New(nil)
		columns := dynamic.New(nil)

		for i := 0; i < c.FieldCount(); i++ {
			columns.Add(dynamic.New(nil).
				Set(models.KeyName, c.FieldName(i)).
				Set(models.KeyType, c.FieldType(i)))
		}

		for c.Next() {
			row := dynamic.New(nil)
			for i := 0; i < c.FieldCount(); i++ {
				row.Set(c.FieldName(i), c.FieldValue(i))
			}
			table.Add(row)
		}
		if err := c.Err(); err != nil {
			return nil, err
		}

		tables.Add(dynamic.New(nil).
			Set(models.KeyTable, table).
			Set(models.KeyColumns, columns))

		if !c.NextResult() {
			break
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	data.Set(models.KeyCode, models.CodeOK)
	return data, nil
}

func (TablesProcessor) ReadsParameters() bool { return true }
