// Package export writes query results into spreadsheet workbooks.
package export

// Workbook is a spreadsheet document being built.
type Workbook interface {
	// AddSheet appends a sheet. The first sheet added replaces the
	// workbook's default one.
	AddSheet(name string) (Sheet, error)
	// Bytes returns the encoded document.
	Bytes() ([]byte, error)
	Close() error
}

// Sheet addresses cells by 1-based row and column.
type Sheet interface {
	SetCell(row, col int, value any) error
	// SetColumnFormat applies the number format matching a PostgreSQL type
	// name. Unknown types are left unformatted.
	SetColumnFormat(col int, typeName string) error
	// AutoFit sizes the column to the longest value written to it.
	AutoFit(col int) error
}

// numFmts maps PostgreSQL type names to built-in spreadsheet number formats.
var numFmts = map[string]int{
	"int2":        1,  // 0
	"int4":        1,
	"int8":        1,
	"oid":         1,
	"float4":      4, // #,##0.00
	"float8":      4,
	"numeric":     4,
	"money":       4,
	"date":        14, // m/d/yy
	"time":        21, // h:mm:ss
	"timetz":      21,
	"timestamp":   22, // m/d/yy h:mm
	"timestamptz": 22,
	"text":        49, // @
	"varchar":     49,
	"bpchar":      49,
	"name":        49,
	"uuid":        49,
}

// NumFmt returns the built-in number format for a PostgreSQL type name.
func NumFmt(typeName string) (int, bool) {
	id, ok := numFmts[typeName]
	return id, ok
}
