// Package models holds the shapes shared between the data, export and
// analyzer packages.
package models

// Keys of the result envelope produced by the data proxy.
const (
	KeyTables      = "Tables"
	KeyTable       = "Table"
	KeyColumns     = "Columns"
	KeyName        = "Name"
	KeyType        = "Type"
	KeyCode        = "Code"
	KeyOutput      = "Output"
	KeyReturnValue = "ReturnValue"
	KeyMessage     = "Message"
	KeyException   = "Exception"
	KeySQL         = "Sql"
	KeyData        = "Data"
)

// Result codes carried under KeyCode.
const (
	CodeOK    = 0
	CodeError = 1
)

// Column describes one column of a result table.
type Column struct {
	Name string
	Type string
}

// PathInfo summarises every value found at one path of a tree.
type PathInfo struct {
	Path string
	// Kinds lists the distinct kind or tag names seen, in first-seen order.
	Kinds    []string
	Count    int
	Nullable bool
	// Hint names a recognised string shape such as "guid" or "date".
	Hint string
	// Field is Path's last segment converted with the configured field case.
	Field string
}

// AnalysisResult is the outcome of walking a value tree.
type AnalysisResult struct {
	Root     string
	Paths    []PathInfo
	MaxDepth int
}
