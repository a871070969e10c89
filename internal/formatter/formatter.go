package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultIndent is used when a Formatter is created with an empty indent.
const DefaultIndent = "  "

// Formatter re-indents compact JSON text for display
type Formatter struct {
	indent string
}

// NewFormatter creates a Formatter that nests with indent
func NewFormatter(indent string) *Formatter {
	if indent == "" {
		indent = DefaultIndent
	}
	return &Formatter{indent: indent}
}

// Format takes JSON text and returns it with one member or element per line
func (f *Formatter) Format(text string) (string, error) {
	// Handle empty input
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", f.indent); err != nil {
		return "", fmt.Errorf("failed to format JSON: %w", err)
	}
	buf.WriteByte('\n')

	return buf.String(), nil
}
