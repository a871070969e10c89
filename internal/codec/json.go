package codec

import (
	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/parser"
	"github.com/mcncl/dynval/internal/serializer"
)

// JSON encodes value trees as JSON text.
type JSON struct {
	// Options are applied when decoding.
	Options []parser.Option
}

// Marshal serializes v to JSON bytes. It never fails.
func (JSON) Marshal(v *dynamic.Value) ([]byte, error) {
	return []byte(serializer.Serialize(v)), nil
}

// Unmarshal parses JSON bytes. Malformed input yields a *errors.SyntaxError.
func (c JSON) Unmarshal(data []byte) (*dynamic.Value, error) {
	return parser.Parse(string(data), c.Options...)
}

// Name returns "json".
func (JSON) Name() string { return "json" }
