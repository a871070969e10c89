// Package codec encodes dynamic value trees to bytes and back.
package codec

import (
	"fmt"

	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors"
)

// Codec encodes and decodes value trees.
type Codec interface {
	// Marshal serializes v into bytes.
	Marshal(v *dynamic.Value) ([]byte, error)
	// Unmarshal deserializes data into a new value tree.
	Unmarshal(data []byte) (*dynamic.Value, error)
	// Name returns the codec identifier used for diagnostics.
	Name() string
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return MsgPack{}, nil
	}
	return nil, errors.NewConfigError(fmt.Sprintf("unknown codec '%s'", name), errors.ErrUnknownFormat)
}
