package codec

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/errors"
	"github.com/mcncl/dynval/internal/typeinfo"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MsgPack encodes value trees as MessagePack.
//
// Maps keep their insertion order. Decimals and GUIDs travel as strings,
// byte sequences as bin and date/times as the timestamp extension, decoded
// in UTC. Secure strings, unclassified payloads and containers reached
// through a cycle are written as nil.
type MsgPack struct{}

// Marshal serializes v to MessagePack bytes.
func (MsgPack) Marshal(v *dynamic.Value) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errors.NewEncodingError("failed to encode msgpack", fmt.Errorf("%v", r))
		}
	}()

	var buf bytes.Buffer
	e := &encoder{enc: msgpack.NewEncoder(&buf), active: make(map[any]bool)}
	if err := e.value(v); err != nil {
		return nil, errors.NewEncodingError("failed to encode msgpack", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal deserializes MessagePack bytes. Trailing bytes after the first
// value are an error.
func (MsgPack) Unmarshal(data []byte) (*dynamic.Value, error) {
	r := bytes.NewReader(data)
	d := &decoder{dec: msgpack.NewDecoder(r)}

	v, err := d.value()
	if err != nil {
		return nil, errors.NewEncodingError("failed to decode msgpack", err)
	}
	if r.Len() > 0 {
		return nil, errors.NewEncodingError(fmt.Sprintf("failed to decode msgpack: %d trailing bytes", r.Len()), nil)
	}
	return v, nil
}

// Name returns "msgpack".
func (MsgPack) Name() string { return "msgpack" }

type encoder struct {
	enc    *msgpack.Encoder
	active map[any]bool
}

func (e *encoder) value(v *dynamic.Value) error {
	switch {
	case v == nil, v.IsNull():
		return e.enc.EncodeNil()
	case v.Payload() != nil:
		return e.scalar(v)
	case v.IsList():
		return e.enter(v, func() error {
			children := v.Children()
			if err := e.enc.EncodeArrayLen(len(children)); err != nil {
				return err
			}
			for _, c := range children {
				if err := e.value(c); err != nil {
					return err
				}
			}
			return nil
		})
	case v.IsMap():
		return e.enter(v, func() error {
			if err := e.enc.EncodeMapLen(v.Len()); err != nil {
				return err
			}
			var err error
			v.Range(func(key string, child *dynamic.Value) bool {
				if err = e.enc.EncodeString(key); err == nil {
					err = e.value(child)
				}
				return err == nil
			})
			return err
		})
	}
	return e.enc.EncodeNil()
}

// enter writes one container, or nil when id is already being written. A
// nil id is not tracked.
func (e *encoder) enter(id any, write func() error) error {
	if id == nil {
		return write()
	}
	if e.active[id] {
		return e.enc.EncodeNil()
	}
	e.active[id] = true
	defer delete(e.active, id)
	return write()
}

func (e *encoder) scalar(v *dynamic.Value) error {
	switch tag := v.Tag(); {
	case tag == typeinfo.Bool:
		return e.enc.EncodeBool(v.AsBool())
	case tag == typeinfo.Int, tag == typeinfo.Int8, tag == typeinfo.Int16,
		tag == typeinfo.Int32, tag == typeinfo.Int64, tag == typeinfo.Enum:
		return e.enc.EncodeInt(v.AsInt64())
	case typeinfo.IsInteger(tag):
		return e.enc.EncodeUint(v.AsUint64())
	case tag == typeinfo.Float32:
		return e.enc.EncodeFloat32(v.AsFloat32())
	case tag == typeinfo.Float64:
		return e.enc.EncodeFloat64(v.AsFloat64())
	case tag == typeinfo.DateTime:
		return e.enc.EncodeTime(v.AsTime())
	case tag == typeinfo.Bytes:
		return e.enc.EncodeBytes(v.AsBytes())
	case tag == typeinfo.GUID:
		return e.enc.EncodeString(v.AsGUID().String())
	case tag == typeinfo.URI:
		if u := v.AsURI(); u != nil {
			return e.enc.EncodeString(u.String())
		}
	case tag == typeinfo.Decimal, typeinfo.IsString(tag), tag == typeinfo.Type:
		return e.enc.EncodeString(v.AsString())
	case tag == typeinfo.Ref, tag == typeinfo.DBParameter:
		return e.describe(v.Payload())
	}
	return e.enc.EncodeNil()
}

// describe writes a reference payload as a map of its fields.
func (e *encoder) describe(p any) error {
	fields, ok := dynamic.Fields(p)
	if !ok {
		return e.enc.EncodeNil()
	}

	var id any
	if reflect.ValueOf(p).Kind() == reflect.Ptr {
		id = p
	}
	return e.enter(id, func() error {
		if err := e.enc.EncodeMapLen(len(fields)); err != nil {
			return err
		}
		for _, f := range fields {
			if err := e.enc.EncodeString(f.Name); err != nil {
				return err
			}
			child, ok := f.Value.(*dynamic.Value)
			if !ok {
				child = dynamic.New(f.Value)
			}
			if err := e.value(child); err != nil {
				return err
			}
		}
		return nil
	})
}

type decoder struct {
	dec *msgpack.Decoder
}

func (d *decoder) value() (*dynamic.Value, error) {
	c, err := d.dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case c == msgpcode.Nil:
		return dynamic.New(nil), d.dec.DecodeNil()
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		return d.list()
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		return d.object()
	case c == msgpcode.Bin8, c == msgpcode.Bin16, c == msgpcode.Bin32:
		b, err := d.dec.DecodeBytes()
		if err != nil {
			return nil, err
		}
		return dynamic.New(b), nil
	}

	x, err := d.dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	if t, ok := x.(time.Time); ok {
		x = t.UTC()
	}
	return dynamic.New(x), nil
}

func (d *decoder) list() (*dynamic.Value, error) {
	n, err := d.dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	v := dynamic.New(nil)
	for i := 0; i < n; i++ {
		child, err := d.value()
		if err != nil {
			return nil, err
		}
		v.Add(child)
	}
	return v, nil
}

func (d *decoder) object() (*dynamic.Value, error) {
	n, err := d.dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	v := dynamic.New(nil)
	for i := 0; i < n; i++ {
		key, err := d.dec.DecodeString()
		if err != nil {
			return nil, fmt.Errorf("map key %d: %w", i, err)
		}
		child, err := d.value()
		if err != nil {
			return nil, err
		}
		v.Set(key, child)
	}
	return v, nil
}
