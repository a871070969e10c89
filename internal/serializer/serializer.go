// Package serializer renders dynamic values and arbitrary Go values as JSON
// text.
//
// Serialization never fails. A node that cannot be rendered is written as
// null, containers nested deeper than MaxDepth are left out, and a container
// reached again through its own descendants is written as null.
package serializer

import (
	"bytes"
	"math"
	"reflect"
	"strconv"
	"unicode"

	"github.com/mcncl/dynval/internal/dynamic"
	"github.com/mcncl/dynval/internal/typeinfo"
	"github.com/shopspring/decimal"
)

// MaxDepth is the deepest container level that is written. The root
// container is level 1.
const MaxDepth = 10

// dateLayout writes seven fractional digits and no offset. Times are
// converted to UTC first so a re-parse yields the same instant.
const dateLayout = "2006-01-02T15:04:05.0000000"

// Replacer transforms each member before it is written. For map entries the
// value is the child *dynamic.Value; for described objects it is the native
// field value. The result is wrapped with dynamic.New unless it already is a
// *dynamic.Value.
type Replacer func(key string, value any) any

// Option configures a single serialize call.
type Option func(*state)

// WithReplacer installs r for the serialize call.
func WithReplacer(r Replacer) Option {
	return func(s *state) { s.replacer = r }
}

// Serialize returns the JSON text of v.
func Serialize(v any, opts ...Option) string {
	s := &state{active: make(map[any]bool)}
	for _, opt := range opts {
		opt(s)
	}
	s.node(s.wrap(v))
	return s.buf.String()
}

type state struct {
	buf      bytes.Buffer
	depth    int
	active   map[any]bool
	replacer Replacer
}

func asValue(x any) *dynamic.Value {
	if v, ok := x.(*dynamic.Value); ok {
		if v == nil {
			return dynamic.New(nil)
		}
		return v
	}
	return dynamic.New(x)
}

// wrap converts x to a Value, writing null for anything that cannot be
// converted.
func (s *state) wrap(x any) (out *dynamic.Value) {
	defer func() {
		if recover() != nil {
			out = dynamic.New(nil)
		}
	}()
	return asValue(x)
}

// replaced runs the replacer for one member.
func (s *state) replaced(key string, value any) (out *dynamic.Value) {
	defer func() {
		if recover() != nil {
			out = dynamic.New(nil)
		}
	}()
	if s.replacer != nil {
		value = s.replacer(key, value)
	}
	return asValue(value)
}

// node writes one value. A panic while writing discards the partial output
// of the node and writes null in its place.
func (s *state) node(v *dynamic.Value) {
	start := s.buf.Len()
	defer func() {
		if recover() != nil {
			s.buf.Truncate(start)
			s.buf.WriteString("null")
		}
	}()

	switch {
	case v.IsNull():
		s.buf.WriteString("null")
	case v.Payload() != nil:
		s.scalar(v)
	case v.IsList():
		s.descend(v, func() { s.list(v) })
	case v.IsMap():
		s.descend(v, func() { s.object(v) })
	default:
		s.buf.WriteString("null")
	}
}

// descend runs write one level deeper. Past MaxDepth nothing is written.
// When id is already being written further up, null is written instead.
func (s *state) descend(id any, write func()) {
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > MaxDepth {
		return
	}

	if id != nil {
		if s.active[id] {
			s.buf.WriteString("null")
			return
		}
		s.active[id] = true
		defer delete(s.active, id)
	}
	write()
}

func (s *state) list(v *dynamic.Value) {
	s.buf.WriteByte('[')
	first := true
	for _, c := range v.Children() {
		mark := s.buf.Len()
		if !first {
			s.buf.WriteByte(',')
		}
		at := s.buf.Len()
		s.node(c)
		if s.buf.Len() == at {
			s.buf.Truncate(mark)
			continue
		}
		first = false
	}
	s.buf.WriteByte(']')
}

func (s *state) object(v *dynamic.Value) {
	s.buf.WriteByte('{')
	first := true
	v.Range(func(key string, child *dynamic.Value) bool {
		s.member(&first, key, s.replaced(key, child))
		return true
	})
	s.buf.WriteByte('}')
}

// member writes "key":value. A member whose value writes nothing is left
// out entirely.
func (s *state) member(first *bool, key string, val *dynamic.Value) {
	mark := s.buf.Len()
	if !*first {
		s.buf.WriteByte(',')
	}
	s.quote(key)
	s.buf.WriteByte(':')
	at := s.buf.Len()
	s.node(val)
	if s.buf.Len() == at {
		s.buf.Truncate(mark)
		return
	}
	*first = false
}

func (s *state) scalar(v *dynamic.Value) {
	switch tag := v.Tag(); {
	case tag == typeinfo.String, tag == typeinfo.Char, tag == typeinfo.Bytes, tag == typeinfo.Type:
		s.quote(v.AsString())
	case tag == typeinfo.GUID:
		s.quote(v.AsGUID().String())
	case tag == typeinfo.URI:
		u := v.AsURI()
		if u == nil {
			s.buf.WriteString("null")
			return
		}
		s.quote(u.Path)
	case typeinfo.IsNumber(tag), tag == typeinfo.Enum:
		s.number(v.Payload())
	case tag == typeinfo.Bool:
		s.buf.WriteString(strconv.FormatBool(v.AsBool()))
	case tag == typeinfo.DateTime:
		s.quote(v.AsTime().UTC().Format(dateLayout))
	case tag == typeinfo.Ref, tag == typeinfo.DBParameter:
		s.describe(v.Payload())
	default:
		// secure strings and unclassified payloads
		s.buf.WriteString("null")
	}
}

// number writes integers and enum ordinals verbatim, floats in their
// shortest form and decimals exactly. Non-finite floats become null.
func (s *state) number(p any) {
	if d, ok := p.(decimal.Decimal); ok {
		s.buf.WriteString(d.String())
		return
	}

	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s.buf.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		s.buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			s.buf.WriteString("null")
			return
		}
		bits := 64
		if rv.Kind() == reflect.Float32 {
			bits = 32
		}
		format := byte('g')
		if f == math.Trunc(f) && math.Abs(f) < 1e21 {
			format = 'f'
		}
		s.buf.WriteString(strconv.FormatFloat(f, format, -1, bits))
	default:
		s.buf.WriteString("null")
	}
}

// describe writes a reference payload as an object of its fields.
func (s *state) describe(p any) {
	fields, ok := dynamic.Fields(p)
	if !ok {
		s.buf.WriteString("null")
		return
	}

	var id any
	if rv := reflect.ValueOf(p); rv.Kind() == reflect.Ptr {
		id = p
	}
	s.descend(id, func() {
		s.buf.WriteByte('{')
		first := true
		for _, f := range fields {
			s.member(&first, f.Name, s.replaced(f.Name, f.Value))
		}
		s.buf.WriteByte('}')
	})
}

// escapable lists the characters written as \u escapes: controls, soft
// hyphen, invisible format characters, line and paragraph separators, the
// byte order mark and the specials block.
var escapable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0000, Hi: 0x001f, Stride: 1},
		{Lo: 0x007f, Hi: 0x009f, Stride: 1},
		{Lo: 0x00ad, Hi: 0x00ad, Stride: 1},
		{Lo: 0x0600, Hi: 0x0604, Stride: 1},
		{Lo: 0x070f, Hi: 0x070f, Stride: 1},
		{Lo: 0x17b4, Hi: 0x17b5, Stride: 1},
		{Lo: 0x200c, Hi: 0x200f, Stride: 1},
		{Lo: 0x2028, Hi: 0x202f, Stride: 1},
		{Lo: 0x2060, Hi: 0x206f, Stride: 1},
		{Lo: 0xfeff, Hi: 0xfeff, Stride: 1},
		{Lo: 0xfff0, Hi: 0xffff, Stride: 1},
	},
	LatinOffset: 3,
}

const hexDigits = "0123456789abcdef"

func (s *state) quote(str string) {
	s.buf.WriteByte('"')
	for _, r := range str {
		switch r {
		case '"':
			s.buf.WriteString(`\"`)
		case '\\':
			s.buf.WriteString(`\\`)
		case '\b':
			s.buf.WriteString(`\b`)
		case '\f':
			s.buf.WriteString(`\f`)
		case '\n':
			s.buf.WriteString(`\n`)
		case '\r':
			s.buf.WriteString(`\r`)
		case '\t':
			s.buf.WriteString(`\t`)
		default:
			if unicode.Is(escapable, r) {
				s.buf.WriteString(`\u`)
				s.buf.WriteByte(hexDigits[r>>12&0xf])
				s.buf.WriteByte(hexDigits[r>>8&0xf])
				s.buf.WriteByte(hexDigits[r>>4&0xf])
				s.buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			s.buf.WriteRune(r)
		}
	}
	s.buf.WriteByte('"')
}
