package dynamic

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mcncl/dynval/internal/typeinfo"
	"github.com/shopspring/decimal"
)

// Conversions come in pairs. TryX reports whether the payload could be
// converted; AsX never fails and falls back to the zero value of the target.

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

var (
	minInt64  = decimal.NewFromInt(math.MinInt64)
	maxInt64  = decimal.NewFromInt(math.MaxInt64)
	maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
)

// timeLayouts are tried in order when a string is converted to a time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// text returns the payload when it is plain text, excluding base64 byte
// sequences.
func (v *Value) text() (string, bool) {
	if v == nil || v.tag == typeinfo.Bytes {
		return "", false
	}
	s, ok := v.payload.(string)
	return s, ok
}

// numeric returns an exact decimal view of numeric, boolean and numeric
// text payloads.
func (v *Value) numeric() (decimal.Decimal, bool) {
	if v == nil || v.tag == typeinfo.Char || v.tag == typeinfo.Bytes {
		return decimal.Zero, false
	}
	switch p := v.payload.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return p, true
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(p), true
	case float32:
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(p), true
	case bool:
		if p {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		return d, err == nil
	}

	rv := reflect.ValueOf(v.payload)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	}
	return decimal.Zero, false
}

// TryInt64 converts numbers with banker's rounding, integer text and
// booleans. Values outside the int64 range fail.
func (v *Value) TryInt64() (int64, bool) {
	if s, ok := v.text(); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	d, ok := v.numeric()
	if !ok {
		return 0, false
	}
	d = d.RoundBank(0)
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, false
	}
	return d.IntPart(), true
}

// TryUint64 is the unsigned counterpart of TryInt64.
func (v *Value) TryUint64() (uint64, bool) {
	if s, ok := v.text(); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		return n, err == nil
	}
	d, ok := v.numeric()
	if !ok {
		return 0, false
	}
	d = d.RoundBank(0)
	if d.IsNegative() || d.GreaterThan(maxUint64) {
		return 0, false
	}
	return d.BigInt().Uint64(), true
}

func trySigned[T signed](v *Value) (T, bool) {
	n, ok := v.TryInt64()
	if !ok {
		return 0, false
	}
	t := T(n)
	if int64(t) != n {
		return 0, false
	}
	return t, true
}

func tryUnsigned[T unsigned](v *Value) (T, bool) {
	n, ok := v.TryUint64()
	if !ok {
		return 0, false
	}
	t := T(n)
	if uint64(t) != n {
		return 0, false
	}
	return t, true
}

func (v *Value) TryInt() (int, bool)       { return trySigned[int](v) }
func (v *Value) TryInt8() (int8, bool)     { return trySigned[int8](v) }
func (v *Value) TryInt16() (int16, bool)   { return trySigned[int16](v) }
func (v *Value) TryInt32() (int32, bool)   { return trySigned[int32](v) }
func (v *Value) TryUint() (uint, bool)     { return tryUnsigned[uint](v) }
func (v *Value) TryByte() (byte, bool)     { return tryUnsigned[uint8](v) }
func (v *Value) TryUint16() (uint16, bool) { return tryUnsigned[uint16](v) }
func (v *Value) TryUint32() (uint32, bool) { return tryUnsigned[uint32](v) }

func (v *Value) AsInt() int       { n, _ := v.TryInt(); return n }
func (v *Value) AsInt8() int8     { n, _ := v.TryInt8(); return n }
func (v *Value) AsInt16() int16   { n, _ := v.TryInt16(); return n }
func (v *Value) AsInt32() int32   { n, _ := v.TryInt32(); return n }
func (v *Value) AsInt64() int64   { n, _ := v.TryInt64(); return n }
func (v *Value) AsUint() uint     { n, _ := v.TryUint(); return n }
func (v *Value) AsByte() byte     { n, _ := v.TryByte(); return n }
func (v *Value) AsUint16() uint16 { n, _ := v.TryUint16(); return n }
func (v *Value) AsUint32() uint32 { n, _ := v.TryUint32(); return n }
func (v *Value) AsUint64() uint64 { n, _ := v.TryUint64(); return n }

// TryFloat64 converts numbers, numeric text and booleans.
func (v *Value) TryFloat64() (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch p := v.payload.(type) {
	case float64:
		return p, true
	case float32:
		return float64(p), true
	}
	if s, ok := v.text(); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	d, ok := v.numeric()
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// TryFloat32 fails for finite values outside the float32 range.
func (v *Value) TryFloat32() (float32, bool) {
	f, ok := v.TryFloat64()
	if !ok {
		return 0, false
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, false
	}
	return float32(f), true
}

func (v *Value) AsFloat64() float64 { f, _ := v.TryFloat64(); return f }
func (v *Value) AsFloat32() float32 { f, _ := v.TryFloat32(); return f }

// TryDecimal converts numbers, numeric text and booleans exactly.
func (v *Value) TryDecimal() (decimal.Decimal, bool) {
	return v.numeric()
}

func (v *Value) AsDecimal() decimal.Decimal { d, _ := v.TryDecimal(); return d }

// TryBool accepts booleans, the words true and false in any case, and
// numbers, which are true when non-zero.
func (v *Value) TryBool() (bool, bool) {
	if v == nil {
		return false, false
	}
	if b, ok := v.payload.(bool); ok {
		return b, true
	}
	if s, ok := v.text(); ok {
		s = strings.TrimSpace(s)
		switch {
		case strings.EqualFold(s, "true"):
			return true, true
		case strings.EqualFold(s, "false"):
			return false, true
		}
		return false, false
	}
	d, ok := v.numeric()
	if !ok {
		return false, false
	}
	return !d.IsZero(), true
}

func (v *Value) AsBool() bool { b, _ := v.TryBool(); return b }

// TryTime accepts time payloads and text in RFC 3339 or common SQL layouts.
func (v *Value) TryTime() (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	if t, ok := v.payload.(time.Time); ok {
		return t, true
	}
	if s, ok := v.text(); ok {
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// AsTime returns the zero time, 0001-01-01, when v is not a time.
func (v *Value) AsTime() time.Time { t, _ := v.TryTime(); return t }

// TryChar accepts characters, single-character text and integer code points.
func (v *Value) TryChar() (rune, bool) {
	if v == nil {
		return 0, false
	}
	if v.tag == typeinfo.Char {
		r, ok := v.payload.(rune)
		return r, ok
	}
	if s, ok := v.text(); ok {
		rs := []rune(s)
		if len(rs) == 1 {
			return rs[0], true
		}
		return 0, false
	}
	if typeinfo.IsInteger(v.tag) {
		n, ok := v.TryInt64()
		if ok && n >= 0 && n <= unicode.MaxRune {
			return rune(n), true
		}
	}
	return 0, false
}

func (v *Value) AsChar() rune { r, _ := v.TryChar(); return r }

// TryString renders any non-null value as text. Type references yield their
// fully-qualified name, byte sequences their base64 text, enums their
// symbolic name and containers a debug rendering that is not JSON.
func (v *Value) TryString() (string, bool) {
	if v.IsNull() {
		return "", false
	}
	switch {
	case v.tag == typeinfo.Type:
		t, _ := v.payload.(reflect.Type)
		return typeinfo.TypeName(t), true
	case v.tag == typeinfo.Enum:
		return fmt.Sprint(v.payload), true
	case v.tag == typeinfo.Char:
		if r, ok := v.payload.(rune); ok {
			return string(r), true
		}
	case v.Len() > 0:
		return v.debugString(), true
	}

	switch p := v.payload.(type) {
	case string:
		return p, true
	case time.Time:
		return p.Format(time.RFC3339Nano), true
	case float64:
		return strconv.FormatFloat(p, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(p), 'g', -1, 32), true
	case Param:
		return fmt.Sprintf("%s=%v", p.Name, p.Value), true
	case fmt.Stringer:
		return p.String(), true
	case error:
		return p.Error(), true
	}
	return fmt.Sprint(v.payload), true
}

// AsString is TryString with the empty string for null values.
func (v *Value) AsString() string { s, _ := v.TryString(); return s }

// String implements fmt.Stringer with AsString. Use the serializer for JSON.
func (v *Value) String() string { return v.AsString() }

// TryBytes decodes the base64 text form of v.
func (v *Value) TryBytes() ([]byte, bool) {
	if v.IsNull() {
		return []byte{}, false
	}
	b, err := base64.StdEncoding.DecodeString(v.AsString())
	if err != nil {
		return []byte{}, false
	}
	return b, true
}

// AsBytes returns an empty, non-nil slice on failure.
func (v *Value) AsBytes() []byte { b, _ := v.TryBytes(); return b }

// TryChars returns the characters of the text form of v.
func (v *Value) TryChars() ([]rune, bool) {
	s, ok := v.TryString()
	return []rune(s), ok
}

func (v *Value) AsChars() []rune { r, _ := v.TryChars(); return r }

// TryType returns the type reference held by v.
func (v *Value) TryType() (reflect.Type, bool) {
	if v == nil {
		return nil, false
	}
	t, ok := v.payload.(reflect.Type)
	return t, ok
}

func (v *Value) AsType() reflect.Type { t, _ := v.TryType(); return t }

// TryGUID returns a GUID payload or parses the text form of v.
func (v *Value) TryGUID() (uuid.UUID, bool) {
	if v == nil {
		return uuid.Nil, false
	}
	if id, ok := v.payload.(uuid.UUID); ok {
		return id, true
	}
	id, err := uuid.Parse(strings.TrimSpace(v.AsString()))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// AsGUID returns uuid.Nil on failure.
func (v *Value) AsGUID() uuid.UUID { id, _ := v.TryGUID(); return id }

// TryURI returns a URI payload or parses the text form of v, which must be
// an absolute URI.
func (v *Value) TryURI() (*url.URL, bool) {
	if v == nil {
		return nil, false
	}
	if u, ok := v.payload.(*url.URL); ok {
		return u, true
	}
	u, err := url.Parse(strings.TrimSpace(v.AsString()))
	if err != nil || !u.IsAbs() {
		return nil, false
	}
	return u, true
}

// AsURI returns nil on failure.
func (v *Value) AsURI() *url.URL { u, _ := v.TryURI(); return u }

// TrySecureString returns a secure string payload or protects text.
func (v *Value) TrySecureString() (SecureString, bool) {
	if v == nil {
		return SecureString{}, false
	}
	if s, ok := v.payload.(SecureString); ok {
		return s, true
	}
	if v.IsString() {
		return NewSecureString(v.AsString()), true
	}
	return SecureString{}, false
}

func (v *Value) AsSecureString() SecureString { s, _ := v.TrySecureString(); return s }

// TryParam returns the statement parameter held by v.
func (v *Value) TryParam() (Param, bool) {
	if v == nil {
		return Param{}, false
	}
	p, ok := v.payload.(Param)
	return p, ok
}

func (v *Value) AsParam() Param { p, _ := v.TryParam(); return p }

// AsParams returns the single parameter held by v, or every parameter of a
// parameter list. Anything else yields an empty slice.
func (v *Value) AsParams() []Param {
	params := []Param{}
	switch {
	case v.IsDBParameter():
		params = append(params, v.AsParam())
	case v.IsDBParameterArray():
		for _, c := range v.list {
			params = append(params, c.AsParam())
		}
	}
	return params
}
