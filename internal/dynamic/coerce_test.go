package dynamic

import (
	"math"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIntegerCoercion(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int64
		ok       bool
	}{
		{name: "int", value: 42, expected: 42, ok: true},
		{name: "integer text", value: " 17 ", expected: 17, ok: true},
		{name: "non numeric text", value: "abc", expected: 0, ok: false},
		{name: "decimal text is not an integer", value: "1.5", expected: 0, ok: false},
		{name: "float rounds half to even down", value: 2.5, expected: 2, ok: true},
		{name: "float rounds half to even up", value: 3.5, expected: 4, ok: true},
		{name: "decimal", value: decimal.RequireFromString("-7.4"), expected: -7, ok: true},
		{name: "true", value: true, expected: 1, ok: true},
		{name: "false", value: false, expected: 0, ok: true},
		{name: "enum ordinal", value: InputOutput, expected: 2, ok: true},
		{name: "uint64 overflow", value: uint64(math.MaxUint64), expected: 0, ok: false},
		{name: "NaN", value: math.NaN(), expected: 0, ok: false},
		{name: "time", value: time.Now(), expected: 0, ok: false},
		{name: "null", value: nil, expected: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.value)
			n, ok := v.TryInt64()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, n)
			assert.Equal(t, tt.expected, v.AsInt64())
		})
	}
}

func TestIntegerCoercion_Widths(t *testing.T) {
	_, ok := New(300).TryByte()
	assert.False(t, ok)
	assert.Equal(t, byte(0), New(300).AsByte())
	assert.Equal(t, byte(255), New(255).AsByte())

	_, ok = New(-1).TryUint()
	assert.False(t, ok)

	_, ok = New(int64(math.MaxInt32) + 1).TryInt32()
	assert.False(t, ok)
	assert.Equal(t, int32(math.MaxInt32), New(int64(math.MaxInt32)).AsInt32())

	assert.Equal(t, int8(-128), New(-128).AsInt8())
	assert.Equal(t, int16(0), New(40000).AsInt16())
	assert.Equal(t, uint16(40000), New(40000).AsUint16())
	assert.Equal(t, uint32(7), New("7").AsUint32())
	assert.Equal(t, uint64(math.MaxUint64), New(uint64(math.MaxUint64)).AsUint64())
	assert.Equal(t, 12, New(int8(12)).AsInt())
}

func TestFloatAndDecimalCoercion(t *testing.T) {
	assert.Equal(t, 1.5, New("1.5").AsFloat64())
	assert.Equal(t, 3.0, New(3).AsFloat64())
	assert.Equal(t, 0.0, New("x").AsFloat64())
	assert.Equal(t, float32(0.25), New(0.25).AsFloat32())

	_, ok := New(math.MaxFloat64).TryFloat32()
	assert.False(t, ok)

	assert.True(t, decimal.RequireFromString("0.1").Equal(New("0.1").AsDecimal()))
	assert.True(t, decimal.NewFromInt(5).Equal(New(5).AsDecimal()))
	assert.True(t, New("nope").AsDecimal().IsZero())
}

func TestBoolCoercion(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
		ok       bool
	}{
		{name: "bool", value: true, expected: true, ok: true},
		{name: "upper case word", value: "TRUE", expected: true, ok: true},
		{name: "false word", value: "false", expected: false, ok: true},
		{name: "other word", value: "yes", expected: false, ok: false},
		{name: "non zero", value: 2, expected: true, ok: true},
		{name: "zero", value: 0.0, expected: false, ok: true},
		{name: "null", value: nil, expected: false, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := New(tt.value).TryBool()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, b)
		})
	}
}

func TestTimeCoercion(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.True(t, at.Equal(New(at).AsTime()))
	assert.True(t, at.Equal(New("2024-01-02T03:04:05Z").AsTime()))
	assert.True(t, at.Equal(New("2024-01-02 03:04:05").AsTime()))
	assert.True(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Equal(New("2024-01-02").AsTime()))

	_, ok := New("not a date").TryTime()
	assert.False(t, ok)
	assert.True(t, New(42).AsTime().IsZero())
}

func TestCharCoercion(t *testing.T) {
	assert.Equal(t, 'x', FromChar('x').AsChar())
	assert.Equal(t, 'y', New("y").AsChar())
	assert.Equal(t, 'A', New(65).AsChar())

	_, ok := New("ab").TryChar()
	assert.False(t, ok)
	_, ok = New(-1).TryChar()
	assert.False(t, ok)
	assert.Equal(t, []rune("héllo"), New("héllo").AsChars())
}

func TestStringCoercion(t *testing.T) {
	tests := []struct {
		name     string
		value    *Value
		expected string
	}{
		{name: "null", value: New(nil), expected: ""},
		{name: "string", value: New("x"), expected: "x"},
		{name: "int", value: New(12), expected: "12"},
		{name: "float", value: New(1.5), expected: "1.5"},
		{name: "bool", value: New(true), expected: "true"},
		{name: "enum name", value: New(Output), expected: "Output"},
		{name: "type name", value: New(reflect.TypeOf(url.URL{})), expected: "net/url.URL"},
		{name: "bytes as base64", value: New([]byte("hi")), expected: "aGk="},
		{name: "time", value: New(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), expected: "2024-01-02T03:04:05Z"},
		{name: "param", value: New(In("id", 7)), expected: "id=7"},
		{name: "secure string stays hidden", value: New(NewSecureString("pw")), expected: "********"},
		{name: "list debug form", value: New([]int{1, 2}), expected: "[1 2]"},
		{name: "map debug form", value: New(map[string]int{"a": 1}), expected: "map[a:1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.value.AsString())
			assert.Equal(t, tt.expected, tt.value.String())
		})
	}

	_, ok := New(nil).TryString()
	assert.False(t, ok)
}

func TestStringCoercion_Cycle(t *testing.T) {
	v := New(nil)
	v.Set("self", v)

	assert.Equal(t, "map[self:<cycle>]", v.AsString())
}

func TestBytesCoercion(t *testing.T) {
	assert.Equal(t, []byte("hi"), New("aGk=").AsBytes())

	b, ok := New("!!!").TryBytes()
	assert.False(t, ok)
	assert.NotNil(t, b)
	assert.Empty(t, b)
	assert.NotNil(t, New(nil).AsBytes())
}

func TestGUIDCoercion(t *testing.T) {
	id := uuid.New()

	assert.Equal(t, id, New(id).AsGUID())
	assert.Equal(t, id, New(id.String()).AsGUID())
	assert.True(t, New(id).IsGUID())
	assert.False(t, New(id.String()).IsGUID())

	_, ok := New("nope").TryGUID()
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, New("nope").AsGUID())
}

func TestURICoercion(t *testing.T) {
	u, ok := New("https://example.com/a/b?q=1").TryURI()
	assert.True(t, ok)
	assert.Equal(t, "/a/b", u.Path)

	_, ok = New("relative/path").TryURI()
	assert.False(t, ok)
	assert.Nil(t, New(5).AsURI())

	v := New(&url.URL{Scheme: "https", Host: "example.com", Path: "/x"})
	assert.True(t, v.IsURI())
	assert.Equal(t, "/x", v.AsURI().Path)
}

func TestTypeCoercion(t *testing.T) {
	ty := reflect.TypeOf(0)
	assert.Equal(t, ty, New(ty).AsType())
	assert.Nil(t, New("int").AsType())
}

func TestSecureStringCoercion(t *testing.T) {
	s := New("secret").AsSecureString()
	assert.Equal(t, "secret", s.Reveal())
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, "********", s.String())

	v := New(NewSecureString("pw"))
	assert.True(t, v.IsSecureString())
	assert.Equal(t, "pw", v.AsSecureString().Reveal())

	_, ok := New(5).TrySecureString()
	assert.False(t, ok)
}

func TestParamCoercion(t *testing.T) {
	p := New(Param{Name: "total", Direction: InputOutput, Value: 3}).AsParam()
	assert.Equal(t, "total", p.Name)
	assert.Equal(t, InputOutput, p.Direction)

	list := New(nil).Add(In("a", 1)).Add(Out("b"))
	params := list.AsParams()
	assert.Len(t, params, 2)
	assert.Equal(t, "b", params[1].Name)
	assert.Equal(t, Output, params[1].Direction)

	single := New(In("a", 1)).AsParams()
	assert.Len(t, single, 1)

	none := New(5).AsParams()
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "Input", Input.String())
	assert.Equal(t, "ReturnValue", ReturnValue.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
}
