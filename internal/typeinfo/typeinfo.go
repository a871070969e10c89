// Package typeinfo classifies native Go values into the semantic type tags
// carried by dynamic values.
package typeinfo

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tag is the semantic classification attached to a scalar value.
type Tag uint8

const (
	// None marks a value without a scalar payload.
	None Tag = iota
	Bool
	Int
	Int8
	Int16
	Int32
	Int64
	Uint
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Decimal
	DateTime
	String
	Char
	Bytes
	GUID
	URI
	Type
	SecureString
	DBParameter
	Enum
	// Ref is any other reference-like payload (structs, pointers to structs,
	// errors) that is rendered through its fields.
	Ref
	// Other is a payload with no useful classification (channels, funcs).
	Other
)

var tagNames = [...]string{
	None:         "none",
	Bool:         "bool",
	Int:          "int",
	Int8:         "int8",
	Int16:        "int16",
	Int32:        "int32",
	Int64:        "int64",
	Uint:         "uint",
	Uint8:        "uint8",
	Uint16:       "uint16",
	Uint32:       "uint32",
	Uint64:       "uint64",
	Float32:      "float32",
	Float64:      "float64",
	Decimal:      "decimal",
	DateTime:     "datetime",
	String:       "string",
	Char:         "char",
	Bytes:        "bytes",
	GUID:         "guid",
	URI:          "uri",
	Type:         "type",
	SecureString: "securestring",
	DBParameter:  "dbparameter",
	Enum:         "enum",
	Ref:          "ref",
	Other:        "other",
}

// String returns the tag name.
func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// IsNumber reports whether t is any integer, floating point or decimal tag.
func IsNumber(t Tag) bool {
	switch t {
	case Int, Int8, Int16, Int32, Int64,
		Uint, Uint8, Uint16, Uint32, Uint64,
		Float32, Float64, Decimal:
		return true
	}
	return false
}

// IsInt reports whether t is one of the word-sized or 32-bit integer tags.
func IsInt(t Tag) bool {
	return t == Int || t == Uint || t == Int32 || t == Uint32
}

// IsInteger reports whether t is any integer tag regardless of width.
func IsInteger(t Tag) bool {
	switch t {
	case Int, Int8, Int16, Int32, Int64, Uint, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

func IsByte(t Tag) bool      { return t == Int8 || t == Uint8 }
func IsBool(t Tag) bool      { return t == Bool }
func IsString(t Tag) bool    { return t == String || t == Char }
func IsChar(t Tag) bool      { return t == Char }
func IsDateTime(t Tag) bool  { return t == DateTime }
func IsByteArray(t Tag) bool { return t == Bytes }
func IsGUID(t Tag) bool      { return t == GUID }
func IsURI(t Tag) bool       { return t == URI }
func IsType(t Tag) bool      { return t == Type }
func IsEnum(t Tag) bool      { return t == Enum }

func IsSecureString(t Tag) bool { return t == SecureString }
func IsDBParameter(t Tag) bool  { return t == DBParameter }

// IsRefType reports whether t describes a reference-like payload: strings,
// byte sequences, URIs, type references and anything rendered by fields.
func IsRefType(t Tag) bool {
	switch t {
	case String, Bytes, URI, Type, SecureString, DBParameter, Ref:
		return true
	}
	return false
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	urlType     = reflect.TypeOf(url.URL{})
	typeType    = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	stringer    = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Of classifies a native value. Nil yields None.
func Of(v any) Tag {
	if v == nil {
		return None
	}
	if _, ok := v.(reflect.Type); ok {
		return Type
	}
	return OfType(reflect.TypeOf(v))
}

// OfType classifies a native type. Pointers are classified by their element
// type, except pointers to structs which are reference payloads.
func OfType(t reflect.Type) Tag {
	if t == nil {
		return None
	}
	switch t {
	case timeType:
		return DateTime
	case uuidType:
		return GUID
	case decimalType:
		return Decimal
	case urlType:
		return URI
	}
	if t.Implements(typeType) {
		return Type
	}
	if t.Kind() == reflect.Ptr {
		switch t.Elem() {
		case urlType:
			return URI
		case timeType, uuidType, decimalType:
			return OfType(t.Elem())
		}
		if t.Elem().Kind() == reflect.Struct || t.Implements(errorType) {
			return Ref
		}
		return OfType(t.Elem())
	}

	if IsEnumType(t) {
		return Enum
	}

	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int:
		return Int
	case reflect.Int8:
		return Int8
	case reflect.Int16:
		return Int16
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint:
		return Uint
	case reflect.Uint8:
		return Uint8
	case reflect.Uint16:
		return Uint16
	case reflect.Uint32:
		return Uint32
	case reflect.Uint64, reflect.Uintptr:
		return Uint64
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.String:
		return String
	case reflect.Struct, reflect.Interface:
		return Ref
	}
	return Other
}

// IsEnumType reports whether t is a named integer type with a String method,
// the usual shape of a Go enumeration.
func IsEnumType(t reflect.Type) bool {
	if t == nil || t.PkgPath() == "" || !t.Implements(stringer) {
		return false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// IsStringKeyMap reports whether t is a map whose keys may be strings.
// Maps keyed by interface types qualify; non-string entries are skipped by
// callers at iteration time.
func IsStringKeyMap(t reflect.Type) bool {
	if t == nil || t.Kind() != reflect.Map {
		return false
	}
	k := t.Key()
	return k.Kind() == reflect.String || k.Kind() == reflect.Interface
}

// IsGenericList reports whether t is an ordered sequence with a single
// element type.
func IsGenericList(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

// IsCharElem reports whether list elements of type t collapse into a string.
func IsCharElem(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Int32 && t.PkgPath() == ""
}

// IsByteElem reports whether list elements of type t collapse into a byte
// sequence.
func IsByteElem(t reflect.Type) bool {
	return t != nil && (t.Kind() == reflect.Uint8 || t.Kind() == reflect.Int8) && !IsEnumType(t)
}

// TypeName returns the fully-qualified name of a type reference.
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
