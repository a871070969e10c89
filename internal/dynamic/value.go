// Package dynamic implements a self-describing value container that holds
// either a tagged scalar or an ordered list or map of child values.
//
// A Value is not safe for concurrent mutation. Callers sharing a Value between
// goroutines must synchronize access themselves.
package dynamic

import (
	"encoding/base64"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/mcncl/dynval/internal/typeinfo"
)

// Kind tells whether a Value is still undetermined (scalar or empty) or has
// been fixed as a list or a map by its first child insertion.
type Kind uint8

const (
	KindUndetermined Kind = iota
	KindList
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "undetermined"
	}
}

// Value is the uniform dynamic container.
type Value struct {
	payload any
	tag     typeinfo.Tag
	kind    Kind

	list []*Value

	keys  []string
	vals  []*Value
	index map[string]int

	readonly    bool
	nextAutoKey int
}

// New wraps a native Go value.
//
// nil and nil pointers produce a null Value. Another Value is deep-copied.
// Maps with string keys become map entries in sorted key order; entries
// whose key is not a string are skipped. Slices of runes collapse into a
// string, slices of bytes into a base64 byte sequence, and any other slice
// or array becomes a list of wrapped elements. Everything else is kept as a
// tagged scalar.
func New(v any) *Value {
	out := &Value{}
	out.assign(v, nil)
	return out
}

// FromChar returns a character scalar. Runes are otherwise indistinguishable
// from int32 values.
func FromChar(r rune) *Value {
	return &Value{payload: r, tag: typeinfo.Char}
}

// FromType returns a type-reference scalar.
func FromType(t reflect.Type) *Value {
	if t == nil {
		return &Value{}
	}
	return &Value{payload: t, tag: typeinfo.Type}
}

func (v *Value) setScalar(p any, tag typeinfo.Tag) {
	v.payload = p
	v.tag = tag
}

// assign fills v from x. active holds the maps and slices currently being
// descended; a container met again inside itself is left null.
func (v *Value) assign(x any, active map[uintptr]bool) {
	switch p := x.(type) {
	case nil:
		return
	case *Value:
		if p != nil {
			p.cloneInto(v, map[*Value]*Value{})
		}
		return
	case Value:
		p.cloneInto(v, map[*Value]*Value{})
		return
	case string:
		v.setScalar(p, typeinfo.String)
		return
	case []byte:
		v.setScalar(base64.StdEncoding.EncodeToString(p), typeinfo.Bytes)
		return
	case []rune:
		v.setScalar(string(p), typeinfo.String)
		return
	case reflect.Type:
		v.setScalar(p, typeinfo.Type)
		return
	case url.URL:
		v.setScalar(&p, typeinfo.URI)
		return
	case *url.URL:
		if p != nil {
			v.setScalar(p, typeinfo.URI)
		}
		return
	case Param:
		v.setScalar(p, typeinfo.DBParameter)
		return
	case *Param:
		if p != nil {
			v.setScalar(*p, typeinfo.DBParameter)
		}
		return
	case SecureString:
		v.setScalar(p, typeinfo.SecureString)
		return
	}

	rv := reflect.ValueOf(x)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return
		}
		if rv.Kind() == reflect.Ptr && typeinfo.OfType(rv.Type()) == typeinfo.Ref {
			v.setScalar(rv.Interface(), typeinfo.Ref)
			return
		}
		rv = rv.Elem()
	}

	t := rv.Type()
	tag := typeinfo.OfType(t)
	switch {
	case tag == typeinfo.GUID || tag == typeinfo.Decimal || tag == typeinfo.DateTime || tag == typeinfo.Enum:
		v.setScalar(rv.Interface(), tag)
	case tag == typeinfo.URI:
		u := rv.Interface().(url.URL)
		v.setScalar(&u, tag)
	case typeinfo.IsStringKeyMap(t):
		if rv.IsNil() {
			return
		}
		id := rv.Pointer()
		if active[id] {
			return
		}
		active = enter(active, id)
		defer delete(active, id)
		v.fromMap(rv, active)
	case typeinfo.IsGenericList(t):
		if rv.Kind() != reflect.Slice {
			v.fromList(rv, active)
			return
		}
		if rv.IsNil() {
			return
		}
		id := rv.Pointer()
		if rv.Len() > 0 && active[id] {
			return
		}
		if rv.Len() > 0 {
			active = enter(active, id)
			defer delete(active, id)
		}
		v.fromList(rv, active)
	default:
		v.setScalar(rv.Interface(), tag)
	}
}

func enter(active map[uintptr]bool, id uintptr) map[uintptr]bool {
	if active == nil {
		active = map[uintptr]bool{}
	}
	active[id] = true
	return active
}

func (v *Value) fromMap(rv reflect.Value, active map[uintptr]bool) {
	type pair struct {
		key string
		val reflect.Value
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			if k.IsNil() {
				continue
			}
			k = k.Elem()
		}
		if k.Kind() != reflect.String {
			continue
		}
		pairs = append(pairs, pair{key: k.String(), val: iter.Value()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })
	for _, p := range pairs {
		c := &Value{}
		c.assign(p.val.Interface(), active)
		v.store(p.key, c)
	}
}

func (v *Value) fromList(rv reflect.Value, active map[uintptr]bool) {
	et := rv.Type().Elem()
	switch {
	case typeinfo.IsCharElem(et):
		var sb strings.Builder
		for i := 0; i < rv.Len(); i++ {
			sb.WriteRune(rune(rv.Index(i).Int()))
		}
		v.setScalar(sb.String(), typeinfo.String)
	case typeinfo.IsByteElem(et):
		buf := make([]byte, rv.Len())
		for i := range buf {
			e := rv.Index(i)
			if e.Kind() == reflect.Int8 {
				buf[i] = byte(e.Int())
			} else {
				buf[i] = byte(e.Uint())
			}
		}
		v.setScalar(base64.StdEncoding.EncodeToString(buf), typeinfo.Bytes)
	default:
		for i := 0; i < rv.Len(); i++ {
			e := rv.Index(i)
			if (e.Kind() == reflect.Interface || e.Kind() == reflect.Ptr) && e.IsNil() {
				continue
			}
			c := &Value{}
			c.assign(e.Interface(), active)
			v.appendAuto(c)
		}
	}
}

// cloneInto deep-copies v into dst. seen maps already copied nodes so shared
// and cyclic children keep their shape in the copy.
func (v *Value) cloneInto(dst *Value, seen map[*Value]*Value) {
	seen[v] = dst
	dst.payload = v.payload
	dst.tag = v.tag
	dst.kind = v.kind
	dst.readonly = v.readonly
	dst.nextAutoKey = v.nextAutoKey
	dst.list = nil
	dst.keys = nil
	dst.vals = nil
	dst.index = nil

	clone := func(c *Value) *Value {
		if c == nil {
			return nil
		}
		if done, ok := seen[c]; ok {
			return done
		}
		n := &Value{}
		c.cloneInto(n, seen)
		return n
	}

	if len(v.list) > 0 {
		dst.list = make([]*Value, len(v.list))
		for i, c := range v.list {
			dst.list[i] = clone(c)
		}
	}
	if len(v.keys) > 0 {
		dst.keys = append([]string(nil), v.keys...)
		dst.vals = make([]*Value, len(v.vals))
		for i, c := range v.vals {
			dst.vals[i] = clone(c)
		}
		dst.index = make(map[string]int, len(v.index))
		for k, i := range v.index {
			dst.index[k] = i
		}
	}
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	return New(v)
}

// Payload returns the scalar payload, or nil for containers and null values.
// Byte sequences are held as base64 text.
func (v *Value) Payload() any { return v.payload }

// Tag returns the semantic type tag of the scalar payload.
func (v *Value) Tag() typeinfo.Tag { return v.tag }

// Kind returns whether v is undetermined, a list or a map.
func (v *Value) Kind() Kind { return v.kind }

// Len returns the number of children.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	return len(v.list) + len(v.vals)
}

// Keys returns the map keys in insertion order. Lists have no keys.
func (v *Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Children returns the child values in order.
func (v *Value) Children() []*Value {
	switch v.kind {
	case KindList:
		return append([]*Value(nil), v.list...)
	case KindMap:
		return append([]*Value(nil), v.vals...)
	}
	return nil
}

// Range calls fn for each child in order until fn returns false. List
// children are reported with their decimal position as key.
func (v *Value) Range(fn func(key string, child *Value) bool) {
	switch v.kind {
	case KindList:
		for i, c := range v.list {
			if !fn(itoa(i), c) {
				return
			}
		}
	case KindMap:
		for i, k := range v.keys {
			if !fn(k, v.vals[i]) {
				return
			}
		}
	}
}

// First returns the first child, or a new empty value when there is none.
func (v *Value) First() *Value {
	switch {
	case len(v.list) > 0:
		return v.list[0]
	case len(v.vals) > 0:
		return v.vals[0]
	}
	return &Value{}
}

// MakeReadOnly marks v as read-only. The flag is advisory.
func (v *Value) MakeReadOnly() { v.readonly = true }

// IsReadOnly reports whether MakeReadOnly was called.
func (v *Value) IsReadOnly() bool { return v.readonly }
