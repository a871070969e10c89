package dynamic

import (
	"strconv"
	"strings"

	"github.com/mcncl/dynval/internal/typeinfo"
	"golang.org/x/text/cases"
)

func itoa(i int) string { return strconv.Itoa(i) }

// FoldKey normalizes a map key the way Value compares keys.
func FoldKey(k string) string {
	return cases.Fold().String(k)
}

// promote fixes the kind of v the first time a child is inserted and
// returns the kind v ends up with. Once fixed the kind never changes.
func (v *Value) promote(k Kind) Kind {
	if v.kind == KindUndetermined {
		v.kind = k
	}
	return v.kind
}

// appendAuto inserts child under the next auto-key.
func (v *Value) appendAuto(child *Value) {
	switch v.promote(KindList) {
	case KindList:
		v.list = append(v.list, child)
		v.nextAutoKey++
	case KindMap:
		v.put(v.nextMapKey(), child)
	}
}

// nextMapKey issues the lowest unused decimal key for an auto-keyed insert
// into a value that is already a map.
func (v *Value) nextMapKey() string {
	for {
		k := itoa(v.nextAutoKey)
		v.nextAutoKey++
		if _, ok := v.index[FoldKey(k)]; !ok {
			return k
		}
	}
}

// store inserts child under name. Blank names are replaced by an auto-key.
// A list never turns into a map: named inserts into a list append.
func (v *Value) store(name string, child *Value) {
	if strings.TrimSpace(name) == "" {
		v.appendAuto(child)
		return
	}
	switch v.promote(KindMap) {
	case KindMap:
		v.put(name, child)
	case KindList:
		v.list = append(v.list, child)
		v.nextAutoKey++
	}
}

func (v *Value) put(name string, child *Value) {
	f := FoldKey(name)
	if i, ok := v.index[f]; ok {
		v.vals[i] = child
		return
	}
	if v.index == nil {
		v.index = make(map[string]int)
	}
	v.index[f] = len(v.keys)
	v.keys = append(v.keys, name)
	v.vals = append(v.vals, child)
}

func (v *Value) lookup(name string) (*Value, bool) {
	if v.kind != KindMap || name == "" {
		return nil, false
	}
	i, ok := v.index[FoldKey(name)]
	if !ok {
		return nil, false
	}
	return v.vals[i], true
}

// keyPosition returns the list position denoted by an integer key.
func keyPosition(k *Value) (int, bool) {
	if k == nil || !typeinfo.IsInteger(k.tag) {
		return 0, false
	}
	n, ok := k.TryInt64()
	if !ok || n < 0 || n > int64(^uint(0)>>1) {
		return 0, false
	}
	return int(n), true
}

func keyName(k *Value) string {
	if k == nil || k.IsNull() {
		return ""
	}
	return k.AsString()
}

func wrap(x any) *Value {
	if c, ok := x.(*Value); ok {
		if c == nil {
			return &Value{}
		}
		return c
	}
	return New(x)
}

// Index returns the child addressed by key, which may denote a list
// position or a map key. A missing child is created empty, stored under key
// and returned.
func (v *Value) Index(key *Value) *Value {
	if v.kind == KindList {
		if i, ok := keyPosition(key); ok && i < len(v.list) {
			return v.list[i]
		}
	}
	name := keyName(key)
	if c, ok := v.lookup(name); ok {
		return c
	}
	c := &Value{}
	v.store(name, c)
	return c
}

// SetIndex stores child under key, overwriting an in-range list position or
// an existing map entry.
func (v *Value) SetIndex(key *Value, child *Value) {
	if child == nil {
		child = &Value{}
	}
	if v.kind == KindList {
		if i, ok := keyPosition(key); ok && i < len(v.list) {
			v.list[i] = child
			return
		}
	}
	v.store(keyName(key), child)
}

// Get returns the child under name, creating an empty one when missing.
func (v *Value) Get(name string) *Value {
	if c, ok := v.lookup(name); ok {
		return c
	}
	c := &Value{}
	v.store(name, c)
	return c
}

// At returns the list child at position i. Out of range positions are
// treated as map keys and vivified like Get.
func (v *Value) At(i int) *Value {
	if v.kind == KindList && i >= 0 && i < len(v.list) {
		return v.list[i]
	}
	return v.Get(itoa(i))
}

// Set stores x under name and returns v for chaining. A *Value is stored by
// reference; anything else is wrapped with New.
func (v *Value) Set(name string, x any) *Value {
	v.store(name, wrap(x))
	return v
}

// SetAt overwrites the list child at position i, or stores x under the
// decimal key i when i is out of range.
func (v *Value) SetAt(i int, x any) *Value {
	v.SetIndex(New(i), wrap(x))
	return v
}

// Add appends x under an auto-key and returns v for chaining.
func (v *Value) Add(x any) *Value {
	v.appendAuto(wrap(x))
	return v
}

// ContainsKey reports whether a map entry exists under key, ignoring case.
func (v *Value) ContainsKey(key string) bool {
	_, ok := v.lookup(key)
	return ok
}
