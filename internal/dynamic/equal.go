package dynamic

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Equal reports whether a and b have the same shape and equivalent
// payloads. Map keys compare case-insensitively and in order, numbers compare
// by value across widths, and times compare as instants.
func Equal(a, b *Value) bool {
	return equal(a, b, map[[2]*Value]bool{})
}

func equal(a, b *Value, seen map[[2]*Value]bool) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	pair := [2]*Value{a, b}
	if seen[pair] {
		return true
	}
	seen[pair] = true

	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !equal(a.list[i], b.list[i], seen) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i := range a.keys {
			if FoldKey(a.keys[i]) != FoldKey(b.keys[i]) || !equal(a.vals[i], b.vals[i], seen) {
				return false
			}
		}
		return true
	}
	return scalarEqual(a, b)
}

func scalarEqual(a, b *Value) bool {
	switch {
	case a.IsNumber() && b.IsNumber():
		da, _ := a.numeric()
		db, _ := b.numeric()
		return da.Equal(db)
	case a.IsDateTime() && b.IsDateTime():
		return a.payload.(time.Time).Equal(b.payload.(time.Time))
	case a.IsString() && b.IsString(), a.IsByteArray() && b.IsByteArray():
		return a.AsString() == b.AsString()
	case a.tag != b.tag:
		return false
	}
	return reflect.DeepEqual(a.payload, b.payload)
}

// debugString renders a container for diagnostics. The output is not JSON.
func (v *Value) debugString() string {
	var sb strings.Builder
	v.writeDebug(&sb, map[*Value]bool{})
	return sb.String()
}

func (v *Value) writeDebug(sb *strings.Builder, active map[*Value]bool) {
	if v.Len() == 0 {
		if v.IsNull() {
			sb.WriteString("<null>")
			return
		}
		sb.WriteString(v.AsString())
		return
	}
	if active[v] {
		sb.WriteString("<cycle>")
		return
	}
	active[v] = true
	defer delete(active, v)

	if v.kind == KindList {
		sb.WriteString("[")
		for i, c := range v.list {
			if i > 0 {
				sb.WriteString(" ")
			}
			c.writeDebug(sb, active)
		}
		sb.WriteString("]")
		return
	}
	sb.WriteString("map[")
	for i, k := range v.keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(sb, "%s:", k)
		v.vals[i].writeDebug(sb, active)
	}
	sb.WriteString("]")
}
