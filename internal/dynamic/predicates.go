package dynamic

import "github.com/mcncl/dynval/internal/typeinfo"

// IsNull reports whether v has neither a payload nor children. Empty lists
// and maps are therefore null.
func (v *Value) IsNull() bool {
	return v == nil || (v.payload == nil && v.Len() == 0)
}

// IsSimpleValue reports whether v has not been fixed as a list or map.
func (v *Value) IsSimpleValue() bool { return v.kind == KindUndetermined }

func (v *Value) IsList() bool { return v.kind == KindList }

// IsMap reports whether v has been fixed as a map.
func (v *Value) IsMap() bool { return v.kind == KindMap }

func (v *Value) IsNumber() bool       { return typeinfo.IsNumber(v.tag) }
func (v *Value) IsString() bool       { return typeinfo.IsString(v.tag) }
func (v *Value) IsBoolean() bool      { return typeinfo.IsBool(v.tag) }
func (v *Value) IsDateTime() bool     { return typeinfo.IsDateTime(v.tag) }
func (v *Value) IsInt() bool          { return typeinfo.IsInt(v.tag) }
func (v *Value) IsByte() bool         { return typeinfo.IsByte(v.tag) }
func (v *Value) IsByteArray() bool    { return typeinfo.IsByteArray(v.tag) }
func (v *Value) IsChar() bool         { return typeinfo.IsChar(v.tag) }
func (v *Value) IsURI() bool          { return typeinfo.IsURI(v.tag) }
func (v *Value) IsGUID() bool         { return typeinfo.IsGUID(v.tag) }
func (v *Value) IsType() bool         { return typeinfo.IsType(v.tag) }
func (v *Value) IsRefType() bool      { return typeinfo.IsRefType(v.tag) }
func (v *Value) IsEnum() bool         { return typeinfo.IsEnum(v.tag) }
func (v *Value) IsSecureString() bool { return typeinfo.IsSecureString(v.tag) }
func (v *Value) IsDBParameter() bool  { return typeinfo.IsDBParameter(v.tag) }

// IsDBParameterArray reports whether v is a list whose children are all
// statement parameters.
func (v *Value) IsDBParameterArray() bool {
	if !v.IsList() {
		return false
	}
	for _, c := range v.list {
		if !c.IsDBParameter() {
			return false
		}
	}
	return true
}
