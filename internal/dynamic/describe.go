package dynamic

import (
	"reflect"
	"strings"
)

// Field is one named member of a described object.
type Field struct {
	Name  string
	Value any
}

// Describer is implemented by types that expose their own field set for
// serialization instead of relying on reflection.
type Describer interface {
	Describe() []Field
}

// Fields lists the members of a reference payload. Describers report their
// own fields. Other structs report their exported fields in declaration
// order, honouring a json:"-" tag. Errors additionally report their message
// under "Message". ok is false when obj has no field set at all.
func Fields(obj any) (fields []Field, ok bool) {
	if d, isDescriber := obj.(Describer); isDescriber {
		return d.Describe(), true
	}

	if err, isErr := obj.(error); isErr {
		fields = append(fields, Field{Name: "Message", Value: err.Error()})
		ok = true
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return fields, ok
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fields, ok
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous && sf.Type.Kind() == reflect.Interface {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag == "-" {
			continue
		}
		if ok && sf.Name == "Message" {
			fields[0].Value = rv.Field(i).Interface()
			continue
		}
		fields = append(fields, Field{Name: sf.Name, Value: rv.Field(i).Interface()})
	}
	return fields, true
}
