package pypeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"

	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// LoadValues decodes a YAML mapping of attribute names to values.
// An empty document yields empty values.
func LoadValues(r io.Reader) (Values, error) {
	values := Values{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if errors.Is(err, io.EOF) {
			return Values{}, nil
		}
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}

// ValuesFromStruct converts a protobuf Struct into Values. Numbers arrive as
// float64 and are converted to integer attributes when lossless.
func ValuesFromStruct(s *structpb.Struct) Values {
	if s == nil {
		return Values{}
	}
	return Values(s.AsMap())
}

// Merge returns a copy of v overlaid with every entry of other.
func (v Values) Merge(other Values) Values {
	out := make(Values, len(v)+len(other))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range other {
		out[k] = val
	}
	return out
}

// convertValue returns v as a value of type t. Assignable values are used
// as is; same-kind and lossless numeric conversions are applied; slices and
// maps are converted element by element.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use nil as %v", t)
	}
	return convertReflect(reflect.ValueOf(v), t)
}

func convertReflect(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return convertValue(nil, t)
		}
		rv = rv.Elem()
	}

	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}

	switch {
	case isNumeric(rv.Kind()) && isNumeric(t.Kind()):
		return convertNumber(rv, t)
	case rv.Kind() == t.Kind() && (t.Kind() == reflect.String || t.Kind() == reflect.Bool):
		return rv.Convert(t), nil
	case rv.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := convertReflect(rv.Index(i), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case rv.Kind() == reflect.Map && t.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := convertReflect(iter.Key(), t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
			}
			elem, err := convertReflect(iter.Value(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
			}
			out.SetMapIndex(key, elem)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %v as %v", rv.Type(), t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// convertNumber converts between numeric kinds, refusing conversions that
// lose information.
func convertNumber(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	if isFloat(rv.Kind()) && isFloat(t.Kind()) {
		f := rv.Float()
		if t.Kind() == reflect.Float32 && !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return reflect.Value{}, fmt.Errorf("%v overflows %v", f, t)
		}
		return rv.Convert(t), nil
	}

	if isUnsigned(t.Kind()) && !isUnsigned(rv.Kind()) {
		negative := false
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			negative = rv.Float() < 0
		default:
			negative = rv.Int() < 0
		}
		if negative {
			return reflect.Value{}, fmt.Errorf("cannot use negative %v as %v", rv.Interface(), t)
		}
	}

	out := rv.Convert(t)
	if isUnsigned(rv.Kind()) && !isUnsigned(t.Kind()) && out.Kind() != reflect.Float32 && out.Kind() != reflect.Float64 && out.Int() < 0 {
		return reflect.Value{}, fmt.Errorf("cannot use %v as %v without loss", rv.Interface(), t)
	}
	if !out.Convert(rv.Type()).Equal(rv) {
		return reflect.Value{}, fmt.Errorf("cannot use %v as %v without loss", rv.Interface(), t)
	}
	return out, nil
}

// copyValue deep-copies slices, maps, arrays, pointers and the exported
// fields of structs so defaults are never shared between instances.
// Unexported struct fields are copied shallowly.
func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(copyValue(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(copyValue(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(copyValue(v.Field(i)))
			}
		}
		return out
	}
	return v
}
