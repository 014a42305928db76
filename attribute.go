package pypeline

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Struct tags read from pipeline definition fields.
const (
	// TagName holds the attribute name and options: `pipeline:"name,required"`.
	// A value of "-" skips the field.
	TagName = "pipeline"
	// TagDefault holds the default value as a YAML literal.
	TagDefault = "default"
	// TagDescription holds the attribute description.
	TagDescription = "description"
)

// AttributeSpec describes one configuration attribute of a pipeline.
type AttributeSpec struct {
	// Name is unique within a pipeline definition
	Name string
	// Type is the declared Go type. A nil type is filled from the struct
	// field carrying the same name.
	Type reflect.Type
	// Required attributes must be supplied to the constructor
	Required bool
	// Description documents the attribute
	Description string
	// Default is used when no value is supplied; only meaningful when
	// HasDefault is true
	Default any
	// HasDefault distinguishes an absent default from a zero default
	HasDefault bool
}

// AttributeOption configures an AttributeSpec.
type AttributeOption func(*AttributeSpec)

// Required marks the attribute as required.
func Required() AttributeOption {
	return func(a *AttributeSpec) {
		a.Required = true
	}
}

// Default sets the default value. A nil value leaves the default absent.
func Default(value any) AttributeOption {
	return func(a *AttributeSpec) {
		if value == nil {
			a.Default, a.HasDefault = nil, false
			return
		}
		a.Default, a.HasDefault = value, true
	}
}

// Description sets the attribute description.
func Description(text string) AttributeOption {
	return func(a *AttributeSpec) {
		a.Description = text
	}
}

// NewAttribute declares an attribute. It is handed to a definition
// with WithAttribute, where it overrides what the struct field declares.
func NewAttribute(name string, typ reflect.Type, opts ...AttributeOption) AttributeSpec {
	spec := AttributeSpec{Name: name, Type: typ}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// AttributeOf declares an attribute whose type is V.
func AttributeOf[V any](name string, opts ...AttributeOption) AttributeSpec {
	return NewAttribute(name, reflect.TypeFor[V](), opts...)
}

// Validate checks the invariants of a single attribute.
func (a AttributeSpec) Validate() error {
	if a.Name == "" {
		return errors.New("attribute name cannot be empty")
	}
	if a.Required && a.HasDefault {
		return errors.New("an attribute can't be required and have a default value at the same time")
	}
	if a.HasDefault && a.Type != nil {
		if _, err := convertValue(a.Default, a.Type); err != nil {
			return fmt.Errorf("default value: %w", err)
		}
	}
	return nil
}

// Optional reports whether the constructor can resolve the attribute
// without a supplied value.
func (a AttributeSpec) Optional() bool {
	return !a.Required
}

func (a AttributeSpec) String() string {
	typ := "<untyped>"
	if a.Type != nil {
		typ = a.Type.String()
	}
	switch {
	case a.Required:
		return fmt.Sprintf("%s %s", a.Name, typ)
	case a.HasDefault:
		return fmt.Sprintf("%s %s = %s", a.Name, typ, formatLiteral(a.Default))
	case a.Type != nil:
		return fmt.Sprintf("%s %s = %s", a.Name, typ, formatLiteral(reflect.Zero(a.Type).Interface()))
	default:
		return fmt.Sprintf("%s %s", a.Name, typ)
	}
}

func formatLiteral(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// fieldAttribute binds an attribute to the struct field holding its value.
type fieldAttribute struct {
	spec  AttributeSpec
	index []int
	// value is the default converted to the field type
	value reflect.Value
}

// reflectAttributes enumerates the attributes declared by the fields of t in
// declaration order. Embedded structs are flattened in place.
func reflectAttributes(t reflect.Type) ([]fieldAttribute, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("pipeline type %v must be a struct", t)
	}

	var out []fieldAttribute
	if err := collectFields(t, nil, &out); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(out))
	for _, f := range out {
		if seen[f.spec.Name] {
			return nil, &DefinitionError{Attribute: f.spec.Name, Reason: "declared more than once"}
		}
		seen[f.spec.Name] = true
	}
	return out, nil
}

func collectFields(t reflect.Type, prefix []int, out *[]fieldAttribute) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), prefix...), i)

		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}

		if sf.Anonymous && !hasTag {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct {
				if !sf.IsExported() || !declaresAttributes(ft.Elem(), make(map[reflect.Type]bool)) {
					continue
				}
				return &DefinitionError{Attribute: sf.Name, Reason: "embedded struct pointers are not supported"}
			}
			if ft.Kind() == reflect.Struct {
				if err := collectFields(ft, index, out); err != nil {
					return err
				}
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		f, err := fieldSpec(sf, tag)
		if err != nil {
			return err
		}
		f.index = index
		*out = append(*out, f)
	}
	return nil
}

// declaresAttributes reports whether embedding t would add attributes.
func declaresAttributes(t reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[t] {
		return false
	}
	seen[t] = true

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		if sf.Anonymous && !hasTag {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				if !sf.IsExported() {
					continue
				}
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if declaresAttributes(ft, seen) {
					return true
				}
				continue
			}
		}
		if sf.IsExported() {
			return true
		}
	}
	return false
}

func fieldSpec(sf reflect.StructField, tag string) (fieldAttribute, error) {
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}

	spec := AttributeSpec{
		Name:        name,
		Type:        sf.Type,
		Description: sf.Tag.Get(TagDescription),
	}

	for _, opt := range strings.Split(opts, ",") {
		switch strings.TrimSpace(opt) {
		case "":
		case "required":
			spec.Required = true
		default:
			return fieldAttribute{}, &DefinitionError{Attribute: name, Reason: fmt.Sprintf("unknown tag option %q", opt)}
		}
	}

	if literal, ok := sf.Tag.Lookup(TagDefault); ok {
		ptr := reflect.New(sf.Type)
		if err := yaml.Unmarshal([]byte(literal), ptr.Interface()); err != nil {
			return fieldAttribute{}, &DefinitionError{Attribute: name, Reason: fmt.Sprintf("invalid default %q: %v", literal, err)}
		}
		spec.Default = ptr.Elem().Interface()
		spec.HasDefault = true
	}

	return fieldAttribute{spec: spec}, nil
}
