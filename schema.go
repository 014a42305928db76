package pypeline

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
)

// Schema is the ordered description of a pipeline definition: its
// attributes in declaration order and its stages in run order. It is built
// once per definition and shared read-only by every instance.
type Schema struct {
	name       string
	typ        reflect.Type
	attributes []AttributeSpec
	index      map[string]int
	stages     []StageInfo
}

func newSchema(name string, typ reflect.Type, attributes []AttributeSpec, stages []StageInfo) *Schema {
	index := make(map[string]int, len(attributes))
	for i, a := range attributes {
		index[a.Name] = i
	}
	return &Schema{
		name:       name,
		typ:        typ,
		attributes: attributes,
		index:      index,
		stages:     stages,
	}
}

// Name returns the pipeline name.
func (s *Schema) Name() string {
	return s.name
}

// Type returns the Go type holding the pipeline configuration.
func (s *Schema) Type() reflect.Type {
	return s.typ
}

// Attributes returns the attributes in declaration order.
func (s *Schema) Attributes() []AttributeSpec {
	return slices.Clone(s.attributes)
}

// Attribute returns the attribute with the given name.
func (s *Schema) Attribute(name string) (AttributeSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return AttributeSpec{}, false
	}
	return s.attributes[i], true
}

// Stages returns the stages in run order.
func (s *Schema) Stages() []StageInfo {
	return slices.Clone(s.stages)
}

// Signature renders the constructor signature, e.g.
// Release(changelist int, value string = "Default.txt").
func (s *Schema) Signature() string {
	params := make([]string, len(s.attributes))
	for i, a := range s.attributes {
		params[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", s.name, strings.Join(params, ", "))
}

// matches reports whether other declares the same attributes and the same
// stage names in the same run order. Stage orders are not compared since
// every build draws new ones.
func (s *Schema) matches(other *Schema) bool {
	if s.typ != other.typ || len(s.attributes) != len(other.attributes) || len(s.stages) != len(other.stages) {
		return false
	}
	for i, a := range s.attributes {
		o := other.attributes[i]
		if a.Name != o.Name || a.Type != o.Type || a.Required != o.Required ||
			a.Description != o.Description || a.HasDefault != o.HasDefault ||
			!reflect.DeepEqual(a.Default, o.Default) {
			return false
		}
	}
	for i, st := range s.stages {
		if st.Name != other.stages[i].Name {
			return false
		}
	}
	return true
}

// JSONSchema documents the attributes as a JSON Schema object whose
// properties keep declaration order.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}

	root := &jsonschema.Schema{
		Version:              jsonschema.Version,
		Title:                s.name,
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}

	for _, a := range s.attributes {
		prop := reflector.ReflectFromType(a.Type)
		prop.Version = ""
		prop.Definitions = nil
		prop.Description = a.Description
		if a.HasDefault {
			prop.Default = a.Default
		}
		root.Properties.Set(a.Name, prop)

		if a.Required {
			root.Required = append(root.Required, a.Name)
		}
	}

	return root
}
