package pypeline

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrDefinition matches every *DefinitionError.
	ErrDefinition = errors.New("invalid pipeline definition")
	// ErrMissingRequiredAttribute matches every *MissingRequiredAttributeError.
	ErrMissingRequiredAttribute = errors.New("missing required attribute")
	// ErrUnknownAttribute matches every *UnknownAttributeError.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAttributeType matches every *AttributeTypeError.
	ErrAttributeType = errors.New("attribute type mismatch")
	// ErrAlreadyStarted is returned when Start is called on an instance
	// that has already run.
	ErrAlreadyStarted = errors.New("pipeline instance already started")
)

// DefinitionError reports a pipeline definition that cannot be processed.
// It is returned by Build before any instance exists.
type DefinitionError struct {
	Pipeline  string
	Attribute string
	Stage     string
	Reason    string
}

func (e *DefinitionError) Error() string {
	switch {
	case e.Attribute != "":
		return fmt.Sprintf("pipeline %s: attribute %s: %s", e.Pipeline, e.Attribute, e.Reason)
	case e.Stage != "":
		return fmt.Sprintf("pipeline %s: stage %s: %s", e.Pipeline, e.Stage, e.Reason)
	default:
		return fmt.Sprintf("pipeline %s: %s", e.Pipeline, e.Reason)
	}
}

// Is makes errors.Is(err, ErrDefinition) hold.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrDefinition
}

// MissingRequiredAttributeError reports a required attribute that received
// no value at construction time.
type MissingRequiredAttributeError struct {
	Pipeline  string
	Attribute string
}

func (e *MissingRequiredAttributeError) Error() string {
	return fmt.Sprintf("pipeline %s: missing required attribute %s", e.Pipeline, e.Attribute)
}

// Is makes errors.Is(err, ErrMissingRequiredAttribute) hold.
func (e *MissingRequiredAttributeError) Is(target error) bool {
	return target == ErrMissingRequiredAttribute
}

// UnknownAttributeError reports a configuration value whose name matches no
// declared attribute.
type UnknownAttributeError struct {
	Pipeline  string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("pipeline %s: unknown attribute %s", e.Pipeline, e.Attribute)
}

// Is makes errors.Is(err, ErrUnknownAttribute) hold.
func (e *UnknownAttributeError) Is(target error) bool {
	return target == ErrUnknownAttribute
}

// AttributeTypeError reports a configuration value that cannot be assigned
// to the attribute's declared type.
type AttributeTypeError struct {
	Pipeline  string
	Attribute string
	Want      reflect.Type
	Got       reflect.Type
	// Err is the conversion failure, if any
	Err error
}

func (e *AttributeTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline %s: attribute %s: %v", e.Pipeline, e.Attribute, e.Err)
	}
	return fmt.Sprintf("pipeline %s: attribute %s: cannot use %v as %v", e.Pipeline, e.Attribute, e.Got, e.Want)
}

// Unwrap returns the conversion failure.
func (e *AttributeTypeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrAttributeType) hold.
func (e *AttributeTypeError) Is(target error) bool {
	return target == ErrAttributeType
}
