package pypeline

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/julienvaslet/pypeline/store"
)

// Option configures a pipeline definition.
type Option func(*options)

type options struct {
	logger     Logger
	middleware []StageMiddleware
	attributes []AttributeSpec
}

// WithLogger sets the logger instances report stage events to.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMiddleware adds stage middleware applied to every instance.
// Middleware is executed in the order it is added.
func WithMiddleware(middleware ...StageMiddleware) Option {
	return func(o *options) {
		o.middleware = append(o.middleware, middleware...)
	}
}

// WithAttribute overrides the attribute a struct field declares. The
// name must match a field; an attribute without one has no declared type and
// fails the build.
func WithAttribute(specs ...AttributeSpec) Option {
	return func(o *options) {
		o.attributes = append(o.attributes, specs...)
	}
}

// Builder assembles a pipeline definition for the configuration type T.
type Builder[T any] struct {
	registry *Registry
	name     string
	opts     options
	stages   []StageSpec[T]
	errs     []error
}

// Define starts a pipeline definition named name whose attributes are the
// exported fields of T. An empty name uses the name of T; an unnamed T then
// needs an explicit name.
func Define[T any](registry *Registry, name string, opts ...Option) *Builder[T] {
	if name == "" {
		name = reflect.TypeFor[T]().Name()
	}

	b := &Builder[T]{
		registry: registry,
		name:     name,
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	if registry == nil {
		b.errs = append(b.errs, errors.New("registry cannot be nil"))
	}
	if name == "" {
		b.errs = append(b.errs, &DefinitionError{
			Pipeline: reflect.TypeFor[T]().String(),
			Reason:   "pipeline name cannot be empty for an unnamed type",
		})
	}
	return b
}

// Stage declares a stage, drawing its order from the registry sequence.
func (b *Builder[T]) Stage(name string, action Action[T]) *Builder[T] {
	if b.registry == nil {
		return b
	}
	b.stages = append(b.stages, NewStage(b.registry.Sequence(), name, action))
	return b
}

// Stages adds stages declared beforehand with NewStage.
func (b *Builder[T]) Stages(specs ...StageSpec[T]) *Builder[T] {
	b.stages = append(b.stages, specs...)
	return b
}

// Build processes the definition and registers it. Building a name already
// registered for T returns the registered definition when both declare the
// same attributes and stage names; any other reuse of the name is a
// DefinitionError.
func (b *Builder[T]) Build() (*Definition[T], error) {
	if len(b.errs) > 0 {
		return nil, definitionError(b.name, b.errs[0])
	}

	typ := reflect.TypeFor[T]()
	if existing, ok := b.registry.registered(b.name); ok && existing.typ != typ {
		return nil, &DefinitionError{
			Pipeline: b.name,
			Reason:   fmt.Sprintf("name already registered for %v", existing.typ),
		}
	}

	fields, err := b.registry.fieldsOf(typ)
	if err != nil {
		return nil, definitionError(b.name, err)
	}

	fields, err = b.mergeAttributes(fields)
	if err != nil {
		return nil, definitionError(b.name, err)
	}

	if err := checkAttributeOrder(fields); err != nil {
		return nil, definitionError(b.name, err)
	}

	stages := slices.Clone(b.stages)
	for _, s := range stages {
		if s.Name == "" {
			return nil, definitionError(b.name, errors.New("stage name cannot be empty"))
		}
		if s.Action == nil {
			return nil, definitionError(b.name, &DefinitionError{Stage: s.Name, Reason: "stage has no action"})
		}
	}
	sortStages(stages)

	specs := make([]AttributeSpec, len(fields))
	for i, f := range fields {
		specs[i] = f.spec
	}
	infos := make([]StageInfo, len(stages))
	for i, s := range stages {
		infos[i] = StageInfo{Pipeline: b.name, Name: s.Name, Order: s.Order, Index: i, Total: len(stages)}
	}

	logger := b.opts.logger
	if logger == nil {
		logger = NewDefaultLogger()
	}

	def := &Definition[T]{
		schema:     newSchema(b.name, typ, specs, infos),
		fields:     fields,
		stages:     stages,
		logger:     logger,
		middleware: slices.Clone(b.opts.middleware),
	}

	registered, created := b.registry.register(b.name, typ, def)
	if created {
		return def, nil
	}

	existing, ok := registered.definition.(*Definition[T])
	if !ok {
		return nil, &DefinitionError{
			Pipeline: b.name,
			Reason:   fmt.Sprintf("name already registered for %v", registered.typ),
		}
	}
	if !existing.schema.matches(def.schema) {
		return nil, &DefinitionError{
			Pipeline: b.name,
			Reason:   "name already registered with different attributes or stages",
		}
	}
	return existing, nil
}

// MustBuild is like Build but panics on error. It suits package-level
// definitions.
func (b *Builder[T]) MustBuild() *Definition[T] {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// mergeAttributes applies explicit specs to the reflected fields and
// validates every attribute.
func (b *Builder[T]) mergeAttributes(fields []fieldAttribute) ([]fieldAttribute, error) {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[f.spec.Name] = i
	}

	explicit := make(map[string]bool, len(b.opts.attributes))
	for _, spec := range b.opts.attributes {
		if explicit[spec.Name] {
			return nil, &DefinitionError{Attribute: spec.Name, Reason: "declared more than once"}
		}
		explicit[spec.Name] = true

		i, ok := byName[spec.Name]
		if !ok {
			return nil, &DefinitionError{Attribute: spec.Name, Reason: "has been defined but it's missing a type"}
		}

		fieldType := fields[i].spec.Type
		if spec.Type != nil && spec.Type != fieldType {
			return nil, &DefinitionError{
				Attribute: spec.Name,
				Reason:    fmt.Sprintf("declared as %v but the field is %v", spec.Type, fieldType),
			}
		}
		spec.Type = fieldType
		if spec.Description == "" {
			spec.Description = fields[i].spec.Description
		}
		fields[i].spec = spec
	}

	for i := range fields {
		f := &fields[i]
		if err := f.spec.Validate(); err != nil {
			return nil, &DefinitionError{Attribute: f.spec.Name, Reason: err.Error()}
		}
		if f.spec.HasDefault {
			value, err := convertValue(f.spec.Default, f.spec.Type)
			if err != nil {
				return nil, &DefinitionError{Attribute: f.spec.Name, Reason: err.Error()}
			}
			f.value = value
			f.spec.Default = copyValue(value).Interface()
		}
	}

	return fields, nil
}

// checkAttributeOrder rejects a required attribute declared after an
// optional one, keeping the constructor signature readable as
// (required..., optional = default...).
func checkAttributeOrder(fields []fieldAttribute) error {
	optional := ""
	for _, f := range fields {
		if f.spec.Optional() {
			if optional == "" {
				optional = f.spec.Name
			}
			continue
		}
		if optional != "" {
			return &DefinitionError{
				Attribute: f.spec.Name,
				Reason:    fmt.Sprintf("required attribute follows optional attribute %s", optional),
			}
		}
	}
	return nil
}

func definitionError(pipeline string, err error) error {
	var defErr *DefinitionError
	if errors.As(err, &defErr) {
		withName := *defErr
		if pipeline != "" {
			withName.Pipeline = pipeline
		}
		return &withName
	}
	return &DefinitionError{Pipeline: pipeline, Reason: err.Error()}
}

// Definition is a processed pipeline definition. It is the constructor for
// instances and is safe for concurrent use.
type Definition[T any] struct {
	schema     *Schema
	fields     []fieldAttribute
	stages     []StageSpec[T]
	logger     Logger
	middleware []StageMiddleware
}

// Name returns the pipeline name.
func (d *Definition[T]) Name() string {
	return d.schema.Name()
}

// Schema returns the processed schema.
func (d *Definition[T]) Schema() *Schema {
	return d.schema
}

// New constructs an instance. For each attribute in declaration order the
// supplied value is used, else the default, else the zero value; a required
// attribute without a value fails with a MissingRequiredAttributeError.
func (d *Definition[T]) New(values Values) (*Instance[T], error) {
	name := d.schema.Name()

	unknown := make([]string, 0)
	for key := range values {
		if _, ok := d.schema.index[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownAttributeError{Pipeline: name, Attribute: unknown[0]}
	}

	config := new(T)
	target := reflect.ValueOf(config).Elem()
	kv := store.NewKVStore()

	for _, f := range d.fields {
		field := target.FieldByIndex(f.index)

		var source string
		if v, ok := values[f.spec.Name]; ok {
			converted, err := convertValue(v, f.spec.Type)
			if err != nil {
				return nil, &AttributeTypeError{
					Pipeline:  name,
					Attribute: f.spec.Name,
					Want:      f.spec.Type,
					Got:       reflect.TypeOf(v),
					Err:       err,
				}
			}
			field.Set(converted)
			source = SourceSupplied
		} else if f.spec.HasDefault {
			field.Set(copyValue(f.value))
			source = SourceDefault
		} else if f.spec.Required {
			return nil, &MissingRequiredAttributeError{Pipeline: name, Attribute: f.spec.Name}
		} else {
			source = SourceZero
		}

		meta := store.NewMetadata()
		meta.AddTag(TagAttribute)
		if f.spec.Required {
			meta.AddTag(TagRequired)
		}
		meta.Description = f.spec.Description
		meta.SetProperty(PropType, f.spec.Type.String())
		meta.SetProperty(PropSource, source)
		kv.PutWithMetadata(PrefixAttribute+f.spec.Name, field.Interface(), meta)
	}

	inst := &Instance[T]{
		ID:         uuid.NewString(),
		Config:     config,
		definition: d,
		store:      kv,
		logger:     d.logger,
		middleware: slices.Clone(d.middleware),
		state:      StateIdle,
	}

	stageNames := make([]string, len(d.stages))
	infos := d.schema.Stages()
	for i, s := range d.stages {
		info := infos[i]
		inst.stages = append(inst.stages, boundStage{info: info, run: s.bind(config)})
		stageNames[i] = s.Name

		meta := store.NewMetadata()
		meta.AddTag(TagStage)
		meta.SetProperty(PropOrder, s.Order)
		meta.SetProperty(PropStatus, StatusPending)
		kv.PutWithMetadata(stageKey(info), info, meta)
	}

	meta := store.NewMetadata()
	meta.Description = "pipeline " + name
	meta.SetProperty(PropStatus, StatusPending)
	kv.PutWithMetadata(PrefixPipeline+inst.ID, RunInfo{
		ID:       inst.ID,
		Pipeline: name,
		Stages:   stageNames,
	}, meta)

	return inst, nil
}

// MustNew is like New but panics on error.
func (d *Definition[T]) MustNew(values Values) *Instance[T] {
	inst, err := d.New(values)
	if err != nil {
		panic(err)
	}
	return inst
}

func stageKey(info StageInfo) string {
	return fmt.Sprintf("%s%d:%s", PrefixStage, info.Index, strings.ToLower(info.Name))
}
