package pypeline

// Values carries configuration values by attribute name. It is the keyword
// argument list handed to a pipeline constructor.
type Values map[string]any

// State is the lifecycle state of a pipeline instance.
type State int

const (
	// StateIdle means the instance is constructed but not started.
	StateIdle State = iota
	// StateCompleted means every stage ran successfully.
	StateCompleted
	// StateFailed means a stage returned an error and the run stopped.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store key prefixes for organizing instance entries in the store
const (
	// PrefixPipeline is used for the instance run record
	PrefixPipeline = "pipeline:"

	// PrefixAttribute is used for resolved attribute values
	PrefixAttribute = "attribute:"

	// PrefixStage is used for stage run records
	PrefixStage = "stage:"
)

// Tags applied to instance store entries
const (
	// TagAttribute identifies resolved attribute values
	TagAttribute = "attribute"

	// TagStage identifies stage run records
	TagStage = "stage"

	// TagRequired identifies attributes declared as required
	TagRequired = "required"
)

// Common property keys used in metadata
const (
	// PropOrder tracks the declaration order of a stage
	PropOrder = "order"

	// PropStatus tracks the current status
	PropStatus = "status"

	// PropType records the declared Go type of an attribute
	PropType = "type"

	// PropSource records where an attribute value came from
	PropSource = "source"

	// PropError records the error message of a failed stage
	PropError = "error"
)

// Status values for pipeline runs and stages
const (
	// StatusPending means not yet started
	StatusPending = "pending"

	// StatusRunning means currently in progress
	StatusRunning = "running"

	// StatusCompleted means successfully finished
	StatusCompleted = "completed"

	// StatusFailed means execution failed
	StatusFailed = "failed"
)

// Attribute value sources
const (
	// SourceSupplied means the value was passed to the constructor
	SourceSupplied = "supplied"

	// SourceDefault means the declared default was used
	SourceDefault = "default"

	// SourceZero means neither a value nor a default existed
	SourceZero = "zero"
)
