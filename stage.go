package pypeline

import (
	"cmp"
	"context"
	"slices"
)

// Action is the work a stage performs against one pipeline instance.
// Its shape matches a method expression, so a method
//
//	func (r *Release) Sync(ctx context.Context) error
//
// is declared as a stage with (*Release).Sync.
type Action[T any] func(p *T, ctx context.Context) error

// StageSpec tags an action with a display name and a declaration order.
// Two specs are equal when their orders are equal; names may collide.
type StageSpec[T any] struct {
	// Name is the display label used in stage events
	Name string
	// Order is drawn from a Sequence when the stage is declared
	Order int64
	// Action is invoked unchanged when the stage runs
	Action Action[T]
}

// NewStage declares a stage, drawing its order from seq exactly once.
func NewStage[T any](seq Sequence, name string, action Action[T]) StageSpec[T] {
	return StageSpec[T]{
		Name:   name,
		Order:  seq.Next(),
		Action: action,
	}
}

// Call invokes the tagged action with p bound as its receiver.
func (s StageSpec[T]) Call(p *T, ctx context.Context) error {
	return s.Action(p, ctx)
}

// Equal reports whether both stages carry the same order.
func (s StageSpec[T]) Equal(other StageSpec[T]) bool {
	return s.Order == other.Order
}

// Less reports whether s was declared before other.
func (s StageSpec[T]) Less(other StageSpec[T]) bool {
	return s.Order < other.Order
}

// bind returns a runner for the stage acting on p.
func (s StageSpec[T]) bind(p *T) func(context.Context) error {
	return func(ctx context.Context) error {
		return s.Action(p, ctx)
	}
}

// sortStages orders stages ascending by Order. Equal orders keep their
// registration order.
func sortStages[T any](stages []StageSpec[T]) {
	slices.SortStableFunc(stages, func(a, b StageSpec[T]) int {
		return cmp.Compare(a.Order, b.Order)
	})
}

// StageInfo holds serializable stage information for events, middleware and
// the instance store.
type StageInfo struct {
	// Pipeline is the name of the pipeline definition
	Pipeline string `json:"pipeline"`
	// Name is the stage display label
	Name string `json:"name"`
	// Order is the declaration order
	Order int64 `json:"order"`
	// Index is the zero-based position in the run
	Index int `json:"index"`
	// Total is the number of stages in the run
	Total int `json:"total"`
}

// boundStage is a stage bound to one instance.
type boundStage struct {
	info StageInfo
	run  func(context.Context) error
}
