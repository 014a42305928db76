package pypeline

import (
	"context"
	"slices"

	"github.com/sasha-s/go-deadlock"

	"github.com/julienvaslet/pypeline/store"
)

// RunInfo is the run record kept in the instance store.
type RunInfo struct {
	ID       string   `json:"id"`
	Pipeline string   `json:"pipeline"`
	Stages   []string `json:"stages"`
}

// StageStatus pairs a stage with its execution status.
type StageStatus struct {
	StageInfo
	Status string `json:"status"`
}

// Instance is one runnable realization of a pipeline definition: resolved
// attribute values plus stage actions bound to them.
type Instance[T any] struct {
	// ID uniquely identifies this instance
	ID string
	// Config holds the resolved attribute values. Stage actions receive it
	// as their receiver.
	Config *T

	definition *Definition[T]
	stages     []boundStage
	store      *store.KVStore
	logger     Logger
	middleware []StageMiddleware

	mu      deadlock.Mutex
	state   State
	started bool
}

// Definition returns the definition the instance was built from.
func (i *Instance[T]) Definition() *Definition[T] {
	return i.definition
}

// Store returns the store holding resolved attributes and run statuses.
func (i *Instance[T]) Store() *store.KVStore {
	return i.store
}

// Use adds middleware applied after the definition middleware.
func (i *Instance[T]) Use(middleware ...StageMiddleware) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.middleware = append(i.middleware, middleware...)
}

// State returns the lifecycle state.
func (i *Instance[T]) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Stages returns the bound stages in run order.
func (i *Instance[T]) Stages() []StageInfo {
	out := make([]StageInfo, len(i.stages))
	for idx, s := range i.stages {
		out[idx] = s.info
	}
	return out
}

// Statuses returns every stage with its current status, in run order.
func (i *Instance[T]) Statuses() []StageStatus {
	out := make([]StageStatus, len(i.stages))
	for idx, s := range i.stages {
		status, err := i.store.GetProperty(stageKey(s.info), PropStatus)
		if err != nil {
			status = StatusPending
		}
		out[idx] = StageStatus{StageInfo: s.info, Status: status.(string)}
	}
	return out
}

// Values returns the resolved attribute values by name.
func (i *Instance[T]) Values() Values {
	return Values(i.store.Snapshot(PrefixAttribute))
}

// Value returns the resolved value of one attribute as V.
func Value[V any, T any](i *Instance[T], name string) (V, error) {
	return store.Get[V](i.store, PrefixAttribute+name)
}

// Start runs every stage in order, strictly one after the other. Each stage
// reports "[<name>] Running..." before its action and "[<name>] Executed."
// after it. The first failing stage stops the run and its error is returned
// unchanged; later stages never run.
//
// Start runs an instance once; further calls return ErrAlreadyStarted.
// ctx is handed to every stage action.
func (i *Instance[T]) Start(ctx context.Context) error {
	i.mu.Lock()
	if i.started {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}
	i.started = true
	middleware := slices.Clone(i.middleware)
	i.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	name := i.definition.Name()
	pipelineKey := PrefixPipeline + i.ID
	i.logger.Debug("Starting pipeline: %s (%s)", name, i.ID)
	i.store.SetProperty(pipelineKey, PropStatus, StatusRunning)

	for _, stage := range i.stages {
		key := stageKey(stage.info)
		i.store.SetProperty(key, PropStatus, StatusRunning)

		handler := chain(runStage(stage), middleware)
		if err := handler(ctx, stage.info, i.logger); err != nil {
			i.store.SetProperty(key, PropStatus, StatusFailed)
			i.store.SetProperty(key, PropError, err.Error())
			i.store.SetProperty(pipelineKey, PropStatus, StatusFailed)
			i.setState(StateFailed)
			return err
		}

		i.store.SetProperty(key, PropStatus, StatusCompleted)
	}

	i.logger.Debug("Pipeline completed successfully: %s", name)
	i.store.SetProperty(pipelineKey, PropStatus, StatusCompleted)
	i.setState(StateCompleted)
	return nil
}

// runStage is the innermost handler: the two stage events around the bound
// action.
func runStage(stage boundStage) StageRunnerFunc {
	return func(ctx context.Context, info StageInfo, logger Logger) error {
		logger.Info("[%s] Running...", info.Name)
		if err := stage.run(ctx); err != nil {
			return err
		}
		logger.Info("[%s] Executed.", info.Name)
		return nil
	}
}

func (i *Instance[T]) setState(state State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = state
}
