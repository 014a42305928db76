package pypeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// TestLogger records Info messages and forwards everything to t.Logf.
type TestLogger struct {
	t *testing.T

	mu    sync.Mutex
	lines []string
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

func (l *TestLogger) Debug(format string, args ...interface{}) {
	l.t.Logf("[DEBUG] "+format, args...)
}

func (l *TestLogger) Info(format string, args ...interface{}) {
	l.t.Logf("[INFO] "+format, args...)
	l.record(fmt.Sprintf(format, args...))
}

func (l *TestLogger) Warn(format string, args ...interface{}) {
	l.t.Logf("[WARN] "+format, args...)
}

func (l *TestLogger) Error(format string, args ...interface{}) {
	l.t.Logf("[ERROR] "+format, args...)
}

func (l *TestLogger) record(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

// Lines returns the recorded Info messages and action output in order.
func (l *TestLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type journalKey struct{}

// withJournal lets stage actions write into the same record as stage events.
func withJournal(ctx context.Context, l *TestLogger) context.Context {
	return context.WithValue(ctx, journalKey{}, l)
}

func journal(ctx context.Context, format string, args ...interface{}) {
	if l, ok := ctx.Value(journalKey{}).(*TestLogger); ok {
		l.record(fmt.Sprintf(format, args...))
	}
}

// Release is the three stage pipeline used throughout the tests.
type Release struct {
	Changelist int    `pipeline:"changelist,required" description:"Changelist to sync to"`
	Value      string `pipeline:"value" default:"Default.txt" description:"File to build"`
}

func (r *Release) Sync(ctx context.Context) error {
	journal(ctx, "Sync version %d", r.Changelist)
	return nil
}

func (r *Release) Build(ctx context.Context) error {
	journal(ctx, "Build %s", r.Value)
	return nil
}

func (r *Release) Submit(ctx context.Context) error {
	journal(ctx, "Submit!")
	return nil
}

func defineRelease(t *testing.T, registry *Registry, opts ...Option) *Definition[Release] {
	t.Helper()
	def, err := Define[Release](registry, "Release", opts...).
		Stage("Sync", (*Release).Sync).
		Stage("Build", (*Release).Build).
		Stage("Submit", (*Release).Submit).
		Build()
	if err != nil {
		t.Fatalf("define release: %v", err)
	}
	return def
}
