// Command pypeline runs the release pipeline: Sync, Build and Submit.
//
// Usage:
//
//	pypeline [values.yaml]
//
// Values read from the optional YAML file override the built-in ones.
// Stage metrics go to the default Prometheus registerer and stage spans to
// the global OpenTelemetry tracer provider. Set PYPELINE_DEBUG for stage
// timings.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/julienvaslet/pypeline"
	"github.com/julienvaslet/pypeline/metrics"
	"github.com/julienvaslet/pypeline/telemetry"
)

// Release is the configuration of one release run.
type Release struct {
	Changelist int    `pipeline:"changelist,required" description:"Changelist to sync to"`
	Value      string `pipeline:"value" default:"Default.txt" description:"File to build"`
}

var out io.Writer = os.Stdout

// Sync syncs the workspace to the configured changelist.
func (r *Release) Sync(ctx context.Context) error {
	fmt.Fprintf(out, "Sync version %d\n", r.Changelist)
	return nil
}

// Build builds the configured file.
func (r *Release) Build(ctx context.Context) error {
	fmt.Fprintf(out, "Build %s\n", r.Value)
	return nil
}

// Submit submits the build.
func (r *Release) Submit(ctx context.Context) error {
	fmt.Fprintln(out, "Submit!")
	return nil
}

func define(registry *pypeline.Registry, logger pypeline.Logger, middleware ...pypeline.StageMiddleware) (*pypeline.Definition[Release], error) {
	return pypeline.Define[Release](registry, "Release",
		pypeline.WithLogger(logger),
		pypeline.WithMiddleware(pypeline.LoggingMiddleware()),
		pypeline.WithMiddleware(middleware...),
	).
		Stage("Sync", (*Release).Sync).
		Stage("Build", (*Release).Build).
		Stage("Submit", (*Release).Submit).
		Build()
}

func run(ctx context.Context, args []string) error {
	logger := pypeline.NewConsoleLogger(out, os.Getenv("PYPELINE_DEBUG") != "")

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}
	instruments, err := telemetry.NewInstruments(nil)
	if err != nil {
		return err
	}

	def, err := define(pypeline.NewRegistry(), logger,
		telemetry.Tracing(nil),
		instruments.Middleware(),
		collector.Middleware(),
	)
	if err != nil {
		return err
	}
	logger.Debug("Pipeline signature: %s", def.Schema().Signature())

	values := pypeline.Values{
		"changelist": 50,
		"value":      "Hello.txt",
	}
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		overrides, err := pypeline.LoadValues(f)
		if err != nil {
			return fmt.Errorf("load %s: %w", args[0], err)
		}
		values = values.Merge(overrides)
	}

	inst, err := def.New(values)
	if err != nil {
		return err
	}
	return inst.Start(ctx)
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "pypeline: %v\n", err)
		os.Exit(1)
	}
}
