// Package pypeline runs a fixed script of named stages against one set of
// typed, defaultable configuration attributes.
//
// A pipeline definition is a struct type whose exported fields are its
// attributes, plus an ordered list of stages acting on that struct:
//
//	type Release struct {
//		Changelist int    `pipeline:"changelist,required"`
//		Value      string `pipeline:"value" default:"Default.txt"`
//	}
//
//	var registry = pypeline.NewRegistry()
//
//	var releaseDef = pypeline.Define[Release](registry, "Release").
//		Stage("Sync", (*Release).Sync).
//		Stage("Build", (*Release).Build).
//		Stage("Submit", (*Release).Submit).
//		MustBuild()
//
//	inst, err := releaseDef.New(pypeline.Values{"changelist": 50})
//	...
//	err = inst.Start(ctx)
//
// Core components include:
//   - AttributeSpec: one attribute's name, type, required policy, description and default
//   - StageSpec: a named action with an order drawn from a Sequence
//   - Schema: the ordered attributes and stages of a definition, built once
//   - Definition: the constructor resolving values into new instances
//   - Instance: resolved values and bound stages, run by Start
//
// Stage orders come from the Registry's Sequence, so a stage declared before
// another anywhere in the process runs first. Stages run strictly
// sequentially and the first failure stops the run.
package pypeline
