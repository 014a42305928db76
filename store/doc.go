// Package store provides the type-aware key-value store backing pipeline
// instances.
//
// Every pipeline instance owns one KVStore. It records the resolved value of
// each attribute together with metadata describing where the value came from,
// and the execution status of the pipeline and of each of its stages.
//
// Core features include:
//   - Type-safe reads using generics (Get)
//   - Metadata for entries including tags and properties
//   - Tag lookups returning keys in a stable order
//   - Thread-safe operations
//
// Metadata returned by the store is always a copy; use SetProperty to change
// what is stored.
package store
