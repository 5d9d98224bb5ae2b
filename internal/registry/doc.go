// Package registry reads and appends the .gitmodules registry.
//
// Store.Load parses the file into an immutable Snapshot once per run. New
// declarations are staged as Additions and written with a single append, so
// blocks already in the file are never rewritten or reordered.
package registry
