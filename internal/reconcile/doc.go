// Package reconcile synchronizes the submodule registry with the working tree.
//
// Restore adds registry entries for nested repositories found on disk,
// RestoreFromList does the same for an explicit list of paths, and Prune
// removes index links that the registry no longer declares. Each run
// synchronizes one direction only.
package reconcile
