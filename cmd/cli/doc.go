// Package cli constructs the subkeep command-line interface, wiring the Cobra
// command hierarchy, the viper-backed configuration loader, and structured
// logging. Execute runs the default command set.
package cli
