// Package flags binds the flags shared by subkeep commands.
package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Print the planned changes without touching the registry or the index"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name    string
	Usage   string
	Enabled bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun ExecutionFlagDefinition
}

// ExecutionFlagValues stores parsed execution flag values.
type ExecutionFlagValues struct {
	DryRun bool
}

// BindExecutionFlags attaches the execution flags to command and returns the storage they parse into.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{DryRun: defaults.DryRun}
	if command == nil || !definitions.DryRun.Enabled {
		return values
	}

	flagName := definitions.DryRun.Name
	if len(flagName) == 0 {
		flagName = DryRunFlagName
	}
	flagUsage := definitions.DryRun.Usage
	if len(flagUsage) == 0 {
		flagUsage = DryRunFlagUsage
	}

	AddToggleFlag(command.Flags(), &values.DryRun, flagName, defaults.DryRun, flagUsage)
	return values
}
