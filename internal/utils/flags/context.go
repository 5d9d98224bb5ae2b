package flags

import "github.com/spf13/cobra"

const (
	// DefaultRootFlagName exposes the shared working tree root flag name.
	DefaultRootFlagName = "root"
	// DefaultRootFlagUsage describes the shared working tree root flag purpose.
	DefaultRootFlagUsage = "Working tree that holds the registry and the embedded repositories"
)

// RootFlagDefinition captures configuration for the working tree root flag.
type RootFlagDefinition struct {
	Name       string
	Usage      string
	Enabled    bool
	Persistent bool
}

// RootFlagValues stores the working tree root flag value.
type RootFlagValues struct {
	Root string
}

// BindRootFlags attaches the working tree root flag to the provided command.
func BindRootFlags(command *cobra.Command, defaults RootFlagValues, definition RootFlagDefinition) *RootFlagValues {
	values := defaults
	if command == nil || !definition.Enabled {
		return &values
	}

	flagName := definition.Name
	if len(flagName) == 0 {
		flagName = DefaultRootFlagName
	}
	flagUsage := definition.Usage
	if len(flagUsage) == 0 {
		flagUsage = DefaultRootFlagUsage
	}

	targetSet := command.Flags()
	if definition.Persistent {
		targetSet = command.PersistentFlags()
	}
	if targetSet.Lookup(flagName) == nil {
		targetSet.StringVar(&values.Root, flagName, defaults.Root, flagUsage)
	}
	return &values
}
