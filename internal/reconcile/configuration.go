package reconcile

import (
	"strings"

	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
)

const defaultExpectedListFileConstant = "expected_submodules.txt"

// RestoreConfiguration holds settings specific to the restore commands.
type RestoreConfiguration struct {
	ExpectedList string `mapstructure:"expected_list"`
}

// Configuration aggregates everything the reconcile commands read from configuration.
type Configuration struct {
	Registry  registry.Configuration
	Discovery discovery.Configuration
	Restore   RestoreConfiguration
}

// DefaultRestoreConfiguration returns the default expected list location.
func DefaultRestoreConfiguration() RestoreConfiguration {
	return RestoreConfiguration{ExpectedList: defaultExpectedListFileConstant}
}

// DefaultConfiguration returns baseline reconcile settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Registry:  registry.DefaultConfiguration(),
		Discovery: discovery.DefaultConfiguration(),
		Restore:   DefaultRestoreConfiguration(),
	}
}

// Sanitize trims values and restores defaults for blank ones.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Registry = configuration.Registry.Sanitize()
	sanitized.Discovery = configuration.Discovery.Sanitize()
	sanitized.Restore.ExpectedList = strings.TrimSpace(configuration.Restore.ExpectedList)
	if len(sanitized.Restore.ExpectedList) == 0 {
		sanitized.Restore.ExpectedList = defaultExpectedListFileConstant
	}
	return sanitized
}
