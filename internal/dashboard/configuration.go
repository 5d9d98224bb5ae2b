package dashboard

import (
	"strings"

	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
)

const (
	defaultOutputPathConstant = "docs/SUBMODULE_DASHBOARD.md"
	defaultProjectConstant    = "aios"
	defaultContainerConstant  = "external"
)

// ReportConfiguration controls where the dashboard is written and how paths map to categories.
type ReportConfiguration struct {
	Output          string            `mapstructure:"output"`
	Project         string            `mapstructure:"project"`
	Container       string            `mapstructure:"container"`
	Categories      map[string]string `mapstructure:"categories"`
	CoreDirectories map[string]string `mapstructure:"core_directories"`
}

// Configuration aggregates everything the dashboard command reads from configuration.
type Configuration struct {
	Registry  registry.Configuration
	Discovery discovery.Configuration
	Report    ReportConfiguration
}

// DefaultReportConfiguration returns the stock category table.
func DefaultReportConfiguration() ReportConfiguration {
	return ReportConfiguration{
		Output:    defaultOutputPathConstant,
		Project:   defaultProjectConstant,
		Container: defaultContainerConstant,
		Categories: map[string]string{
			"agents_repos": "Agents",
			"auth":         "Authentication",
			"config_repos": "Configuration & Templates",
			"misc":         "Miscellaneous",
			"plugins":      "Plugins",
			"research":     "Research",
			"skills_repos": "Skills",
			"tools":        "Tools",
			"web_repos":    "Web Interfaces",
		},
		CoreDirectories: map[string]string{
			"submodules": "Core Submodules",
		},
	}
}

// DefaultConfiguration returns baseline dashboard settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Registry:  registry.DefaultConfiguration(),
		Discovery: discovery.DefaultConfiguration(),
		Report:    DefaultReportConfiguration(),
	}
}

// Sanitize trims values and restores defaults for blank ones.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Registry = configuration.Registry.Sanitize()
	sanitized.Discovery = configuration.Discovery.Sanitize()
	sanitized.Report = configuration.Report.Sanitize()
	return sanitized
}

// Sanitize trims values, drops blank table entries, and restores defaults for blank scalars.
func (configuration ReportConfiguration) Sanitize() ReportConfiguration {
	defaults := DefaultReportConfiguration()
	sanitized := ReportConfiguration{
		Output:          strings.TrimSpace(configuration.Output),
		Project:         strings.TrimSpace(configuration.Project),
		Container:       strings.Trim(strings.TrimSpace(configuration.Container), "/"),
		Categories:      sanitizeTable(configuration.Categories),
		CoreDirectories: sanitizeTable(configuration.CoreDirectories),
	}
	if len(sanitized.Output) == 0 {
		sanitized.Output = defaults.Output
	}
	if len(sanitized.Project) == 0 {
		sanitized.Project = defaults.Project
	}
	if len(sanitized.Container) == 0 {
		sanitized.Container = defaults.Container
	}
	return sanitized
}

func sanitizeTable(table map[string]string) map[string]string {
	sanitized := make(map[string]string, len(table))
	for key, label := range table {
		trimmedKey := strings.TrimSpace(key)
		trimmedLabel := strings.TrimSpace(label)
		if len(trimmedKey) == 0 || len(trimmedLabel) == 0 {
			continue
		}
		sanitized[trimmedKey] = trimmedLabel
	}
	return sanitized
}
