package intake

import (
	"strings"

	"github.com/temirov/subkeep/internal/registry"
)

const (
	defaultLinksFileConstant       = "LINKS_TO_PROCESS.md"
	defaultLogFileConstant         = "SUBMODULE_ADDITION_LOG.txt"
	defaultTargetDirectoryConstant = "misc"
)

// Mapping routes links under headings containing Match into Directory.
type Mapping struct {
	Match     string `mapstructure:"match"`
	Directory string `mapstructure:"directory"`
}

// ImportConfiguration holds settings for the import command.
type ImportConfiguration struct {
	LinksFile        string    `mapstructure:"links_file"`
	LogFile          string    `mapstructure:"log_file"`
	DefaultDirectory string    `mapstructure:"default_directory"`
	Mappings         []Mapping `mapstructure:"mappings"`
}

// Configuration aggregates everything the import command reads from configuration.
type Configuration struct {
	Registry registry.Configuration
	Import   ImportConfiguration
}

// DefaultImportConfiguration returns the stock heading table.
func DefaultImportConfiguration() ImportConfiguration {
	return ImportConfiguration{
		LinksFile:        defaultLinksFileConstant,
		LogFile:          defaultLogFileConstant,
		DefaultDirectory: defaultTargetDirectoryConstant,
		Mappings: []Mapping{
			{Match: "MCP Directories", Directory: "mcp-hubs"},
			{Match: "Skills", Directory: "skills"},
			{Match: "Multi Agent Orchestration", Directory: "multi-agent"},
			{Match: "CLIs", Directory: "cli-harnesses"},
			{Match: "MCPs, misc", Directory: "mcp-servers"},
			{Match: "Code indexing", Directory: "code-indexing"},
			{Match: "Memory systems", Directory: "memory"},
			{Match: "MCP reduce context", Directory: "mcp-servers/optimization"},
			{Match: "RAG", Directory: "RAG"},
			{Match: "Database", Directory: "database"},
			{Match: "Computer-use", Directory: "computer-use"},
			{Match: "Code sandboxing", Directory: "code-sandbox"},
			{Match: "Search", Directory: "search"},
			{Match: "Routers, providers", Directory: "mcp-routers"},
		},
	}
}

// DefaultConfiguration returns baseline import settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Registry: registry.DefaultConfiguration(),
		Import:   DefaultImportConfiguration(),
	}
}

// Sanitize trims values, drops incomplete mappings, and restores defaults for blank scalars.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Registry = configuration.Registry.Sanitize()
	sanitized.Import = configuration.Import.Sanitize()
	return sanitized
}

// Sanitize trims values and drops incomplete mappings. A blank log file disables the log.
func (configuration ImportConfiguration) Sanitize() ImportConfiguration {
	sanitized := ImportConfiguration{
		LinksFile:        strings.TrimSpace(configuration.LinksFile),
		LogFile:          strings.TrimSpace(configuration.LogFile),
		DefaultDirectory: strings.Trim(strings.TrimSpace(configuration.DefaultDirectory), "/"),
	}
	if len(sanitized.LinksFile) == 0 {
		sanitized.LinksFile = defaultLinksFileConstant
	}
	if len(sanitized.DefaultDirectory) == 0 {
		sanitized.DefaultDirectory = defaultTargetDirectoryConstant
	}
	for _, mapping := range configuration.Mappings {
		trimmedMatch := strings.TrimSpace(mapping.Match)
		trimmedDirectory := strings.Trim(strings.TrimSpace(mapping.Directory), "/")
		if len(trimmedMatch) == 0 || len(trimmedDirectory) == 0 {
			continue
		}
		sanitized.Mappings = append(sanitized.Mappings, Mapping{Match: trimmedMatch, Directory: trimmedDirectory})
	}
	return sanitized
}

// TargetDirectory returns the directory of the first mapping whose Match is a
// case-insensitive substring of heading, or the default directory.
func (configuration ImportConfiguration) TargetDirectory(heading string) string {
	loweredHeading := strings.ToLower(heading)
	for _, mapping := range configuration.Mappings {
		if strings.Contains(loweredHeading, strings.ToLower(mapping.Match)) {
			return mapping.Directory
		}
	}
	if len(configuration.DefaultDirectory) == 0 {
		return defaultTargetDirectoryConstant
	}
	return configuration.DefaultDirectory
}
