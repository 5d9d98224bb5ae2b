package registry

import (
	"path/filepath"
	"strings"
)

const defaultRootConstant = "."

// Configuration locates the working tree and its registry file.
type Configuration struct {
	Root string `mapstructure:"root"`
	File string `mapstructure:"file"`
}

// DefaultConfiguration returns the working directory and .gitmodules.
func DefaultConfiguration() Configuration {
	return Configuration{Root: defaultRootConstant, File: DefaultFileNameConstant}
}

// Sanitize trims values and restores defaults for blank ones.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Root = strings.TrimSpace(configuration.Root)
	if len(sanitized.Root) == 0 {
		sanitized.Root = defaultRootConstant
	}
	sanitized.File = strings.TrimSpace(configuration.File)
	if len(sanitized.File) == 0 {
		sanitized.File = DefaultFileNameConstant
	}
	return sanitized
}

// ResolveFilePath joins a relative registry file name onto workingTreeRoot.
func (configuration Configuration) ResolveFilePath(workingTreeRoot string) string {
	registryFile := configuration.Sanitize().File
	if filepath.IsAbs(registryFile) {
		return registryFile
	}
	return filepath.Join(workingTreeRoot, registryFile)
}
