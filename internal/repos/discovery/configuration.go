package discovery

import "strings"

// Configuration holds the prune patterns applied during the directory walk.
type Configuration struct {
	Exclude []string `mapstructure:"exclude"`
}

// DefaultConfiguration skips dependency and virtualenv folders.
func DefaultConfiguration() Configuration {
	return Configuration{Exclude: []string{"**/node_modules", "**/.venv"}}
}

// Sanitize drops blank patterns.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := make([]string, 0, len(configuration.Exclude))
	for _, pattern := range configuration.Exclude {
		trimmed := strings.TrimSpace(pattern)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return Configuration{Exclude: sanitized}
}
