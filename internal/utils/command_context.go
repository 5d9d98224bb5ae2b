package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	workingTreeRootContextKeyConstant       = commandContextKey("workingTreeRoot")
)

type commandContextKey string

// CommandContextAccessor stores run-wide values on the cobra command context.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath records the configuration file that was loaded.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return accessor.withValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath returns the configuration file recorded by WithConfigurationFilePath.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return accessor.value(executionContext, configurationFilePathContextKeyConstant)
}

// WithWorkingTreeRoot records the working tree root requested through the persistent --root flag.
func (accessor CommandContextAccessor) WithWorkingTreeRoot(parentContext context.Context, workingTreeRoot string) context.Context {
	return accessor.withValue(parentContext, workingTreeRootContextKeyConstant, workingTreeRoot)
}

// WorkingTreeRoot returns the root recorded by WithWorkingTreeRoot. Blank values are reported as absent.
func (accessor CommandContextAccessor) WorkingTreeRoot(executionContext context.Context) (string, bool) {
	workingTreeRoot, found := accessor.value(executionContext, workingTreeRootContextKeyConstant)
	if !found || len(strings.TrimSpace(workingTreeRoot)) == 0 {
		return "", false
	}
	return workingTreeRoot, true
}

func (accessor CommandContextAccessor) withValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func (accessor CommandContextAccessor) value(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	storedValue, found := executionContext.Value(key).(string)
	return storedValue, found
}
