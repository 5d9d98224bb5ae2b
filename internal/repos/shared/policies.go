package shared

// ExecutionMode specifies whether services mutate state or only print their plan.
type ExecutionMode int

const (
	// ExecutionModeApply performs registry writes and index mutations.
	ExecutionModeApply ExecutionMode = iota
	// ExecutionModePlan prints PLAN lines instead of mutating anything.
	ExecutionModePlan
)

// ExecutionModeFromDryRun converts the --dry-run flag into a mode.
func ExecutionModeFromDryRun(dryRun bool) ExecutionMode {
	if dryRun {
		return ExecutionModePlan
	}
	return ExecutionModeApply
}

// ShouldApply reports whether side effects are allowed.
func (mode ExecutionMode) ShouldApply() bool {
	return mode == ExecutionModeApply
}

// RegistryRequirement describes how a service treats an absent registry file.
type RegistryRequirement int

const (
	// RegistryOptional treats an absent registry as an empty one.
	RegistryOptional RegistryRequirement = iota
	// RegistryRequired aborts the run when the registry is absent.
	RegistryRequired
)

// Required reports whether an absent registry is fatal.
func (requirement RegistryRequirement) Required() bool {
	return requirement == RegistryRequired
}
