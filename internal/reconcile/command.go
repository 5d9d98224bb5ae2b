package reconcile

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/execshell"
	"github.com/temirov/subkeep/internal/repos/dependencies"
	"github.com/temirov/subkeep/internal/repos/shared"
	flagutils "github.com/temirov/subkeep/internal/utils/flags"
)

const (
	restoreCommandUseConstant               = "restore"
	restoreCommandShortDescriptionConstant  = "Declare nested repositories missing from the registry"
	restoreCommandLongDescriptionConstant   = "restore walks the working tree, finds repositories the registry does not declare, and appends a registry entry for each one whose origin resolves."
	restoreListCommandUseConstant           = "restore-list"
	restoreListShortDescriptionConstant     = "Declare the repositories named in an expected list"
	restoreListLongDescriptionConstant      = "restore-list reads a newline-separated list of paths and appends a registry entry for each existing, undeclared repository whose origin resolves."
	pruneCommandUseConstant                 = "prune"
	pruneCommandShortDescriptionConstant    = "Remove index links the registry does not declare"
	pruneCommandLongDescriptionConstant     = "prune lists gitlink entries in the index and removes every entry whose path the registry does not declare. The registry itself is never modified."
	expectedListFlagNameConstant            = "list"
	expectedListFlagUsageConstant           = "File with one expected submodule path per line"
	restoreCommandErrorTemplateConstant     = "restore failed: %w"
	restoreListCommandErrorTemplateConstant = "restore-list failed: %w"
	pruneCommandErrorTemplateConstant       = "prune failed: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current reconcile configuration.
type ConfigurationProvider func() Configuration

// ReporterProvider creates the reporter used for console output of a command.
type ReporterProvider func(command *cobra.Command) shared.Reporter

// CommandDependencies holds collaborators shared by the reconcile command builders.
// Nil fields are resolved to the real implementations.
type CommandDependencies struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ReporterProvider      ReporterProvider
	FileSystem            afero.Fs
	GitExecutor           shared.GitExecutor
	GitManager            shared.GitRepositoryManager
	CommandEventsObserver execshell.CommandEventObserver
}

// RestoreCommandBuilder assembles the restore command.
type RestoreCommandBuilder struct {
	CommandDependencies
}

// Build constructs the restore command.
func (builder *RestoreCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   restoreCommandUseConstant,
		Short: restoreCommandShortDescriptionConstant,
		Long:  restoreCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	executionFlags := bindDryRunFlag(command)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		environment, environmentError := builder.prepare(command)
		if environmentError != nil {
			return fmt.Errorf(restoreCommandErrorTemplateConstant, environmentError)
		}
		_, restoreError := environment.service.Restore(command.Context(), RestoreOptions{
			WorkingTreeRoot: environment.workingTreeRoot,
			Registry:        environment.store,
			Mode:            shared.ExecutionModeFromDryRun(executionFlags.DryRun),
		})
		if restoreError != nil {
			return fmt.Errorf(restoreCommandErrorTemplateConstant, restoreError)
		}
		return nil
	}

	return command, nil
}

// RestoreListCommandBuilder assembles the restore-list command.
type RestoreListCommandBuilder struct {
	CommandDependencies
}

// Build constructs the restore-list command.
func (builder *RestoreListCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   restoreListCommandUseConstant,
		Short: restoreListShortDescriptionConstant,
		Long:  restoreListLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	executionFlags := bindDryRunFlag(command)
	command.Flags().String(expectedListFlagNameConstant, "", expectedListFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		environment, environmentError := builder.prepare(command)
		if environmentError != nil {
			return fmt.Errorf(restoreListCommandErrorTemplateConstant, environmentError)
		}

		listPath := environment.configuration.Restore.ExpectedList
		if command.Flags().Changed(expectedListFlagNameConstant) {
			listPath, _ = command.Flags().GetString(expectedListFlagNameConstant)
		}

		_, restoreError := environment.service.RestoreFromList(command.Context(), RestoreListOptions{
			WorkingTreeRoot:  environment.workingTreeRoot,
			Registry:         environment.store,
			ExpectedListPath: resolveAgainstRoot(environment.workingTreeRoot, listPath),
			Mode:             shared.ExecutionModeFromDryRun(executionFlags.DryRun),
		})
		if restoreError != nil {
			return fmt.Errorf(restoreListCommandErrorTemplateConstant, restoreError)
		}
		return nil
	}

	return command, nil
}

// PruneCommandBuilder assembles the prune command.
type PruneCommandBuilder struct {
	CommandDependencies
}

// Build constructs the prune command.
func (builder *PruneCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   pruneCommandUseConstant,
		Short: pruneCommandShortDescriptionConstant,
		Long:  pruneCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	executionFlags := bindDryRunFlag(command)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		environment, environmentError := builder.prepare(command)
		if environmentError != nil {
			return fmt.Errorf(pruneCommandErrorTemplateConstant, environmentError)
		}
		_, pruneError := environment.service.Prune(command.Context(), PruneOptions{
			WorkingTreeRoot: environment.workingTreeRoot,
			Registry:        environment.store,
			Mode:            shared.ExecutionModeFromDryRun(executionFlags.DryRun),
		})
		if pruneError != nil {
			return fmt.Errorf(pruneCommandErrorTemplateConstant, pruneError)
		}
		return nil
	}

	return command, nil
}

type commandEnvironment struct {
	configuration   Configuration
	workingTreeRoot string
	store           RegistryStore
	service         *Service
}

func (dependenciesSet CommandDependencies) prepare(command *cobra.Command) (commandEnvironment, error) {
	configuration := dependenciesSet.resolveConfiguration()
	logger := dependenciesSet.resolveLogger()
	fileSystem := dependencies.ResolveFileSystem(dependenciesSet.FileSystem)
	workingTreeRoot := dependencies.ResolveWorkingTreeRoot(command.Context(), configuration.Registry)

	gitExecutor, executorError := dependencies.ResolveGitExecutor(dependenciesSet.GitExecutor, logger, dependenciesSet.CommandEventsObserver)
	if executorError != nil {
		return commandEnvironment{}, executorError
	}
	gitManager, managerError := dependencies.ResolveGitRepositoryManager(dependenciesSet.GitManager, gitExecutor)
	if managerError != nil {
		return commandEnvironment{}, managerError
	}
	locator, locatorError := dependencies.ResolveLocator(fileSystem, configuration.Discovery)
	if locatorError != nil {
		return commandEnvironment{}, locatorError
	}
	store, storeError := dependencies.ResolveRegistryStore(fileSystem, configuration.Registry, workingTreeRoot)
	if storeError != nil {
		return commandEnvironment{}, storeError
	}

	service, serviceError := NewService(Dependencies{
		Locator:    locator,
		Remotes:    gitManager,
		IndexLinks: gitManager,
		FileSystem: fileSystem,
		Reporter:   dependenciesSet.resolveReporter(command),
		Logger:     logger,
	})
	if serviceError != nil {
		return commandEnvironment{}, serviceError
	}

	return commandEnvironment{
		configuration:   configuration,
		workingTreeRoot: workingTreeRoot,
		store:           store,
		service:         service,
	}, nil
}

func (dependenciesSet CommandDependencies) resolveConfiguration() Configuration {
	if dependenciesSet.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return dependenciesSet.ConfigurationProvider().Sanitize()
}

func (dependenciesSet CommandDependencies) resolveLogger() *zap.Logger {
	if dependenciesSet.LoggerProvider == nil {
		return zap.NewNop()
	}
	return dependencies.ResolveLogger(dependenciesSet.LoggerProvider())
}

func (dependenciesSet CommandDependencies) resolveReporter(command *cobra.Command) shared.Reporter {
	if dependenciesSet.ReporterProvider != nil {
		if reporter := dependenciesSet.ReporterProvider(command); reporter != nil {
			return reporter
		}
	}
	return dependencies.ResolveReporter(nil, command.OutOrStdout())
}

func bindDryRunFlag(command *cobra.Command) *flagutils.ExecutionFlagValues {
	return flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, flagutils.ExecutionFlagDefinitions{
		DryRun: flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
	})
}

func resolveAgainstRoot(workingTreeRoot string, candidatePath string) string {
	if filepath.IsAbs(candidatePath) {
		return candidatePath
	}
	return filepath.Join(workingTreeRoot, candidatePath)
}
