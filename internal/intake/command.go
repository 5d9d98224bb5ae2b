package intake

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
	importCommandUseConstant              = "import"
	importCommandShortDescriptionConstant = "Add submodules for the GitHub links in a markdown checklist"
	importCommandLongDescriptionConstant  = "import reads checklist items under \"##\" headings, maps each heading to a target directory, and adds one submodule per GitHub link. Repositories already declared in the registry are skipped."
	linksFlagNameConstant                 = "links"
	linksFlagUsageConstant                = "Markdown file with checklist links"
	logFileFlagNameConstant               = "log-file"
	logFileFlagUsageConstant              = "File that records every addition attempt (empty disables it)"
	importCommandErrorTemplateConstant    = "import failed: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current import configuration.
type ConfigurationProvider func() Configuration

// ReporterProvider creates the reporter used for console output of a command.
type ReporterProvider func(command *cobra.Command) shared.Reporter

// CommandBuilder assembles the import command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ReporterProvider      ReporterProvider
	FileSystem            afero.Fs
	GitExecutor           shared.GitExecutor
	GitManager            shared.GitRepositoryManager
	CommandEventsObserver execshell.CommandEventObserver
}

// Build constructs the import command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   importCommandUseConstant,
		Short: importCommandShortDescriptionConstant,
		Long:  importCommandLongDescriptionConstant,
		Args:  cobra.NoArgs,
	}
	executionFlags := flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, flagutils.ExecutionFlagDefinitions{
		DryRun: flagutils.ExecutionFlagDefinition{Name: flagutils.DryRunFlagName, Usage: flagutils.DryRunFlagUsage, Enabled: true},
	})
	command.Flags().String(linksFlagNameConstant, "", linksFlagUsageConstant)
	command.Flags().String(logFileFlagNameConstant, "", logFileFlagUsageConstant)

	command.RunE = func(command *cobra.Command, arguments []string) error {
		if runError := builder.run(command, shared.ExecutionModeFromDryRun(executionFlags.DryRun)); runError != nil {
			return fmt.Errorf(importCommandErrorTemplateConstant, runError)
		}
		return nil
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, mode shared.ExecutionMode) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	workingTreeRoot := dependencies.ResolveWorkingTreeRoot(command.Context(), configuration.Registry)

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.CommandEventsObserver)
	if executorError != nil {
		return executorError
	}
	gitManager, managerError := dependencies.ResolveGitRepositoryManager(builder.GitManager, gitExecutor)
	if managerError != nil {
		return managerError
	}
	store, storeError := dependencies.ResolveRegistryStore(fileSystem, configuration.Registry, workingTreeRoot)
	if storeError != nil {
		return storeError
	}

	service, serviceError := NewService(Dependencies{
		Submodules: gitManager,
		FileSystem: fileSystem,
		Reporter:   builder.resolveReporter(command),
		Logger:     logger,
	})
	if serviceError != nil {
		return serviceError
	}

	linksPath := configuration.Import.LinksFile
	if command.Flags().Changed(linksFlagNameConstant) {
		linksPath, _ = command.Flags().GetString(linksFlagNameConstant)
	}
	logPath := configuration.Import.LogFile
	if command.Flags().Changed(logFileFlagNameConstant) {
		logPath, _ = command.Flags().GetString(logFileFlagNameConstant)
	}

	_, importError := service.Import(command.Context(), ImportOptions{
		WorkingTreeRoot: workingTreeRoot,
		LinksPath:       resolveAgainstRoot(workingTreeRoot, linksPath),
		LogPath:         resolveAgainstRoot(workingTreeRoot, logPath),
		Registry:        store,
		Settings:        configuration.Import,
		Mode:            mode,
	})
	return importError
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	return dependencies.ResolveLogger(builder.LoggerProvider())
}

func (builder *CommandBuilder) resolveReporter(command *cobra.Command) shared.Reporter {
	if builder.ReporterProvider != nil {
		if reporter := builder.ReporterProvider(command); reporter != nil {
			return reporter
		}
	}
	return dependencies.ResolveReporter(nil, command.OutOrStdout())
}

// resolveAgainstRoot keeps an empty path empty so a blank log file stays disabled.
func resolveAgainstRoot(workingTreeRoot string, candidatePath string) string {
	if len(candidatePath) == 0 || filepath.IsAbs(candidatePath) {
		return candidatePath
	}
	return filepath.Join(workingTreeRoot, candidatePath)
}
