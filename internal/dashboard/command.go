package dashboard

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/execshell"
	"github.com/temirov/subkeep/internal/repos/dependencies"
	"github.com/temirov/subkeep/internal/repos/shared"
	"github.com/temirov/subkeep/internal/utils"
)

const (
	commandUseConstant                    = "dashboard"
	commandShortDescriptionConstant       = "Render the submodule status dashboard"
	commandLongDescriptionConstant        = "dashboard lists every registered submodule and embedded repository with its category, revision, and README description, and writes the result as markdown."
	outputFlagNameConstant                = "output"
	outputFlagUsageConstant               = "Dashboard destination; use - for stdout"
	commandExecutionErrorTemplateConstant = "dashboard failed: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current dashboard configuration.
type ConfigurationProvider func() Configuration

// ReporterProvider creates the reporter used for console output.
type ReporterProvider func(command *cobra.Command) shared.Reporter

// CommandBuilder assembles the dashboard command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ReporterProvider      ReporterProvider
	FileSystem            afero.Fs
	Clock                 shared.Clock
	GitExecutor           shared.GitExecutor
	GitManager            shared.GitRepositoryManager
	CommandEventsObserver execshell.CommandEventObserver
}

// Build constructs the dashboard command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().String(outputFlagNameConstant, "", outputFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()
	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	workingTreeRoot := dependencies.ResolveWorkingTreeRoot(command.Context(), configuration.Registry)

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, builder.CommandEventsObserver)
	if executorError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executorError)
	}
	gitManager, managerError := dependencies.ResolveGitRepositoryManager(builder.GitManager, gitExecutor)
	if managerError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, managerError)
	}
	locator, locatorError := dependencies.ResolveLocator(fileSystem, configuration.Discovery)
	if locatorError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, locatorError)
	}
	store, storeError := dependencies.ResolveRegistryStore(fileSystem, configuration.Registry, workingTreeRoot)
	if storeError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, storeError)
	}

	service, serviceError := NewService(Dependencies{
		Locator:    locator,
		Statuses:   gitManager,
		Revisions:  gitManager,
		FileSystem: fileSystem,
		Clock:      dependencies.ResolveClock(builder.Clock),
		Reporter:   builder.resolveReporter(command),
		Logger:     logger,
	})
	if serviceError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, serviceError)
	}

	outputPath := configuration.Report.Output
	if command.Flags().Changed(outputFlagNameConstant) {
		outputPath, _ = command.Flags().GetString(outputFlagNameConstant)
	}
	if outputPath != StandardOutputPathConstant && !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(workingTreeRoot, outputPath)
	}

	_, generateError := service.Generate(command.Context(), GenerateOptions{
		WorkingTreeRoot: workingTreeRoot,
		Registry:        store,
		Report:          configuration.Report,
	}, outputPath, utils.NewFlushingWriter(command.OutOrStdout()))
	if generateError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, generateError)
	}
	return nil
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
