package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/dashboard"
	"github.com/temirov/subkeep/internal/execshell"
	"github.com/temirov/subkeep/internal/intake"
	"github.com/temirov/subkeep/internal/reconcile"
	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
	"github.com/temirov/subkeep/internal/ui"
	"github.com/temirov/subkeep/internal/utils"
	flagutils "github.com/temirov/subkeep/internal/utils/flags"
)

const (
	applicationNameConstant                 = "subkeep"
	applicationShortDescriptionConstant     = "Keep the submodule registry in step with the repositories on disk"
	applicationLongDescriptionConstant      = "subkeep discovers repositories nested in a working tree, declares the missing ones in .gitmodules, prunes stale index links, imports GitHub links as submodules, and renders a dashboard of everything it finds."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagDescriptionConstant         = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagDescriptionConstant        = "Override the configured log format."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "SUBKEEP"
	environmentFileConstant                 = ".env"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationRootFieldConstant          = "root"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "subkeep CLI executed"
	rootCommandDebugMessageConstant         = "subkeep CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds the settings each command family reads.
type ApplicationToolsConfiguration struct {
	Registry  registry.Configuration         `mapstructure:"registry"`
	Discovery discovery.Configuration        `mapstructure:"discovery"`
	Restore   reconcile.RestoreConfiguration `mapstructure:"restore"`
	Dashboard dashboard.ReportConfiguration  `mapstructure:"dashboard"`
	Import    intake.ImportConfiguration     `mapstructure:"import"`
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	consoleLogger          *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	rootFlagValues         *flagutils.RootFlagValues
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.SetEnvironmentFiles(environmentFileConstant)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(
		&application.logLevelFlagValue,
		logLevelFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogLevelInfo), []string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)}, logLevelFlagDescriptionConstant),
	)
	cobraCommand.PersistentFlags().StringVar(
		&application.logFormatFlagValue,
		logFormatFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(string(utils.LogFormatStructured), []string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)}, logFormatFlagDescriptionConstant),
	)
	application.rootFlagValues = flagutils.BindRootFlags(cobraCommand, flagutils.RootFlagValues{}, flagutils.RootFlagDefinition{Enabled: true, Persistent: true})

	loggerProvider := func() *zap.Logger {
		return application.logger
	}
	eventsObserver := deferredCommandEventObserver{application: application}
	reconcileDependencies := reconcile.CommandDependencies{
		LoggerProvider:        loggerProvider,
		ConfigurationProvider: application.reconcileConfiguration,
		CommandEventsObserver: eventsObserver,
	}

	builders := []commandBuilder{
		&reconcile.RestoreCommandBuilder{CommandDependencies: reconcileDependencies},
		&reconcile.RestoreListCommandBuilder{CommandDependencies: reconcileDependencies},
		&reconcile.PruneCommandBuilder{CommandDependencies: reconcileDependencies},
		&dashboard.CommandBuilder{
			LoggerProvider:        loggerProvider,
			ConfigurationProvider: application.dashboardConfiguration,
			CommandEventsObserver: eventsObserver,
		},
		&intake.CommandBuilder{
			LoggerProvider:        loggerProvider,
			ConfigurationProvider: application.intakeConfiguration,
			CommandEventsObserver: eventsObserver,
		},
	}
	for _, builder := range builders {
		subcommand, buildError := builder.Build()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

// RootCommand exposes the root command for embedding and tests.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Configuration returns the configuration resolved by the last command run.
func (application *Application) Configuration() ApplicationConfiguration {
	return application.configuration
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogLevel))),
		utils.LogFormat(strings.ToLower(strings.TrimSpace(application.configuration.Common.LogFormat))),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
		zap.String(configurationRootFieldConstant, application.rootFlagValues.Root),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		if application.persistentFlagChanged(command, flagutils.DefaultRootFlagName) {
			updatedContext = application.commandContextAccessor.WithWorkingTreeRoot(updatedContext, application.rootFlagValues.Root)
		}
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) reconcileConfiguration() reconcile.Configuration {
	tools := application.configuration.Tools
	return reconcile.Configuration{Registry: tools.Registry, Discovery: tools.Discovery, Restore: tools.Restore}
}

func (application *Application) dashboardConfiguration() dashboard.Configuration {
	tools := application.configuration.Tools
	return dashboard.Configuration{Registry: tools.Registry, Discovery: tools.Discovery, Report: tools.Dashboard}
}

func (application *Application) intakeConfiguration() intake.Configuration {
	tools := application.configuration.Tools
	return intake.Configuration{Registry: tools.Registry, Import: tools.Import}
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) flushLogger() error {
	for _, logger := range []*zap.Logger{application.logger, application.consoleLogger} {
		if syncError := application.syncLoggerInstance(logger); syncError != nil {
			return syncError
		}
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

// deferredCommandEventObserver forwards git command events to the console
// logger once configuration has chosen the console format.
type deferredCommandEventObserver struct {
	application *Application
}

func (observer deferredCommandEventObserver) CommandStarted(command execshell.ShellCommand) {
	if eventLogger := observer.consoleEvents(); eventLogger != nil {
		eventLogger.CommandStarted(command)
	}
}

func (observer deferredCommandEventObserver) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger := observer.consoleEvents(); eventLogger != nil {
		eventLogger.CommandCompleted(command, result)
	}
}

func (observer deferredCommandEventObserver) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger := observer.consoleEvents(); eventLogger != nil {
		eventLogger.CommandExecutionFailed(command, failure)
	}
}

func (observer deferredCommandEventObserver) consoleEvents() *ui.ConsoleCommandEventLogger {
	if observer.application == nil || observer.application.consoleLogger == nil {
		return nil
	}
	return ui.NewConsoleCommandEventLogger(observer.application.consoleLogger)
}
