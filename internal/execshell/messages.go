package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
	gitRevParseSubcommandNameConstant     = "rev-parse"
	gitSubmoduleSubcommandNameConstant    = "submodule"
	gitSubmoduleStatusActionConstant      = "status"
	gitSubmoduleAddActionConstant         = "add"
	gitLSFilesSubcommandNameConstant      = "ls-files"
	gitRemoveSubcommandNameConstant       = "rm"
	gitArgumentSeparatorConstant          = "--"
)

const (
	gitRemoteLookupStartTemplateConstant            = "Checking %s remote for %s"
	gitRemoteLookupSuccessTemplateConstant          = "%s remote for %s points to %s"
	gitRemoteLookupFailureTemplateConstant          = "Failed to read %s remote for %s (exit code %d%s)"
	gitRemoteLookupExecutionFailureTemplateConstant = "Unable to read %s remote for %s: %s"
	gitRevisionStartTemplateConstant                = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant              = "%s in %s resolved to %s"
	gitRevisionEmptySuccessTemplateConstant         = "%s in %s did not resolve to a revision"
	gitRevisionFailureTemplateConstant              = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant     = "Unable to resolve %s in %s: %s"
	gitSubmoduleStatusStartTemplateConstant         = "Reading submodule status in %s"
	gitSubmoduleStatusSuccessTemplateConstant       = "Read submodule status in %s"
	gitSubmoduleStatusFailureTemplateConstant       = "Failed to read submodule status in %s (exit code %d%s)"
	gitSubmoduleStatusExecutionTemplateConstant     = "Unable to read submodule status in %s: %s"
	gitSubmoduleAddStartTemplateConstant            = "Adding submodule %s at %s in %s"
	gitSubmoduleAddSuccessTemplateConstant          = "Added submodule %s at %s in %s"
	gitSubmoduleAddFailureTemplateConstant          = "Failed to add submodule %s at %s in %s (exit code %d%s)"
	gitSubmoduleAddExecutionTemplateConstant        = "Unable to add submodule %s at %s in %s: %s"
	gitIndexListStartTemplateConstant               = "Listing index entries in %s"
	gitIndexListSuccessTemplateConstant             = "Listed index entries in %s"
	gitIndexListFailureTemplateConstant             = "Failed to list index entries in %s (exit code %d%s)"
	gitIndexListExecutionTemplateConstant           = "Unable to list index entries in %s: %s"
	gitIndexRemoveStartTemplateConstant             = "Removing %s from the index in %s"
	gitIndexRemoveSuccessTemplateConstant           = "Removed %s from the index in %s"
	gitIndexRemoveFailureTemplateConstant           = "Failed to remove %s from the index in %s (exit code %d%s)"
	gitIndexRemoveExecutionTemplateConstant         = "Unable to remove %s from the index in %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	switch strings.TrimSpace(command.Details.Arguments[0]) {
	case gitRemoteSubcommandNameConstant:
		return formatter.describeGitRemoteMessage(command, result, failure, stage)
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitSubmoduleSubcommandNameConstant:
		return formatter.describeGitSubmoduleMessage(command, result, failure, stage)
	case gitLSFilesSubcommandNameConstant:
		return formatter.selectMessage(stage, result, failure,
			fmt.Sprintf(gitIndexListStartTemplateConstant, formatter.describeWorkingDirectory(command)),
			fmt.Sprintf(gitIndexListSuccessTemplateConstant, formatter.describeWorkingDirectory(command)),
			gitIndexListFailureTemplateConstant, gitIndexListExecutionTemplateConstant,
			formatter.describeWorkingDirectory(command))
	case gitRemoveSubcommandNameConstant:
		return formatter.describeGitRemoveMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || strings.TrimSpace(arguments[1]) != gitRemoteGetURLSubcommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRemoteLookupStartTemplateConstant, remoteName, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRemoteLookupSuccessTemplateConstant, remoteName, workingDirectory, formatter.ensureValue(result.StandardOutput))
	case messageStageFailure:
		return fmt.Sprintf(gitRemoteLookupFailureTemplateConstant, remoteName, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitRemoteLookupExecutionFailureTemplateConstant, remoteName, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	reference := formatter.ensureValue(formatter.argumentAtIndex(command.Details.Arguments, len(command.Details.Arguments)-1))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, reference, workingDirectory)
	case messageStageSuccess:
		trimmed := strings.TrimSpace(result.StandardOutput)
		if len(trimmed) == 0 {
			return fmt.Sprintf(gitRevisionEmptySuccessTemplateConstant, reference, workingDirectory)
		}
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, reference, workingDirectory, trimmed)
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, reference, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, reference, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeGitSubmoduleMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch strings.TrimSpace(formatter.argumentAtIndex(arguments, 1)) {
	case gitSubmoduleStatusActionConstant:
		return formatter.selectMessage(stage, result, failure,
			fmt.Sprintf(gitSubmoduleStatusStartTemplateConstant, workingDirectory),
			fmt.Sprintf(gitSubmoduleStatusSuccessTemplateConstant, workingDirectory),
			gitSubmoduleStatusFailureTemplateConstant, gitSubmoduleStatusExecutionTemplateConstant,
			workingDirectory)
	case gitSubmoduleAddActionConstant:
		positional := formatter.positionalArguments(arguments[2:])
		url := formatter.ensureValue(formatter.argumentAtIndex(positional, 0))
		path := formatter.ensureValue(formatter.argumentAtIndex(positional, 1))
		switch stage {
		case messageStageStart:
			return fmt.Sprintf(gitSubmoduleAddStartTemplateConstant, url, path, workingDirectory)
		case messageStageSuccess:
			return fmt.Sprintf(gitSubmoduleAddSuccessTemplateConstant, url, path, workingDirectory)
		case messageStageFailure:
			return fmt.Sprintf(gitSubmoduleAddFailureTemplateConstant, url, path, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		default:
			return fmt.Sprintf(gitSubmoduleAddExecutionTemplateConstant, url, path, workingDirectory, formatter.describeFailure(failure))
		}
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRemoveMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	target := formatter.ensureValue(formatter.removalTarget(command.Details.Arguments))

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitIndexRemoveStartTemplateConstant, target, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitIndexRemoveSuccessTemplateConstant, target, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitIndexRemoveFailureTemplateConstant, target, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitIndexRemoveExecutionTemplateConstant, target, workingDirectory, formatter.describeFailure(failure))
	}
}

// selectMessage covers operations whose failure templates take the working directory followed by the outcome.
func (formatter CommandMessageFormatter) selectMessage(stage messageStage, result ExecutionResult, failure error, startMessage string, successMessage string, failureTemplate string, executionFailureTemplate string, workingDirectory string) string {
	switch stage {
	case messageStageStart:
		return startMessage
	case messageStageSuccess:
		return successMessage
	case messageStageFailure:
		return fmt.Sprintf(failureTemplate, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(executionFailureTemplate, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)

	workingDirectorySuffix := emptyStringConstant
	if trimmed := strings.TrimSpace(command.Details.WorkingDirectory); len(trimmed) > 0 {
		workingDirectorySuffix = fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmed)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmed := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmed) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmed := strings.TrimSpace(standardError)
	if len(trimmed) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmed)
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}

func (formatter CommandMessageFormatter) removalTarget(arguments []string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == gitArgumentSeparatorConstant && index+1 < len(arguments) {
			return arguments[index+1]
		}
	}
	positional := formatter.positionalArguments(arguments[1:])
	if len(positional) == 0 {
		return emptyStringConstant
	}
	return positional[len(positional)-1]
}
