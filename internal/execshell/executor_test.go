package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/subkeep/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant         = "success"
	testExecutionFailureCaseNameConstant         = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant     = "runner_error"
	testCommandArgumentConstant                  = "rev-parse"
	testCommandSecondArgumentConstant            = "HEAD"
	testWorkingDirectoryConstant                 = "external/tools/cli-thing"
	testStandardErrorOutputConstant              = "fatal: not a git repository"
	testRunnerFailureMessageConstant             = "runner failure"
	testLoggerInitializationCaseNameConstant     = "logger_validation"
	testRunnerInitializationCaseNameConstant     = "runner_validation"
	testSuccessfulInitializationCaseNameConstant = "successful_initialization"
	testObserverStartedEventConstant             = "started"
	testObserverCompletedEventConstant           = "completed"
	testObserverFailedEventConstant              = "failed"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

type recordingEventObserver struct {
	events []string
}

func (recorder *recordingEventObserver) CommandStarted(execshell.ShellCommand) {
	recorder.events = append(recorder.events, testObserverStartedEventConstant)
}

func (recorder *recordingEventObserver) CommandCompleted(execshell.ShellCommand, execshell.ExecutionResult) {
	recorder.events = append(recorder.events, testObserverCompletedEventConstant)
}

func (recorder *recordingEventObserver) CommandExecutionFailed(execshell.ShellCommand, error) {
	recorder.events = append(recorder.events, testObserverFailedEventConstant)
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        testLoggerInitializationCaseNameConstant,
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        testRunnerInitializationCaseNameConstant,
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          testSuccessfulInitializationCaseNameConstant,
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedEvents   []string
		expectedLogCount int
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "abc1234\n",
				ExitCode:       0,
			},
			expectedEvents:   []string{testObserverStartedEventConstant, testObserverCompletedEventConstant},
			expectedLogCount: 2,
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      128,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedEvents:   []string{testObserverStartedEventConstant, testObserverCompletedEventConstant},
			expectedLogCount: 2,
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New(testRunnerFailureMessageConstant),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedEvents:   []string{testObserverStartedEventConstant, testObserverFailedEventConstant},
			expectedLogCount: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}
			eventRecorder := &recordingEventObserver{}

			shellExecutor, creationError := execshell.NewShellExecutorWithObserver(logger, recordingRunner, eventRecorder)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{
				Arguments:        []string{testCommandArgumentConstant, testCommandSecondArgumentConstant},
				WorkingDirectory: testWorkingDirectoryConstant,
			}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
			require.Equal(testInstance, testCase.expectedEvents, eventRecorder.events)
			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, execshell.CommandGit, recordingRunner.recordedCommands[0].Name)
		})
	}
}

func TestCommandErrorsDescribeCommand(testInstance *testing.T) {
	command := execshell.ShellCommand{
		Name:    execshell.CommandGit,
		Details: execshell.CommandDetails{Arguments: []string{"remote", "get-url", "origin"}},
	}

	failedError := execshell.CommandFailedError{
		Command: command,
		Result:  execshell.ExecutionResult{ExitCode: 2, StandardError: "error: No such remote 'origin'\n"},
	}
	require.Equal(testInstance, "git remote get-url origin exited with code 2: error: No such remote 'origin'", failedError.Error())

	runnerFailure := errors.New(testRunnerFailureMessageConstant)
	executionError := execshell.CommandExecutionError{Command: command, Cause: runnerFailure}
	require.ErrorIs(testInstance, executionError, runnerFailure)
	require.Contains(testInstance, executionError.Error(), "git remote get-url origin could not be executed")
}
