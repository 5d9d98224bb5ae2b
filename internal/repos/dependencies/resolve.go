package dependencies

import (
	"context"
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/execshell"
	"github.com/temirov/subkeep/internal/gitrepo"
	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
	"github.com/temirov/subkeep/internal/repos/shared"
	"github.com/temirov/subkeep/internal/utils"
	pathutils "github.com/temirov/subkeep/internal/utils/path"
)

var workingTreeRootExpander = pathutils.NewHomeExpander()

// ResolveLogger returns the provided logger or a no-op logger.
func ResolveLogger(existing *zap.Logger) *zap.Logger {
	if existing != nil {
		return existing
	}
	return zap.NewNop()
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing afero.Fs) afero.Fs {
	if existing != nil {
		return existing
	}
	return afero.NewOsFs()
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
func ResolveGitExecutor(existing shared.GitExecutor, logger *zap.Logger, observer execshell.CommandEventObserver) (shared.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutorWithObserver(ResolveLogger(logger), commandRunner, observer)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveGitRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveGitRepositoryManager(existing shared.GitRepositoryManager, executor shared.GitExecutor) (shared.GitRepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}

// ResolveLocator builds a repository locator over fileSystem using the configured prune patterns.
func ResolveLocator(fileSystem afero.Fs, configuration discovery.Configuration) (*discovery.Locator, error) {
	return discovery.NewLocator(ResolveFileSystem(fileSystem), configuration.Sanitize().Exclude)
}

// ResolveRegistryStore builds the registry store for workingTreeRoot.
func ResolveRegistryStore(fileSystem afero.Fs, configuration registry.Configuration, workingTreeRoot string) (*registry.Store, error) {
	return registry.NewStore(ResolveFileSystem(fileSystem), configuration.ResolveFilePath(workingTreeRoot))
}

// ResolveWorkingTreeRoot prefers the --root value carried by the command context,
// then the configured root. The result is home-expanded and cleaned.
func ResolveWorkingTreeRoot(executionContext context.Context, configuration registry.Configuration) string {
	configuredRoot := configuration.Sanitize().Root
	if executionContext != nil {
		if contextRoot, found := utils.NewCommandContextAccessor().WorkingTreeRoot(executionContext); found {
			return workingTreeRootExpander.ExpandRoot(contextRoot, configuredRoot)
		}
	}
	return workingTreeRootExpander.ExpandRoot(configuredRoot, configuredRoot)
}

// ResolveClock returns the provided clock or the system clock.
func ResolveClock(existing shared.Clock) shared.Clock {
	if existing != nil {
		return existing
	}
	return shared.SystemClock{}
}

// ResolveReporter returns the provided reporter or a color reporter over a flushing writer.
func ResolveReporter(existing shared.Reporter, writer io.Writer) shared.Reporter {
	if existing != nil {
		return existing
	}
	return shared.NewColorReporter(utils.NewFlushingWriter(writer))
}
