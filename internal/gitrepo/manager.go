package gitrepo

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/subkeep/internal/execshell"
	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	gitRemoteSubcommandConstant        = "remote"
	gitGetURLSubcommandConstant        = "get-url"
	gitRevParseSubcommandConstant      = "rev-parse"
	gitShortFlagConstant               = "--short"
	gitHeadReferenceConstant           = "HEAD"
	gitSubmoduleSubcommandConstant     = "submodule"
	gitStatusActionConstant            = "status"
	gitAddActionConstant               = "add"
	gitRecursiveFlagConstant           = "--recursive"
	gitLSFilesSubcommandConstant       = "ls-files"
	gitStageFlagConstant               = "--stage"
	gitNullTerminatedFlagConstant      = "-z"
	gitRemoveSubcommandConstant        = "rm"
	gitCachedFlagConstant              = "--cached"
	gitQuietFlagConstant               = "-q"
	gitArgumentTerminatorConstant      = "--"
	gitlinkModeConstant                = "160000"
	indexEntryPathSeparatorConstant    = "\t"
	indexRecordSeparatorConstant       = "\x00"
	describeSeparatorConstant          = " "
	submoduleStatePrefixesConstant     = "-+U "
	describeOpenDelimiterConstant      = "("
	describeCloseDelimiterConstant     = ")"
	requiredValueMessageConstant       = "value required"
	submoduleStatusErrorTemplate       = "unable to read submodule status in %s: %w"
	indexListErrorTemplate             = "unable to list index links in %s: %w"
	indexRemoveErrorTemplate           = "unable to remove index link %s: %w"
	submoduleAddErrorTemplate          = "unable to add submodule %s at %s: %w"
	alreadyExistsStandardErrorFragment = "already exists"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New("git executor not configured")

// ErrRepositoryPathRequired indicates an operation was invoked without a repository path.
var ErrRepositoryPathRequired = errors.New("repository path required")

// ErrRemoteNameRequired indicates a remote lookup was invoked without a remote name.
var ErrRemoteNameRequired = errors.New("remote name required")

// ErrRemoteURLEmpty indicates git printed nothing for a remote lookup.
var ErrRemoteURLEmpty = errors.New("remote url empty")

// ErrSubmoduleAlreadyExists indicates git refused to add a submodule because the path is taken.
var ErrSubmoduleAlreadyExists = errors.New("submodule already exists")

// RepositoryManager runs git commands against repositories on disk.
type RepositoryManager struct {
	executor shared.GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager around executor.
func NewRepositoryManager(executor shared.GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// GetRemoteURL returns the URL configured for remoteName in repositoryPath.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return "", ErrRepositoryPathRequired
	}
	if len(strings.TrimSpace(remoteName)) == 0 {
		return "", ErrRemoteNameRequired
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitGetURLSubcommandConstant, remoteName},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", executionError
	}

	remoteURL := strings.TrimSpace(result.StandardOutput)
	if len(remoteURL) == 0 {
		return "", ErrRemoteURLEmpty
	}
	return remoteURL, nil
}

// ResolveOriginURL implements shared.RemoteResolver. Every failure is reported as absent.
func (manager *RepositoryManager) ResolveOriginURL(executionContext context.Context, repositoryPath string) (string, bool) {
	remoteURL, lookupError := manager.GetRemoteURL(executionContext, repositoryPath, shared.OriginRemoteNameConstant)
	if lookupError != nil {
		return "", false
	}
	return remoteURL, true
}

// ShortRevision implements shared.RevisionReader.
func (manager *RepositoryManager) ShortRevision(executionContext context.Context, repositoryPath string) (string, bool) {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return "", false
	}

	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitShortFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	})
	if executionError != nil {
		return "", false
	}

	revision := strings.TrimSpace(result.StandardOutput)
	return revision, len(revision) > 0
}

// SubmoduleStatus implements shared.SubmoduleStatusReader using git submodule status --recursive.
func (manager *RepositoryManager) SubmoduleStatus(executionContext context.Context, workingTreeRoot string) ([]shared.SubmoduleStatus, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitSubmoduleSubcommandConstant, gitStatusActionConstant, gitRecursiveFlagConstant},
		WorkingDirectory: workingTreeRoot,
	})
	if executionError != nil {
		return nil, fmt.Errorf(submoduleStatusErrorTemplate, workingTreeRoot, executionError)
	}
	return ParseSubmoduleStatus(result.StandardOutput), nil
}

// IndexLinks implements shared.IndexLinkManager by filtering git ls-files -z --stage to gitlink entries.
func (manager *RepositoryManager) IndexLinks(executionContext context.Context, workingTreeRoot string) ([]string, error) {
	result, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitLSFilesSubcommandConstant, gitNullTerminatedFlagConstant, gitStageFlagConstant},
		WorkingDirectory: workingTreeRoot,
	})
	if executionError != nil {
		return nil, fmt.Errorf(indexListErrorTemplate, workingTreeRoot, executionError)
	}
	return ParseIndexLinks(result.StandardOutput), nil
}

// RemoveIndexLink implements shared.IndexLinkManager with git rm --cached.
func (manager *RepositoryManager) RemoveIndexLink(executionContext context.Context, workingTreeRoot string, linkPath string) error {
	if len(strings.TrimSpace(linkPath)) == 0 {
		return ErrRepositoryPathRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRemoveSubcommandConstant, gitCachedFlagConstant, gitQuietFlagConstant, gitArgumentTerminatorConstant, linkPath},
		WorkingDirectory: workingTreeRoot,
	})
	if executionError != nil {
		return fmt.Errorf(indexRemoveErrorTemplate, linkPath, executionError)
	}
	return nil
}

// AddSubmodule implements shared.SubmoduleAdder. When git reports the path as
// taken the returned error wraps ErrSubmoduleAlreadyExists.
func (manager *RepositoryManager) AddSubmodule(executionContext context.Context, workingTreeRoot string, remoteURL string, submodulePath string) error {
	if len(strings.TrimSpace(submodulePath)) == 0 {
		return ErrRepositoryPathRequired
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitSubmoduleSubcommandConstant, gitAddActionConstant, remoteURL, submodulePath},
		WorkingDirectory: workingTreeRoot,
	})
	if executionError == nil {
		return nil
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) && strings.Contains(failedError.Result.StandardError, alreadyExistsStandardErrorFragment) {
		return fmt.Errorf(submoduleAddErrorTemplate, remoteURL, submodulePath, errors.Join(ErrSubmoduleAlreadyExists, executionError))
	}
	return fmt.Errorf(submoduleAddErrorTemplate, remoteURL, submodulePath, executionError)
}

// ParseSubmoduleStatus parses git submodule status output.
// Each line is "<state><commit> <path>[ (<describe>)]"; the state and describe are dropped.
func ParseSubmoduleStatus(output string) []shared.SubmoduleStatus {
	var statuses []shared.SubmoduleStatus
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}

		if strings.ContainsRune(submoduleStatePrefixesConstant, rune(line[0])) {
			line = line[1:]
		}
		commit, remainder, found := strings.Cut(strings.TrimLeft(line, describeSeparatorConstant), describeSeparatorConstant)
		if !found || len(commit) == 0 {
			continue
		}
		status := shared.SubmoduleStatus{Commit: commit, Path: remainder}
		if strings.HasSuffix(remainder, describeCloseDelimiterConstant) {
			if openIndex := strings.LastIndex(remainder, describeSeparatorConstant+describeOpenDelimiterConstant); openIndex > 0 {
				status.Path = remainder[:openIndex]
			}
		}
		if len(status.Path) == 0 {
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// ParseIndexLinks extracts the paths of mode 160000 entries from git ls-files -z --stage output.
// Records are NUL-terminated and paths are unquoted.
func ParseIndexLinks(output string) []string {
	var links []string
	for _, record := range strings.Split(output, indexRecordSeparatorConstant) {
		metadata, entryPath, found := strings.Cut(record, indexEntryPathSeparatorConstant)
		if !found || len(entryPath) == 0 {
			continue
		}
		fields := strings.Fields(metadata)
		if len(fields) == 0 || fields[0] != gitlinkModeConstant {
			continue
		}
		links = append(links, entryPath)
	}
	return links
}
