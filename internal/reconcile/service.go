package reconcile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	foundMissingMessageTemplate      = "Found %d missing submodules.\n"
	restoringMessageTemplate         = "Restoring: %s\n"
	planRestoreMessageTemplate       = "PLAN-RESTORE: %s -> %s\n"
	noMissingMessageConstant         = "No missing submodules found in directory tree.\n"
	remoteMissingMessageTemplate     = "Could not find remote for %s\n"
	directoryNotFoundMessageTemplate = "Directory not found: %s\n"
	noRemoteFoundMessageTemplate     = "No remote found for: %s\n"
	restoringCountMessageTemplate    = "Restoring %d submodules...\n"
	noNewSubmodulesMessageConstant   = "No new submodules to restore.\n"
	doneMessageConstant              = "Done.\n"
	removingLinkMessageTemplate      = "Removing stale index link: %s\n"
	planPruneMessageTemplate         = "PLAN-PRUNE: %s\n"
	removeFailedMessageTemplate      = "Failed to remove index link %s: %v\n"
	removedCountMessageTemplate      = "Removed %d stale index links.\n"
	noStaleLinksMessageConstant      = "No stale index links found.\n"
	expectedListReadErrorTemplate    = "unable to read expected list %s: %w"
	expectedListMissingErrorTemplate = "%w: %s"
	locateErrorTemplate              = "unable to locate repositories: %w"
	indexLinksErrorTemplate          = "unable to list index links: %w"
	logFieldPathConstant             = "path"
	logFieldRemoteConstant           = "remote"
	logFieldCountConstant            = "count"
	unresolvedRemoteLogMessage       = "repository has no resolvable origin"
	stagedAdditionLogMessage         = "staged registry addition"
	registryAppendedLogMessage       = "registry appended"
	indexLinkRemovalFailedLogMessage = "index link removal failed"
	declaredPathSkippedLogMessage    = "path already declared"
)

// ErrExpectedListMissing indicates the expected submodule list file does not exist.
var ErrExpectedListMissing = errors.New("expected submodule list not found")

// ErrLocatorNotConfigured indicates the service cannot walk the directory tree.
var ErrLocatorNotConfigured = errors.New("repository locator not configured")

// ErrRemoteResolverNotConfigured indicates the service cannot resolve origins.
var ErrRemoteResolverNotConfigured = errors.New("remote resolver not configured")

// ErrIndexLinkManagerNotConfigured indicates the service cannot inspect the index.
var ErrIndexLinkManagerNotConfigured = errors.New("index link manager not configured")

// RepositoryLocator yields repository roots relative to a walk root.
type RepositoryLocator interface {
	Repositories(root string) iter.Seq2[string, error]
}

// RegistryStore reads and appends the registry file.
type RegistryStore interface {
	Load() (registry.Snapshot, error)
	LoadRequired() (registry.Snapshot, error)
	Append(snapshot registry.Snapshot, additions []registry.Addition) ([]registry.Addition, error)
	FilePath() string
}

// Dependencies are the collaborators a Service needs.
type Dependencies struct {
	Locator    RepositoryLocator
	Remotes    shared.RemoteResolver
	IndexLinks shared.IndexLinkManager
	FileSystem afero.Fs
	Reporter   shared.Reporter
	Logger     *zap.Logger
}

// Service runs the reconcile workflows.
type Service struct {
	locator    RepositoryLocator
	remotes    shared.RemoteResolver
	indexLinks shared.IndexLinkManager
	fileSystem afero.Fs
	reporter   shared.Reporter
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Locator == nil {
		return nil, ErrLocatorNotConfigured
	}
	if dependencies.Remotes == nil {
		return nil, ErrRemoteResolverNotConfigured
	}
	if dependencies.IndexLinks == nil {
		return nil, ErrIndexLinkManagerNotConfigured
	}

	service := &Service{
		locator:    dependencies.Locator,
		remotes:    dependencies.Remotes,
		indexLinks: dependencies.IndexLinks,
		fileSystem: dependencies.FileSystem,
		reporter:   dependencies.Reporter,
		logger:     dependencies.Logger,
	}
	if service.fileSystem == nil {
		service.fileSystem = afero.NewOsFs()
	}
	if service.reporter == nil {
		service.reporter = shared.NewWriterReporter(nil)
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// RestoreOptions configures a forward sync from the directory tree.
type RestoreOptions struct {
	WorkingTreeRoot string
	Registry        RegistryStore
	Mode            shared.ExecutionMode
}

// RestoreListOptions configures a forward sync from an explicit path list.
type RestoreListOptions struct {
	WorkingTreeRoot  string
	Registry         RegistryStore
	ExpectedListPath string
	Mode             shared.ExecutionMode
}

// RestoreResult lists what a forward sync wrote or would write.
type RestoreResult struct {
	Additions []registry.Addition
	Skipped   []string
}

// PruneOptions configures a reverse sync.
type PruneOptions struct {
	WorkingTreeRoot string
	Registry        RegistryStore
	Mode            shared.ExecutionMode
}

// PruneResult lists the index links that were removed and the ones that could not be.
type PruneResult struct {
	Removed []string
	Failed  []string
}

// Restore declares every located repository that the registry does not know
// about and whose origin resolves. Staged additions are flushed in one append.
func (service *Service) Restore(executionContext context.Context, options RestoreOptions) (RestoreResult, error) {
	snapshot, loadError := loadRegistry(options.Registry, shared.RegistryOptional)
	if loadError != nil {
		return RestoreResult{}, loadError
	}

	var candidates []registry.Addition
	var skipped []string
	for repositoryPath, locateError := range service.locator.Repositories(options.WorkingTreeRoot) {
		if locateError != nil {
			return RestoreResult{}, fmt.Errorf(locateErrorTemplate, locateError)
		}
		if snapshot.Contains(repositoryPath) {
			service.logger.Debug(declaredPathSkippedLogMessage, zap.String(logFieldPathConstant, repositoryPath))
			continue
		}

		remoteURL, resolved := service.remotes.ResolveOriginURL(executionContext, joinRelative(options.WorkingTreeRoot, repositoryPath))
		if !resolved {
			service.logger.Debug(unresolvedRemoteLogMessage, zap.String(logFieldPathConstant, repositoryPath))
			service.reporter.Printf(remoteMissingMessageTemplate, repositoryPath)
			skipped = append(skipped, repositoryPath)
			continue
		}
		service.logger.Debug(stagedAdditionLogMessage, zap.String(logFieldPathConstant, repositoryPath), zap.String(logFieldRemoteConstant, remoteURL))
		candidates = append(candidates, registry.Addition{Path: repositoryPath, URL: remoteURL})
	}

	planned := registry.Plan(snapshot, candidates)
	if len(planned) == 0 {
		service.reporter.Printf(noMissingMessageConstant)
		return RestoreResult{Skipped: skipped}, nil
	}

	service.reporter.Printf(foundMissingMessageTemplate, len(planned))
	for _, addition := range planned {
		if options.Mode.ShouldApply() {
			service.reporter.Printf(restoringMessageTemplate, addition.Path)
		} else {
			service.reporter.Printf(planRestoreMessageTemplate, addition.Path, addition.URL)
		}
	}

	return service.flush(options.Registry, snapshot, planned, skipped, options.Mode)
}

// RestoreFromList declares the expected paths that exist on disk, resolve an
// origin, and are not yet declared. A missing list file is fatal.
func (service *Service) RestoreFromList(executionContext context.Context, options RestoreListOptions) (RestoreResult, error) {
	expectedPaths, readError := service.readExpectedList(options.ExpectedListPath)
	if readError != nil {
		return RestoreResult{}, readError
	}

	snapshot, loadError := loadRegistry(options.Registry, shared.RegistryOptional)
	if loadError != nil {
		return RestoreResult{}, loadError
	}

	var candidates []registry.Addition
	var skipped []string
	for _, expectedPath := range expectedPaths {
		if snapshot.Contains(expectedPath) {
			continue
		}

		absolutePath := joinRelative(options.WorkingTreeRoot, expectedPath)
		if info, statError := service.fileSystem.Stat(absolutePath); statError != nil || !info.IsDir() {
			service.reporter.Printf(directoryNotFoundMessageTemplate, expectedPath)
			skipped = append(skipped, expectedPath)
			continue
		}

		remoteURL, resolved := service.remotes.ResolveOriginURL(executionContext, absolutePath)
		if !resolved {
			service.reporter.Printf(noRemoteFoundMessageTemplate, expectedPath)
			skipped = append(skipped, expectedPath)
			continue
		}
		candidates = append(candidates, registry.Addition{Path: expectedPath, URL: remoteURL})
	}

	planned := registry.Plan(snapshot, candidates)
	if len(planned) == 0 {
		service.reporter.Printf(noNewSubmodulesMessageConstant)
		return RestoreResult{Skipped: skipped}, nil
	}

	service.reporter.Printf(restoringCountMessageTemplate, len(planned))
	if !options.Mode.ShouldApply() {
		for _, addition := range planned {
			service.reporter.Printf(planRestoreMessageTemplate, addition.Path, addition.URL)
		}
	}

	result, flushError := service.flush(options.Registry, snapshot, planned, skipped, options.Mode)
	if flushError != nil {
		return RestoreResult{}, flushError
	}
	if options.Mode.ShouldApply() {
		service.reporter.Printf(doneMessageConstant)
	}
	return result, nil
}

// Prune removes index links the registry does not declare. The registry file
// must exist and is never modified.
func (service *Service) Prune(executionContext context.Context, options PruneOptions) (PruneResult, error) {
	snapshot, loadError := loadRegistry(options.Registry, shared.RegistryRequired)
	if loadError != nil {
		return PruneResult{}, loadError
	}

	links, linksError := service.indexLinks.IndexLinks(executionContext, options.WorkingTreeRoot)
	if linksError != nil {
		return PruneResult{}, fmt.Errorf(indexLinksErrorTemplate, linksError)
	}

	var stale []string
	for _, link := range links {
		if snapshot.Contains(link) {
			continue
		}
		stale = append(stale, link)
	}

	if len(stale) == 0 {
		service.reporter.Printf(noStaleLinksMessageConstant)
		return PruneResult{}, nil
	}

	var result PruneResult
	for _, link := range stale {
		if !options.Mode.ShouldApply() {
			service.reporter.Printf(planPruneMessageTemplate, link)
			continue
		}

		service.reporter.Printf(removingLinkMessageTemplate, link)
		if removeError := service.indexLinks.RemoveIndexLink(executionContext, options.WorkingTreeRoot, link); removeError != nil {
			service.logger.Debug(indexLinkRemovalFailedLogMessage, zap.String(logFieldPathConstant, link), zap.Error(removeError))
			service.reporter.Printf(removeFailedMessageTemplate, link, removeError)
			result.Failed = append(result.Failed, link)
			continue
		}
		result.Removed = append(result.Removed, link)
	}

	if options.Mode.ShouldApply() {
		service.reporter.Printf(removedCountMessageTemplate, len(result.Removed))
	}
	return result, nil
}

func (service *Service) flush(store RegistryStore, snapshot registry.Snapshot, planned []registry.Addition, skipped []string, mode shared.ExecutionMode) (RestoreResult, error) {
	if !mode.ShouldApply() {
		return RestoreResult{Additions: planned, Skipped: skipped}, nil
	}

	written, appendError := store.Append(snapshot, planned)
	if appendError != nil {
		return RestoreResult{}, appendError
	}
	service.logger.Info(registryAppendedLogMessage, zap.String(logFieldPathConstant, store.FilePath()), zap.Int(logFieldCountConstant, len(written)))
	return RestoreResult{Additions: written, Skipped: skipped}, nil
}

func (service *Service) readExpectedList(listPath string) ([]string, error) {
	file, openError := service.fileSystem.Open(listPath)
	if openError != nil {
		if os.IsNotExist(openError) {
			return nil, fmt.Errorf(expectedListMissingErrorTemplate, ErrExpectedListMissing, listPath)
		}
		return nil, fmt.Errorf(expectedListReadErrorTemplate, listPath, openError)
	}
	defer file.Close()

	var expectedPaths []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		normalizedPath := registry.NormalizePath(scanner.Text())
		if len(normalizedPath) == 0 {
			continue
		}
		expectedPaths = append(expectedPaths, normalizedPath)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(expectedListReadErrorTemplate, listPath, scanError)
	}
	return expectedPaths, nil
}

func loadRegistry(store RegistryStore, requirement shared.RegistryRequirement) (registry.Snapshot, error) {
	if requirement.Required() {
		return store.LoadRequired()
	}
	return store.Load()
}

func joinRelative(workingTreeRoot string, relativePath string) string {
	return filepath.Join(workingTreeRoot, filepath.FromSlash(strings.TrimSpace(relativePath)))
}
