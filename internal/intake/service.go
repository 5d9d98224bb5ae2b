package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/gitrepo"
	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	githubHostConstant                   = "github.com"
	processingSectionMessageTemplate     = "Processing section: %s\n"
	nonGithubMessageTemplate             = "Skipping non-github URL: %s\n"
	occupiedMessageTemplate              = "Skipping %s, submodule path %s likely already exists.\n"
	addingMessageTemplate                = "Adding submodule %s to %s...\n"
	planImportMessageTemplate            = "PLAN-IMPORT: %s -> %s\n"
	successMessageTemplate               = "SUCCESS: %s\n"
	existsMessageTemplate                = "EXISTS: %s\n"
	failedMessageTemplate                = "FAILED: %s: %v\n"
	summaryMessageTemplate               = "Imported %d submodules (%d existing, %d failed, %d skipped).\n"
	successLogTemplate                   = "SUCCESS: %s -> %s\n"
	existsLogTemplate                    = "EXISTS: %s -> %s\n"
	failedLogTemplate                    = "FAILED: %s -> %s\nError: %v\n"
	linksMissingErrorTemplate            = "%w: %s"
	linksReadErrorTemplate               = "unable to read links file %s: %w"
	logFileErrorTemplate                 = "unable to write import log %s: %w"
	targetDirectoryErrorTemplate         = "unable to create directory %s: %w"
	logFieldURLConstant                  = "url"
	logFieldPathConstant                 = "path"
	declaredSkippedLogMessageConstant    = "repository already declared"
	submoduleAddedLogMessageConstant     = "submodule added"
	submoduleAddFailedLogMessageConstant = "submodule add failed"
	targetDirectoryPermissionsConstant   = 0o755
	logFilePermissionsConstant           = 0o644
)

// ErrLinksFileMissing indicates the markdown links file does not exist.
var ErrLinksFileMissing = errors.New("links file not found")

// ErrSubmoduleAdderNotConfigured indicates the service cannot add submodules.
var ErrSubmoduleAdderNotConfigured = errors.New("submodule adder not configured")

// RegistryLoader reads the registry snapshot.
type RegistryLoader interface {
	Load() (registry.Snapshot, error)
}

// Dependencies are the collaborators a Service needs.
type Dependencies struct {
	Submodules shared.SubmoduleAdder
	FileSystem afero.Fs
	Reporter   shared.Reporter
	Logger     *zap.Logger
}

// Service imports markdown links as submodules.
type Service struct {
	submodules shared.SubmoduleAdder
	fileSystem afero.Fs
	reporter   shared.Reporter
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Submodules == nil {
		return nil, ErrSubmoduleAdderNotConfigured
	}
	service := &Service{
		submodules: dependencies.Submodules,
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

// ImportOptions configures one import run.
type ImportOptions struct {
	WorkingTreeRoot string
	LinksPath       string
	LogPath         string
	Registry        RegistryLoader
	Settings        ImportConfiguration
	Mode            shared.ExecutionMode
}

// ImportResult lists the paths touched by an import run.
type ImportResult struct {
	Added    []string
	Existing []string
	Failed   []string
	Skipped  []string
}

// Import reads the links file and adds one submodule per GitHub link. Links
// whose repository is already declared are skipped without output.
func (service *Service) Import(executionContext context.Context, options ImportOptions) (ImportResult, error) {
	sections, readError := service.readChecklist(options.LinksPath)
	if readError != nil {
		return ImportResult{}, readError
	}

	snapshot, loadError := options.Registry.Load()
	if loadError != nil {
		return ImportResult{}, loadError
	}

	placer := NewPlacer(service.fileSystem, options.WorkingTreeRoot, snapshot)
	var result ImportResult
	for _, section := range sections {
		if !section.Untitled {
			service.reporter.Printf(processingSectionMessageTemplate, section.Heading)
		}
		targetDirectory := options.Settings.TargetDirectory(section.Heading)
		for _, linkURL := range section.URLs {
			if importError := service.importLink(executionContext, options, placer, targetDirectory, linkURL, &result); importError != nil {
				return result, importError
			}
		}
	}

	if options.Mode.ShouldApply() {
		service.reporter.Printf(summaryMessageTemplate, len(result.Added), len(result.Existing), len(result.Failed), len(result.Skipped))
	}
	return result, nil
}

// importLink places one link and either plans or performs its submodule add.
// Only add failures that stop the run are returned.
func (service *Service) importLink(executionContext context.Context, options ImportOptions, placer *Placer, targetDirectory string, linkURL string, result *ImportResult) error {
	remote, parseError := gitrepo.ParseRemoteURL(linkURL)
	if parseError != nil || !strings.EqualFold(remote.Host, githubHostConstant) {
		service.reporter.Printf(nonGithubMessageTemplate, linkURL)
		result.Skipped = append(result.Skipped, linkURL)
		return nil
	}

	placement := placer.Place(targetDirectory, remote)
	switch placement.Decision {
	case PlacementDeclared:
		service.logger.Debug(declaredSkippedLogMessageConstant, zap.String(logFieldURLConstant, linkURL), zap.String(logFieldPathConstant, placement.Path))
		return nil
	case PlacementOccupied:
		service.reporter.Printf(occupiedMessageTemplate, linkURL, placement.Path)
		result.Skipped = append(result.Skipped, linkURL)
		return nil
	}

	cloneURL := remote.CloneURL()
	if !options.Mode.ShouldApply() {
		service.reporter.Printf(planImportMessageTemplate, cloneURL, placement.Path)
		result.Added = append(result.Added, placement.Path)
		return nil
	}
	return service.add(executionContext, options, cloneURL, placement.Path, result)
}

func (service *Service) add(executionContext context.Context, options ImportOptions, cloneURL string, submodulePath string, result *ImportResult) error {
	parentDirectory := filepath.Dir(filepath.Join(options.WorkingTreeRoot, filepath.FromSlash(submodulePath)))
	if mkdirError := service.fileSystem.MkdirAll(parentDirectory, targetDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(targetDirectoryErrorTemplate, parentDirectory, mkdirError)
	}

	service.reporter.Printf(addingMessageTemplate, cloneURL, submodulePath)
	addError := service.submodules.AddSubmodule(executionContext, options.WorkingTreeRoot, cloneURL, submodulePath)
	switch {
	case addError == nil:
		service.logger.Info(submoduleAddedLogMessageConstant, zap.String(logFieldURLConstant, cloneURL), zap.String(logFieldPathConstant, submodulePath))
		service.reporter.Printf(successMessageTemplate, submodulePath)
		result.Added = append(result.Added, submodulePath)
		return service.appendLog(options.LogPath, fmt.Sprintf(successLogTemplate, cloneURL, submodulePath))
	case errors.Is(addError, gitrepo.ErrSubmoduleAlreadyExists):
		service.reporter.Printf(existsMessageTemplate, submodulePath)
		result.Existing = append(result.Existing, submodulePath)
		return service.appendLog(options.LogPath, fmt.Sprintf(existsLogTemplate, cloneURL, submodulePath))
	default:
		service.logger.Debug(submoduleAddFailedLogMessageConstant, zap.String(logFieldURLConstant, cloneURL), zap.Error(addError))
		service.reporter.Printf(failedMessageTemplate, submodulePath, addError)
		result.Failed = append(result.Failed, submodulePath)
		return service.appendLog(options.LogPath, fmt.Sprintf(failedLogTemplate, cloneURL, submodulePath, addError))
	}
}

func (service *Service) appendLog(logPath string, line string) error {
	if len(logPath) == 0 {
		return nil
	}
	file, openError := service.fileSystem.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(logFileErrorTemplate, logPath, openError)
	}
	defer file.Close()
	if _, writeError := file.WriteString(line); writeError != nil {
		return fmt.Errorf(logFileErrorTemplate, logPath, writeError)
	}
	return nil
}

func (service *Service) readChecklist(linksPath string) ([]Section, error) {
	file, openError := service.fileSystem.Open(linksPath)
	if openError != nil {
		if os.IsNotExist(openError) {
			return nil, fmt.Errorf(linksMissingErrorTemplate, ErrLinksFileMissing, linksPath)
		}
		return nil, fmt.Errorf(linksReadErrorTemplate, linksPath, openError)
	}
	defer file.Close()

	sections, parseError := ParseChecklist(file)
	if parseError != nil {
		return nil, fmt.Errorf(linksReadErrorTemplate, linksPath, parseError)
	}
	return sections, nil
}
