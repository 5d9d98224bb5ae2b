package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/shared"
)

// StandardOutputPathConstant selects stdout as the dashboard destination.
const StandardOutputPathConstant = "-"

const (
	statusUnavailableMessageTemplate = "Could not read submodule status: %v\n"
	dashboardUpdatedMessageTemplate  = "Dashboard updated at %s\n"
	locateErrorTemplate              = "unable to locate repositories: %w"
	writeErrorTemplate               = "unable to write dashboard %s: %w"
	outputDirectoryPermissions       = 0o755
	outputFilePermissions            = 0o644
	logFieldPathConstant             = "path"
	logFieldCountConstant            = "count"
	statusUnavailableLogMessage      = "submodule status unavailable"
	dashboardWrittenLogMessage       = "dashboard written"
)

// ErrSubmoduleStatusReaderNotConfigured indicates the service cannot list registered submodules.
var ErrSubmoduleStatusReaderNotConfigured = errors.New("submodule status reader not configured")

// RepositoryLocator yields repository roots relative to a walk root.
type RepositoryLocator interface {
	Repositories(root string) iter.Seq2[string, error]
}

// RegistryLoader reads the registry snapshot.
type RegistryLoader interface {
	Load() (registry.Snapshot, error)
}

// Dependencies are the collaborators a Service needs.
type Dependencies struct {
	Locator    RepositoryLocator
	Statuses   shared.SubmoduleStatusReader
	Revisions  shared.RevisionReader
	FileSystem afero.Fs
	Clock      shared.Clock
	Reporter   shared.Reporter
	Logger     *zap.Logger
}

// Service collects, enriches, and renders the dashboard.
type Service struct {
	locator    RepositoryLocator
	statuses   shared.SubmoduleStatusReader
	enricher   *Enricher
	fileSystem afero.Fs
	clock      shared.Clock
	reporter   shared.Reporter
	logger     *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Statuses == nil {
		return nil, ErrSubmoduleStatusReaderNotConfigured
	}

	service := &Service{
		locator:    dependencies.Locator,
		statuses:   dependencies.Statuses,
		fileSystem: dependencies.FileSystem,
		clock:      dependencies.Clock,
		reporter:   dependencies.Reporter,
		logger:     dependencies.Logger,
	}
	if service.fileSystem == nil {
		service.fileSystem = afero.NewOsFs()
	}
	if service.clock == nil {
		service.clock = shared.SystemClock{}
	}
	if service.reporter == nil {
		service.reporter = shared.NewWriterReporter(nil)
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	service.enricher = NewEnricher(service.fileSystem, dependencies.Revisions)
	return service, nil
}

// GenerateOptions configures one dashboard run.
type GenerateOptions struct {
	WorkingTreeRoot string
	Registry        RegistryLoader
	Report          ReportConfiguration
}

// Collect gathers registered and embedded repositories, de-duplicated by path,
// with categories, descriptions, and revisions filled in.
func (service *Service) Collect(executionContext context.Context, options GenerateOptions) ([]Repository, error) {
	registered := service.registeredRepositories(executionContext, options)

	var embedded []Repository
	if service.locator != nil {
		for repositoryPath, locateError := range service.locator.Repositories(options.WorkingTreeRoot) {
			if locateError != nil {
				return nil, fmt.Errorf(locateErrorTemplate, locateError)
			}
			embedded = append(embedded, Repository{Path: repositoryPath})
		}
	}

	aggregator := NewAggregator(options.Report)
	repositories := Merge(registered, embedded)
	for index := range repositories {
		repository := &repositories[index]
		repositoryRoot := filepath.Join(options.WorkingTreeRoot, filepath.FromSlash(repository.Path))
		if len(repository.Revision) == 0 {
			repository.Revision = service.enricher.Revision(executionContext, repositoryRoot)
		}
		repository.Category = aggregator.Category(repository.Path)
		repository.Description = service.enricher.Describe(repositoryRoot)
	}
	return repositories, nil
}

// Build assembles the report without writing it.
func (service *Service) Build(executionContext context.Context, options GenerateOptions) (Report, error) {
	repositories, collectError := service.Collect(executionContext, options)
	if collectError != nil {
		return Report{}, collectError
	}

	return Report{
		GeneratedAt:     service.clock.Now(),
		Project:         options.Report.Project,
		Container:       options.Report.Container,
		CoreDirectories: SortedKeys(options.Report.CoreDirectories),
		Sections:        NewAggregator(options.Report).Sections(repositories),
	}, nil
}

// Generate builds the report and writes it to outputPath. An outputPath of "-"
// writes to stdout instead.
func (service *Service) Generate(executionContext context.Context, options GenerateOptions, outputPath string, stdout io.Writer) (Report, error) {
	report, buildError := service.Build(executionContext, options)
	if buildError != nil {
		return Report{}, buildError
	}

	var rendered bytes.Buffer
	if renderError := Render(&rendered, report); renderError != nil {
		return Report{}, renderError
	}

	if outputPath == StandardOutputPathConstant {
		if _, writeError := stdout.Write(rendered.Bytes()); writeError != nil {
			return Report{}, fmt.Errorf(writeErrorTemplate, outputPath, writeError)
		}
		return report, nil
	}

	if directoryError := service.fileSystem.MkdirAll(filepath.Dir(outputPath), outputDirectoryPermissions); directoryError != nil {
		return Report{}, fmt.Errorf(writeErrorTemplate, outputPath, directoryError)
	}
	if writeError := afero.WriteFile(service.fileSystem, outputPath, rendered.Bytes(), outputFilePermissions); writeError != nil {
		return Report{}, fmt.Errorf(writeErrorTemplate, outputPath, writeError)
	}

	service.logger.Info(dashboardWrittenLogMessage, zap.String(logFieldPathConstant, outputPath), zap.Int(logFieldCountConstant, countRows(report)))
	service.reporter.Printf(dashboardUpdatedMessageTemplate, outputPath)
	return report, nil
}

// registeredRepositories merges submodule status with registry declarations
// that status did not report. Status failures are reported and treated as empty.
// Declarations missing from status have no recorded commit and keep the unknown revision.
func (service *Service) registeredRepositories(executionContext context.Context, options GenerateOptions) []Repository {
	var repositories []Repository
	seen := make(map[string]struct{})

	statuses, statusError := service.statuses.SubmoduleStatus(executionContext, options.WorkingTreeRoot)
	if statusError != nil {
		service.logger.Debug(statusUnavailableLogMessage, zap.Error(statusError))
		service.reporter.Printf(statusUnavailableMessageTemplate, statusError)
	}
	for _, status := range statuses {
		normalizedPath := registry.NormalizePath(status.Path)
		if len(normalizedPath) == 0 {
			continue
		}
		if _, duplicate := seen[normalizedPath]; duplicate {
			continue
		}
		seen[normalizedPath] = struct{}{}
		repositories = append(repositories, Repository{
			Path:       normalizedPath,
			Registered: true,
			Revision:   status.Commit,
		})
	}

	if options.Registry == nil {
		return repositories
	}
	snapshot, loadError := options.Registry.Load()
	if loadError != nil {
		service.logger.Debug(statusUnavailableLogMessage, zap.Error(loadError))
		return repositories
	}
	for _, entry := range snapshot.Entries() {
		if _, alreadyReported := seen[entry.Path]; alreadyReported {
			continue
		}
		seen[entry.Path] = struct{}{}
		repositories = append(repositories, Repository{
			Path:       entry.Path,
			Registered: true,
			Revision:   shared.UnknownRevisionConstant,
		})
	}
	return repositories
}

func countRows(report Report) int {
	total := 0
	for _, section := range report.Sections {
		total += len(section.Rows)
	}
	return total
}
