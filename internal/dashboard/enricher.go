package dashboard

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	descriptionScanLineLimitConstant = 10
	descriptionMinimumRunesConstant  = 10
	descriptionMaximumRunesConstant  = 100
	descriptionEllipsisConstant      = "..."
	descriptionHeadingPrefixConstant = "#"
	noDescriptionFoundConstant       = "No description found"
	noReadmeFoundConstant            = "No README found"
)

var readmeCandidateNames = []string{"README.md", "readme.md", "README.txt", "ReadMe.md"}

// Enricher derives descriptions and revisions for repositories. It never fails;
// missing data is reported through sentinel strings.
type Enricher struct {
	fileSystem afero.Fs
	revisions  shared.RevisionReader
}

// NewEnricher constructs an Enricher. A nil revision reader reports every revision as unknown.
func NewEnricher(fileSystem afero.Fs, revisions shared.RevisionReader) *Enricher {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	return &Enricher{fileSystem: fileSystem, revisions: revisions}
}

// Describe returns the first qualifying README line of the repository at repositoryRoot.
func (enricher *Enricher) Describe(repositoryRoot string) string {
	for _, candidateName := range readmeCandidateNames {
		candidatePath := filepath.Join(repositoryRoot, candidateName)
		info, statError := enricher.fileSystem.Stat(candidatePath)
		if statError != nil || info.IsDir() {
			continue
		}

		description, readError := enricher.firstQualifyingLine(candidatePath)
		if readError != nil {
			continue
		}
		if len(description) == 0 {
			return noDescriptionFoundConstant
		}
		return description
	}
	return noReadmeFoundConstant
}

// Revision returns the short HEAD revision of the repository at repositoryRoot.
func (enricher *Enricher) Revision(executionContext context.Context, repositoryRoot string) string {
	if enricher.revisions == nil {
		return shared.UnknownRevisionConstant
	}
	revision, found := enricher.revisions.ShortRevision(executionContext, repositoryRoot)
	if !found {
		return shared.UnknownRevisionConstant
	}
	return revision
}

func (enricher *Enricher) firstQualifyingLine(readmePath string) (string, error) {
	file, openError := enricher.fileSystem.Open(readmePath)
	if openError != nil {
		return "", openError
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for lineIndex := 0; lineIndex < descriptionScanLineLimitConstant && scanner.Scan(); lineIndex++ {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, descriptionHeadingPrefixConstant) {
			continue
		}
		if utf8.RuneCountInString(line) <= descriptionMinimumRunesConstant {
			continue
		}
		return truncateDescription(line), nil
	}
	return "", scanner.Err()
}

func truncateDescription(line string) string {
	runes := []rune(line)
	if len(runes) <= descriptionMaximumRunesConstant {
		return line
	}
	return string(runes[:descriptionMaximumRunesConstant]) + descriptionEllipsisConstant
}
