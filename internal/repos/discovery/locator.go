// Package discovery finds repository roots inside a working tree.
package discovery

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	invalidExcludePatternTemplateConstant = "invalid exclude pattern %q"
	walkRootErrorTemplateConstant         = "unable to walk %s: %w"
	currentDirectoryRelativePathConstant  = "."
)

// ErrFileSystemNotConfigured indicates the locator was constructed without a filesystem.
var ErrFileSystemNotConfigured = errors.New("locator filesystem not configured")

var errStopWalk = errors.New("stop walk")

// Locator walks a working tree and yields the roots of nested repositories.
//
// A directory is a repository root when it holds a .git entry, either a
// directory or a gitlink file. Roots are yielded relative to the walk root
// with forward slashes, and the walk never descends into a root it yielded.
// The walk root itself is never yielded. Symbolic links are not followed.
type Locator struct {
	fileSystem      afero.Fs
	excludePatterns []string
}

// NewLocator constructs a Locator. Directories whose relative path matches one
// of the doublestar excludePatterns are pruned before they are inspected.
func NewLocator(fileSystem afero.Fs, excludePatterns []string) (*Locator, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	normalizedPatterns := make([]string, 0, len(excludePatterns))
	for _, pattern := range excludePatterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 {
			continue
		}
		if !doublestar.ValidatePattern(trimmedPattern) {
			return nil, fmt.Errorf(invalidExcludePatternTemplateConstant, trimmedPattern)
		}
		normalizedPatterns = append(normalizedPatterns, trimmedPattern)
	}

	return &Locator{fileSystem: fileSystem, excludePatterns: normalizedPatterns}, nil
}

// Repositories returns a lazy sequence of repository roots under root. The
// sequence can be ranged over repeatedly; each range performs a fresh walk.
// An error is yielded only when root itself cannot be walked.
func (locator *Locator) Repositories(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cleanedRoot := filepath.Clean(root)
		walkError := afero.Walk(locator.fileSystem, cleanedRoot, func(currentPath string, info os.FileInfo, visitError error) error {
			if visitError != nil {
				if currentPath == cleanedRoot {
					return visitError
				}
				return nil
			}
			if !info.IsDir() {
				return nil
			}
			if currentPath == cleanedRoot {
				return nil
			}
			if info.Name() == shared.GitMetadataEntryNameConstant {
				return filepath.SkipDir
			}

			relativePath, relativeError := filepath.Rel(cleanedRoot, currentPath)
			if relativeError != nil {
				return nil
			}
			relativePath = filepath.ToSlash(relativePath)

			if locator.excluded(relativePath) {
				return filepath.SkipDir
			}
			if !locator.isRepositoryRoot(currentPath) {
				return nil
			}
			if !yield(relativePath, nil) {
				return errStopWalk
			}
			return filepath.SkipDir
		})

		if walkError != nil && !errors.Is(walkError, errStopWalk) {
			yield("", fmt.Errorf(walkRootErrorTemplateConstant, cleanedRoot, walkError))
		}
	}
}

func (locator *Locator) isRepositoryRoot(directoryPath string) bool {
	_, statError := locator.fileSystem.Stat(filepath.Join(directoryPath, shared.GitMetadataEntryNameConstant))
	return statError == nil
}

func (locator *Locator) excluded(relativePath string) bool {
	if relativePath == currentDirectoryRelativePathConstant {
		return false
	}
	for _, pattern := range locator.excludePatterns {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
	}
	return false
}
