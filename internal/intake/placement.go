package intake

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/temirov/subkeep/internal/gitrepo"
	"github.com/temirov/subkeep/internal/registry"
)

const ownerSuffixSeparatorConstant = "-"

// PlacementDecision describes where a repository should be added.
type PlacementDecision int

const (
	// PlacementAdd means Path is free and the submodule should be added there.
	PlacementAdd PlacementDecision = iota
	// PlacementDeclared means the repository is already declared at Path.
	PlacementDeclared
	// PlacementOccupied means every candidate path is taken by something else.
	PlacementOccupied
)

// Placement is the outcome of placing one repository.
type Placement struct {
	Decision PlacementDecision
	Path     string
}

// Placer chooses submodule paths. Candidates are <directory>/<repo> and then
// <directory>/<repo>-<owner>. A candidate is taken when a non-empty entry
// exists on disk, when the registry declares a different repository there, or
// when an earlier link in the same run claimed it.
type Placer struct {
	fileSystem      afero.Fs
	workingTreeRoot string
	declared        map[string]string
	claimed         map[string]struct{}
}

// NewPlacer constructs a Placer for one import run.
func NewPlacer(fileSystem afero.Fs, workingTreeRoot string, snapshot registry.Snapshot) *Placer {
	declared := make(map[string]string, snapshot.Len())
	for _, entry := range snapshot.Entries() {
		declared[entry.Path] = entry.URL
	}
	return &Placer{
		fileSystem:      fileSystem,
		workingTreeRoot: workingTreeRoot,
		declared:        declared,
		claimed:         make(map[string]struct{}),
	}
}

// Place picks the path for remote under directory and records the claim.
func (placer *Placer) Place(directory string, remote gitrepo.RemoteURL) Placement {
	candidates := []string{
		path.Join(directory, remote.Repository),
		path.Join(directory, remote.Repository+ownerSuffixSeparatorConstant+remote.Owner),
	}

	for _, candidate := range candidates {
		if declaredURL, declared := placer.declared[candidate]; declared {
			if sameRepository(declaredURL, remote) {
				return Placement{Decision: PlacementDeclared, Path: candidate}
			}
			continue
		}
		if _, claimed := placer.claimed[candidate]; claimed {
			continue
		}
		if placer.occupied(candidate) {
			continue
		}
		placer.claimed[candidate] = struct{}{}
		return Placement{Decision: PlacementAdd, Path: candidate}
	}
	return Placement{Decision: PlacementOccupied, Path: candidates[len(candidates)-1]}
}

func (placer *Placer) occupied(candidate string) bool {
	absolutePath := filepath.Join(placer.workingTreeRoot, filepath.FromSlash(candidate))
	info, statError := placer.fileSystem.Stat(absolutePath)
	if statError != nil {
		return !os.IsNotExist(statError)
	}
	if !info.IsDir() {
		return true
	}
	empty, emptyError := afero.IsEmpty(placer.fileSystem, absolutePath)
	if emptyError != nil {
		return true
	}
	return !empty
}

func sameRepository(declaredURL string, remote gitrepo.RemoteURL) bool {
	declaredRemote, parseError := gitrepo.ParseRemoteURL(declaredURL)
	if parseError != nil {
		return false
	}
	return strings.EqualFold(declaredRemote.Host, remote.Host) &&
		strings.EqualFold(declaredRemote.Owner, remote.Owner) &&
		strings.EqualFold(declaredRemote.Repository, remote.Repository)
}
