package shared

import (
	"context"
	"time"

	"github.com/temirov/subkeep/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the remote whose URL is recorded in the registry.
	OriginRemoteNameConstant = "origin"
	// GitMetadataEntryNameConstant is the marker that makes a directory a repository root.
	GitMetadataEntryNameConstant = ".git"
	// UnknownRevisionConstant replaces revisions that could not be resolved.
	UnknownRevisionConstant = "unknown"
)

// SubmoduleStatus is one line of git submodule status output.
type SubmoduleStatus struct {
	Path   string
	Commit string
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RemoteResolver reads the origin URL of a repository root. The boolean is false when no URL could be resolved.
type RemoteResolver interface {
	ResolveOriginURL(executionContext context.Context, repositoryPath string) (string, bool)
}

// RevisionReader reads the short revision of a repository's HEAD.
type RevisionReader interface {
	ShortRevision(executionContext context.Context, repositoryPath string) (string, bool)
}

// SubmoduleStatusReader lists registered submodules together with their checked-out commits.
type SubmoduleStatusReader interface {
	SubmoduleStatus(executionContext context.Context, workingTreeRoot string) ([]SubmoduleStatus, error)
}

// IndexLinkManager lists and removes gitlink entries (mode 160000) in the index.
type IndexLinkManager interface {
	IndexLinks(executionContext context.Context, workingTreeRoot string) ([]string, error)
	RemoveIndexLink(executionContext context.Context, workingTreeRoot string, linkPath string) error
}

// SubmoduleAdder registers a new submodule through git.
type SubmoduleAdder interface {
	AddSubmodule(executionContext context.Context, workingTreeRoot string, remoteURL string, submodulePath string) error
}

// GitRepositoryManager bundles every git capability the commands rely on.
type GitRepositoryManager interface {
	RemoteResolver
	RevisionReader
	SubmoduleStatusReader
	IndexLinkManager
	SubmoduleAdder
}
