package intake_test

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/subkeep/internal/gitrepo"
	"github.com/temirov/subkeep/internal/intake"
	"github.com/temirov/subkeep/internal/registry"
)

func TestPlacerPlace(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "memory/empty"), 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(testWorkingTreeRootConstant, "memory/busy/README.md"), []byte("x"), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(testWorkingTreeRootConstant, "memory/file"), []byte("x"), 0o644))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(testWorkingTreeRootConstant, "memory/file-acme"), []byte("x"), 0o644))

	snapshot := registry.NewSnapshot([]registry.Entry{
		{Name: "memory/declared", Path: "memory/declared", URL: "git@github.com:acme/declared.git"},
		{Name: "memory/mirrored", Path: "memory/mirrored", URL: "ssh://git@github.com/acme/mirrored.git"},
	})

	testCases := []struct {
		name     string
		remote   gitrepo.RemoteURL
		expected intake.Placement
	}{
		{
			name:     "free_path",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "fresh"},
			expected: intake.Placement{Decision: intake.PlacementAdd, Path: "memory/fresh"},
		},
		{
			name:     "empty_directory_is_free",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "empty"},
			expected: intake.Placement{Decision: intake.PlacementAdd, Path: "memory/empty"},
		},
		{
			name:     "non_empty_directory_uses_owner_suffix",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "busy"},
			expected: intake.Placement{Decision: intake.PlacementAdd, Path: "memory/busy-acme"},
		},
		{
			name:     "files_occupy_both_candidates",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "file"},
			expected: intake.Placement{Decision: intake.PlacementOccupied, Path: "memory/file-acme"},
		},
		{
			name:     "declared_same_repository",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "ACME", Repository: "declared"},
			expected: intake.Placement{Decision: intake.PlacementDeclared, Path: "memory/declared"},
		},
		{
			name:     "declared_with_ssh_scheme",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "mirrored"},
			expected: intake.Placement{Decision: intake.PlacementDeclared, Path: "memory/mirrored"},
		},
		{
			name:     "declared_other_repository",
			remote:   gitrepo.RemoteURL{Host: "github.com", Owner: "other", Repository: "declared"},
			expected: intake.Placement{Decision: intake.PlacementAdd, Path: "memory/declared-other"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			placer := intake.NewPlacer(fileSystem, testWorkingTreeRootConstant, snapshot)
			require.Equal(testInstance, testCase.expected, placer.Place("memory", testCase.remote))
		})
	}
}

func TestPlacerTracksClaimsWithinRun(testInstance *testing.T) {
	placer := intake.NewPlacer(afero.NewMemMapFs(), testWorkingTreeRootConstant, registry.NewSnapshot(nil))

	first := placer.Place("search", gitrepo.RemoteURL{Host: "github.com", Owner: "acme", Repository: "finder"})
	second := placer.Place("search", gitrepo.RemoteURL{Host: "github.com", Owner: "other", Repository: "finder"})
	third := placer.Place("search", gitrepo.RemoteURL{Host: "github.com", Owner: "other", Repository: "finder"})

	require.Equal(testInstance, intake.Placement{Decision: intake.PlacementAdd, Path: "search/finder"}, first)
	require.Equal(testInstance, intake.Placement{Decision: intake.PlacementAdd, Path: "search/finder-other"}, second)
	require.Equal(testInstance, intake.PlacementOccupied, third.Decision)
}
