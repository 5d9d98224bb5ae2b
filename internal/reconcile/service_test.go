package reconcile_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/subkeep/internal/reconcile"
	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
	"github.com/temirov/subkeep/internal/repos/shared"
)

const (
	testWorkingTreeRootConstant  = "/workspace/aios"
	testRegistryPathConstant     = "/workspace/aios/.gitmodules"
	testExpectedListPathConstant = "/workspace/aios/expected_submodules.txt"
	testDeclaredRegistryConstant = "[submodule \"libs/foo\"]\n\tpath = libs/foo\n\turl = https://example.com/x/foo.git\n"
	testCliThingURLConstant      = "https://github.com/example/cli-thing.git"
	testBarURLConstant           = "https://example.com/x/bar.git"
)

type stubRemoteResolver struct {
	remotes  map[string]string
	lookedUp []string
}

func (resolver *stubRemoteResolver) ResolveOriginURL(_ context.Context, repositoryPath string) (string, bool) {
	resolver.lookedUp = append(resolver.lookedUp, repositoryPath)
	remoteURL, found := resolver.remotes[repositoryPath]
	return remoteURL, found
}

type stubIndexLinkManager struct {
	links        []string
	listError    error
	removeErrors map[string]error
	listed       bool
	removed      []string
}

func (manager *stubIndexLinkManager) IndexLinks(context.Context, string) ([]string, error) {
	manager.listed = true
	return manager.links, manager.listError
}

func (manager *stubIndexLinkManager) RemoveIndexLink(_ context.Context, _ string, linkPath string) error {
	if removeError, found := manager.removeErrors[linkPath]; found {
		return removeError
	}
	manager.removed = append(manager.removed, linkPath)
	return nil
}

type reconcileFixture struct {
	fileSystem afero.Fs
	remotes    *stubRemoteResolver
	indexLinks *stubIndexLinkManager
	output     *bytes.Buffer
	service    *reconcile.Service
	store      *registry.Store
}

func newReconcileFixture(testInstance *testing.T) reconcileFixture {
	testInstance.Helper()

	fileSystem := afero.NewMemMapFs()
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, ".git"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "external/tools/cli-thing/.git"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "libs/foo/.git"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "libs/foo/nested/.git"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "libs/bar"), 0o755))
	require.NoError(testInstance, afero.WriteFile(fileSystem, filepath.Join(testWorkingTreeRootConstant, "libs/bar/.git"), []byte("gitdir: ../../.git/modules/libs/bar\n"), 0o644))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "libs/noremote/.git"), 0o755))
	require.NoError(testInstance, fileSystem.MkdirAll(filepath.Join(testWorkingTreeRootConstant, "web/node_modules/pkg/.git"), 0o755))

	remotes := &stubRemoteResolver{remotes: map[string]string{
		filepath.Join(testWorkingTreeRootConstant, "external/tools/cli-thing"): testCliThingURLConstant,
		filepath.Join(testWorkingTreeRootConstant, "libs/bar"):                 testBarURLConstant,
		filepath.Join(testWorkingTreeRootConstant, "libs/foo"):                 "https://example.com/x/foo.git",
		filepath.Join(testWorkingTreeRootConstant, "web/node_modules/pkg"):     "https://example.com/x/pkg.git",
	}}
	indexLinks := &stubIndexLinkManager{}

	locator, locatorError := discovery.NewLocator(fileSystem, discovery.DefaultConfiguration().Exclude)
	require.NoError(testInstance, locatorError)

	output := &bytes.Buffer{}
	service, serviceError := reconcile.NewService(reconcile.Dependencies{
		Locator:    locator,
		Remotes:    remotes,
		IndexLinks: indexLinks,
		FileSystem: fileSystem,
		Reporter:   shared.NewWriterReporter(output),
	})
	require.NoError(testInstance, serviceError)

	store, storeError := registry.NewStore(fileSystem, testRegistryPathConstant)
	require.NoError(testInstance, storeError)

	return reconcileFixture{
		fileSystem: fileSystem,
		remotes:    remotes,
		indexLinks: indexLinks,
		output:     output,
		service:    service,
		store:      store,
	}
}

func (fixture reconcileFixture) writeRegistry(testInstance *testing.T, content string) {
	testInstance.Helper()
	require.NoError(testInstance, afero.WriteFile(fixture.fileSystem, testRegistryPathConstant, []byte(content), 0o644))
}

func (fixture reconcileFixture) readRegistry(testInstance *testing.T) string {
	testInstance.Helper()
	content, readError := afero.ReadFile(fixture.fileSystem, testRegistryPathConstant)
	require.NoError(testInstance, readError)
	return string(content)
}

func TestRestoreDeclaresUndeclaredRepositories(testInstance *testing.T) {
	fixture := newReconcileFixture(testInstance)
	fixture.writeRegistry(testInstance, testDeclaredRegistryConstant)

	result, restoreError := fixture.service.Restore(context.Background(), reconcile.RestoreOptions{
		WorkingTreeRoot: testWorkingTreeRootConstant,
		Registry:        fixture.store,
		Mode:            shared.ExecutionModeApply,
	})
	require.NoError(testInstance, restoreError)

	require.Equal(testInstance, []registry.Addition{
		{Path: "external/tools/cli-thing", URL: testCliThingURLConstant},
		{Path: "libs/bar", URL: testBarURLConstant},
	}, result.Additions)
	require.Equal(testInstance, []string{"libs/noremote"}, result.Skipped)

	require.Equal(testInstance, "Could not find remote for libs/noremote\n"+
		"Found 2 missing submodules.\n"+
		"Restoring: external/tools/cli-thing\n"+
		"Restoring: libs/bar\n", fixture.output.String())

	require.Equal(testInstance, testDeclaredRegistryConstant+
		"\n[submodule \"external/tools/cli-thing\"]\n\tpath = external/tools/cli-thing\n\turl = https://github.com/example/cli-thing.git\n"+
		"\n[submodule \"libs/bar\"]\n\tpath = libs/bar\n\turl = https://example.com/x/bar.git\n", fixture.readRegistry(testInstance))

	require.NotContains(testInstance, fixture.remotes.lookedUp, filepath.Join(testWorkingTreeRootConstant, "libs/foo"))
	require.NotContains(testInstance, fixture.remotes.lookedUp, filepath.Join(testWorkingTreeRootConstant, "libs/foo/nested"))
	require.NotContains(testInstance, fixture.remotes.lookedUp, filepath.Join(testWorkingTreeRootConstant, "web/node_modules/pkg"))
}

func TestRestoreIsIdempotent(testInstance *testing.T) {
	fixture := newReconcileFixture(testInstance)
	fixture.writeRegistry(testInstance, testDeclaredRegistryConstant)

	options := reconcile.RestoreOptions{WorkingTreeRoot: testWorkingTreeRootConstant, Registry: fixture.store, Mode: shared.ExecutionModeApply}
	_, firstError := fixture.service.Restore(context.Background(), options)
	require.NoError(testInstance, firstError)
	afterFirstRun := fixture.readRegistry(testInstance)

	fixture.output.Reset()
	result, secondError := fixture.service.Restore(context.Background(), options)
	require.NoError(testInstance, secondError)
	require.Empty(testInstance, result.Additions)
	require.Equal(testInstance, afterFirstRun, fixture.readRegistry(testInstance))
	require.Equal(testInstance, "Could not find remote for libs/noremote\nNo missing submodules found in directory tree.\n", fixture.output.String())

	snapshot, loadError := fixture.store.LoadRequired()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 3, snapshot.Len())
}

func TestRestoreCreatesMissingRegistry(testInstance *testing.T) {
	fixture := newReconcileFixture(testInstance)

	result, restoreError := fixture.service.Restore(context.Background(), reconcile.RestoreOptions{
		WorkingTreeRoot: testWorkingTreeRootConstant,
		Registry:        fixture.store,
		Mode:            shared.ExecutionModeApply,
	})
	require.NoError(testInstance, restoreError)
	require.Len(testInstance, result.Additions, 3)

	snapshot, loadError := fixture.store.LoadRequired()
	require.NoError(testInstance, loadError)
	require.True(testInstance, snapshot.Contains("libs/foo"))
	require.True(testInstance, snapshot.Contains("libs/bar"))
	require.True(testInstance, snapshot.Contains("external/tools/cli-thing"))
	require.False(testInstance, snapshot.Contains("libs/foo/nested"))
}

func TestRestoreDryRunLeavesRegistryUntouched(testInstance *testing.T) {
	fixture := newReconcileFixture(testInstance)
	fixture.writeRegistry(testInstance, testDeclaredRegistryConstant)

	result, restoreError := fixture.service.Restore(context.Background(), reconcile.RestoreOptions{
		WorkingTreeRoot: testWorkingTreeRootConstant,
		Registry:        fixture.store,
		Mode:            shared.ExecutionModePlan,
	})
	require.NoError(testInstance, restoreError)
	require.Len(testInstance, result.Additions, 2)
	require.Equal(testInstance, testDeclaredRegistryConstant, fixture.readRegistry(testInstance))
	require.Contains(testInstance, fixture.output.String(), "PLAN-RESTORE: libs/bar -> https://example.com/x/bar.git\n")
	require.NotContains(testInstance, fixture.output.String(), "Restoring:")
}

func TestRestoreFromList(testInstance *testing.T) {
	testCases := []struct {
		name             string
		listContent      *string
		mode             shared.ExecutionMode
		expectedError    error
		expectedOutput   string
		expectedAdded    []registry.Addition
		expectedRegistry string
	}{
		{
			name:        "stages_existing_paths_with_remotes",
			listContent: stringPointer("libs/bar\n\nlibs/missing\nlibs/foo\n  libs/noremote  \n"),
			mode:        shared.ExecutionModeApply,
			expectedOutput: "Directory not found: libs/missing\n" +
				"No remote found for: libs/noremote\n" +
				"Restoring 1 submodules...\n" +
				"Done.\n",
			expectedAdded:    []registry.Addition{{Path: "libs/bar", URL: testBarURLConstant}},
			expectedRegistry: testDeclaredRegistryConstant + "\n[submodule \"libs/bar\"]\n\tpath = libs/bar\n\turl = https://example.com/x/bar.git\n",
		},
		{
			name:             "nothing_to_restore",
			listContent:      stringPointer("libs/foo\n"),
			mode:             shared.ExecutionModeApply,
			expectedOutput:   "No new submodules to restore.\n",
			expectedRegistry: testDeclaredRegistryConstant,
		},
		{
			name:             "dry_run_prints_plan",
			listContent:      stringPointer("libs/bar\n"),
			mode:             shared.ExecutionModePlan,
			expectedOutput:   "Restoring 1 submodules...\nPLAN-RESTORE: libs/bar -> https://example.com/x/bar.git\n",
			expectedAdded:    []registry.Addition{{Path: "libs/bar", URL: testBarURLConstant}},
			expectedRegistry: testDeclaredRegistryConstant,
		},
		{
			name:             "missing_list_is_fatal",
			mode:             shared.ExecutionModeApply,
			expectedError:    reconcile.ErrExpectedListMissing,
			expectedRegistry: testDeclaredRegistryConstant,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newReconcileFixture(testInstance)
			fixture.writeRegistry(testInstance, testDeclaredRegistryConstant)
			if testCase.listContent != nil {
				require.NoError(testInstance, afero.WriteFile(fixture.fileSystem, testExpectedListPathConstant, []byte(*testCase.listContent), 0o644))
			}

			result, restoreError := fixture.service.RestoreFromList(context.Background(), reconcile.RestoreListOptions{
				WorkingTreeRoot:  testWorkingTreeRootConstant,
				Registry:         fixture.store,
				ExpectedListPath: testExpectedListPathConstant,
				Mode:             testCase.mode,
			})

			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, restoreError, testCase.expectedError)
				require.Empty(testInstance, fixture.remotes.lookedUp)
			} else {
				require.NoError(testInstance, restoreError)
				require.Equal(testInstance, testCase.expectedAdded, result.Additions)
			}
			require.Equal(testInstance, testCase.expectedOutput, fixture.output.String())
			require.Equal(testInstance, testCase.expectedRegistry, fixture.readRegistry(testInstance))
		})
	}
}

func TestPruneRemovesExactlyTheUndeclaredLinks(testInstance *testing.T) {
	fixture := newReconcileFixture(testInstance)
	fixture.writeRegistry(testInstance, testDeclaredRegistryConstant)
	fixture.indexLinks.links = []string{"libs/foo", "libs/stale", "vendor/old"}

	result, pruneError := fixture.service.Prune(context.Background(), reconcile.PruneOptions{
		WorkingTreeRoot: testWorkingTreeRootConstant,
		Registry:        fixture.store,
		Mode:            shared.ExecutionModeApply,
	})
	require.NoError(testInstance, pruneError)
	require.Equal(testInstance, []string{"libs/stale", "vendor/old"}, result.Removed)
	require.Equal(testInstance, []string{"libs/stale", "vendor/old"}, fixture.indexLinks.removed)
	require.Equal(testInstance, "Removing stale index link: libs/stale\n"+
		"Removing stale index link: vendor/old\n"+
		"Removed 2 stale index links.\n", fixture.output.String())
	require.Equal(testInstance, testDeclaredRegistryConstant, fixture.readRegistry(testInstance))
}

func TestPruneScenarios(testInstance *testing.T) {
	testCases := []struct {
		name            string
		registry        *string
		links           []string
		removeErrors    map[string]error
		mode            shared.ExecutionMode
		expectedError   error
		expectedRemoved []string
		expectedFailed  []string
		expectedOutput  string
		expectListing   bool
	}{
		{
			name:           "missing_registry_is_fatal",
			links:          []string{"libs/stale"},
			mode:           shared.ExecutionModeApply,
			expectedError:  registry.ErrRegistryMissing,
			expectedOutput: "",
		},
		{
			name:           "no_stale_links",
			registry:       stringPointer(testDeclaredRegistryConstant),
			links:          []string{"libs/foo"},
			mode:           shared.ExecutionModeApply,
			expectedOutput: "No stale index links found.\n",
			expectListing:  true,
		},
		{
			name:           "dry_run_prints_plan",
			registry:       stringPointer(testDeclaredRegistryConstant),
			links:          []string{"libs/foo", "libs/stale"},
			mode:           shared.ExecutionModePlan,
			expectedOutput: "PLAN-PRUNE: libs/stale\n",
			expectListing:  true,
		},
		{
			name:            "removal_failure_is_isolated",
			registry:        stringPointer(testDeclaredRegistryConstant),
			links:           []string{"libs/broken", "libs/stale"},
			removeErrors:    map[string]error{"libs/broken": errors.New("index locked")},
			mode:            shared.ExecutionModeApply,
			expectedRemoved: []string{"libs/stale"},
			expectedFailed:  []string{"libs/broken"},
			expectedOutput: "Removing stale index link: libs/broken\n" +
				"Failed to remove index link libs/broken: index locked\n" +
				"Removing stale index link: libs/stale\n" +
				"Removed 1 stale index links.\n",
			expectListing: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newReconcileFixture(testInstance)
			if testCase.registry != nil {
				fixture.writeRegistry(testInstance, *testCase.registry)
			}
			fixture.indexLinks.links = testCase.links
			fixture.indexLinks.removeErrors = testCase.removeErrors

			result, pruneError := fixture.service.Prune(context.Background(), reconcile.PruneOptions{
				WorkingTreeRoot: testWorkingTreeRootConstant,
				Registry:        fixture.store,
				Mode:            testCase.mode,
			})

			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, pruneError, testCase.expectedError)
				require.Empty(testInstance, fixture.indexLinks.removed)
			} else {
				require.NoError(testInstance, pruneError)
				require.Equal(testInstance, testCase.expectedRemoved, result.Removed)
				require.Equal(testInstance, testCase.expectedFailed, result.Failed)
			}
			require.Equal(testInstance, testCase.expectListing, fixture.indexLinks.listed)
			require.Equal(testInstance, testCase.expectedOutput, fixture.output.String())
		})
	}
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	locator, locatorError := discovery.NewLocator(afero.NewMemMapFs(), nil)
	require.NoError(testInstance, locatorError)

	testCases := []struct {
		name          string
		dependencies  reconcile.Dependencies
		expectedError error
	}{
		{
			name:          "missing_locator",
			dependencies:  reconcile.Dependencies{Remotes: &stubRemoteResolver{}, IndexLinks: &stubIndexLinkManager{}},
			expectedError: reconcile.ErrLocatorNotConfigured,
		},
		{
			name:          "missing_remote_resolver",
			dependencies:  reconcile.Dependencies{Locator: locator, IndexLinks: &stubIndexLinkManager{}},
			expectedError: reconcile.ErrRemoteResolverNotConfigured,
		},
		{
			name:          "missing_index_link_manager",
			dependencies:  reconcile.Dependencies{Locator: locator, Remotes: &stubRemoteResolver{}},
			expectedError: reconcile.ErrIndexLinkManagerNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, creationError := reconcile.NewService(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
		})
	}
}

func stringPointer(value string) *string {
	return &value
}
