package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/temirov/subkeep/cmd/cli"
	"github.com/temirov/subkeep/internal/dashboard"
	"github.com/temirov/subkeep/internal/intake"
	"github.com/temirov/subkeep/internal/reconcile"
	"github.com/temirov/subkeep/internal/registry"
	"github.com/temirov/subkeep/internal/repos/discovery"
)

const (
	testLogLevelFlagConstant      = "--log-level"
	testQuietLogLevelConstant     = "error"
	testRootFlagConstant          = "--root"
	testConfigFlagConstant        = "--config"
	testConfigurationFileConstant = "config.yaml"
)

func TestEmbeddedDefaultConfigurationMatchesPackageDefaults(testInstance *testing.T) {
	content, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)

	var rawConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal(content, &rawConfiguration))

	var configuration cli.ApplicationConfiguration
	require.NoError(testInstance, mapstructure.Decode(rawConfiguration, &configuration))

	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)

	testCases := []struct {
		name     string
		expected any
		actual   any
	}{
		{name: "registry", expected: registry.DefaultConfiguration(), actual: configuration.Tools.Registry},
		{name: "discovery", expected: discovery.DefaultConfiguration(), actual: configuration.Tools.Discovery},
		{name: "restore", expected: reconcile.DefaultRestoreConfiguration(), actual: configuration.Tools.Restore},
		{name: "dashboard", expected: dashboard.DefaultReportConfiguration(), actual: configuration.Tools.Dashboard},
		{name: "import", expected: intake.DefaultImportConfiguration(), actual: configuration.Tools.Import},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.actual)
		})
	}
}

func TestApplicationRegistersCommands(testInstance *testing.T) {
	application := cli.NewApplication()

	registered := map[string]bool{}
	for _, command := range application.RootCommand().Commands() {
		registered[command.Name()] = true
	}
	for _, expectedName := range []string{"restore", "restore-list", "prune", "dashboard", "import"} {
		require.True(testInstance, registered[expectedName], expectedName)
	}

	for _, flagName := range []string{"config", "log-level", "log-format", "root"} {
		require.NotNil(testInstance, application.RootCommand().PersistentFlags().Lookup(flagName), flagName)
	}
}

func TestApplicationResolvesRootAndConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       func(root string) []string
		prepare         func(testInstance *testing.T, root string)
		expectedError   error
		expectedMessage string
	}{
		{
			name: "prune_requires_registry_under_root_flag",
			arguments: func(root string) []string {
				return []string{"prune", testRootFlagConstant, root}
			},
			expectedError:   registry.ErrRegistryMissing,
			expectedMessage: ".gitmodules",
		},
		{
			name: "environment_overrides_registry_file",
			arguments: func(root string) []string {
				return []string{"prune", testRootFlagConstant, root}
			},
			prepare: func(testInstance *testing.T, root string) {
				testInstance.Setenv("SUBKEEP_TOOLS_REGISTRY_FILE", "custom.gitmodules")
			},
			expectedError:   registry.ErrRegistryMissing,
			expectedMessage: "custom.gitmodules",
		},
		{
			name: "configuration_file_sets_expected_list",
			arguments: func(root string) []string {
				return []string{"restore-list", testRootFlagConstant, root, testConfigFlagConstant, filepath.Join(root, testConfigurationFileConstant)}
			},
			prepare: func(testInstance *testing.T, root string) {
				configurationContent := "tools:\n  restore:\n    expected_list: wanted.txt\n"
				require.NoError(testInstance, os.WriteFile(filepath.Join(root, testConfigurationFileConstant), []byte(configurationContent), 0o644))
			},
			expectedError:   reconcile.ErrExpectedListMissing,
			expectedMessage: "wanted.txt",
		},
		{
			name: "import_requires_links_file",
			arguments: func(root string) []string {
				return []string{"import", testRootFlagConstant, root, "--dry-run"}
			},
			expectedError:   intake.ErrLinksFileMissing,
			expectedMessage: "LINKS_TO_PROCESS.md",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			root := testInstance.TempDir()
			if testCase.prepare != nil {
				testCase.prepare(testInstance, root)
			}

			application := cli.NewApplication()
			application.RootCommand().SetOut(&bytes.Buffer{})
			application.RootCommand().SetErr(&bytes.Buffer{})
			application.RootCommand().SetArgs(append(testCase.arguments(root), testLogLevelFlagConstant, testQuietLogLevelConstant))

			executionError := application.Execute()
			require.ErrorIs(testInstance, executionError, testCase.expectedError)
			require.Contains(testInstance, executionError.Error(), filepath.Join(root, testCase.expectedMessage))
			require.Equal(testInstance, testQuietLogLevelConstant, application.Configuration().Common.LogLevel)
		})
	}
}

func TestApplicationRejectsUnknownLogFormat(testInstance *testing.T) {
	application := cli.NewApplication()
	application.RootCommand().SetOut(&bytes.Buffer{})
	application.RootCommand().SetErr(&bytes.Buffer{})
	application.RootCommand().SetArgs([]string{"prune", testRootFlagConstant, testInstance.TempDir(), "--log-format", "xml"})

	executionError := application.Execute()
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), "unable to create logger")
}
