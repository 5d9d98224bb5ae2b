package pathutils_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	pathutils "github.com/temirov/subkeep/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/operator"
)

func TestHomeExpanderExpand(testInstance *testing.T) {
	testCases := []struct {
		name          string
		candidatePath string
		providerError error
		expectedPath  string
	}{
		{name: "bare_tilde", candidatePath: "~", expectedPath: testHomeDirectoryConstant},
		{name: "tilde_prefix", candidatePath: "~/workspace/aios", expectedPath: filepath.Join(testHomeDirectoryConstant, "workspace/aios")},
		{name: "other_user_untouched", candidatePath: "~someone/aios", expectedPath: "~someone/aios"},
		{name: "absolute_untouched", candidatePath: "/srv/aios", expectedPath: "/srv/aios"},
		{name: "provider_failure_untouched", candidatePath: "~/aios", providerError: errors.New("no home"), expectedPath: "~/aios"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
				return testHomeDirectoryConstant, testCase.providerError
			})
			require.Equal(testInstance, testCase.expectedPath, expander.Expand(testCase.candidatePath))
		})
	}
}

func TestHomeExpanderExpandRootFallsBack(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})

	require.Equal(testInstance, ".", expander.ExpandRoot("  ", "."))
	require.Equal(testInstance, filepath.Join(testHomeDirectoryConstant, "aios"), expander.ExpandRoot(" ~/aios/ ", "."))
}
