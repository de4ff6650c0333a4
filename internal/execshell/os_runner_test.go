package execshell

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

const testShellCommandNameConstant = CommandName("sh")

func TestOSCommandRunnerRun(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(string(testShellCommandNameConstant)); lookupError != nil {
		testInstance.Skip("sh is not available")
	}

	testCases := []struct {
		name           string
		details        CommandDetails
		expectedResult ExecutionResult
	}{
		{
			name:           "captures_standard_output",
			details:        CommandDetails{Arguments: []string{"-c", "printf ok"}},
			expectedResult: ExecutionResult{StandardOutput: "ok"},
		},
		{
			name:           "maps_exit_code",
			details:        CommandDetails{Arguments: []string{"-c", "printf denied >&2; exit 3"}},
			expectedResult: ExecutionResult{StandardError: "denied", ExitCode: 3},
		},
		{
			name: "applies_environment_overrides",
			details: CommandDetails{
				Arguments:            []string{"-c", "printf %s \"$AUDIT_TARGET\""},
				EnvironmentVariables: map[string]string{"AUDIT_TARGET": "web1"},
			},
			expectedResult: ExecutionResult{StandardOutput: "web1"},
		},
		{
			name:           "forwards_standard_input",
			details:        CommandDetails{Arguments: []string{"-c", "cat"}, StandardInput: []byte("secret")},
			expectedResult: ExecutionResult{StandardOutput: "secret"},
		},
	}

	runner := NewOSCommandRunner()
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executionResult, runError := runner.Run(context.Background(), ShellCommand{Name: testShellCommandNameConstant, Details: testCase.details})
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedResult, executionResult)
		})
	}
}

func TestOSCommandRunnerReportsMissingExecutable(testInstance *testing.T) {
	lookupFailure := errors.New("not in PATH")
	runner := &OSCommandRunner{lookupExecutable: func(string) (string, error) { return "", lookupFailure }}

	_, runError := runner.Run(context.Background(), ShellCommand{Name: CommandDocker})

	require.ErrorIs(testInstance, runError, lookupFailure)
	require.ErrorContains(testInstance, runError, "executable docker not found")
}

func TestMergeEnvironmentAppendsOverridesInStableOrder(testInstance *testing.T) {
	mergedEnvironment := mergeEnvironment([]string{"PATH=/bin"}, map[string]string{"ZETA": "1", "ALPHA": "2"})
	require.Equal(testInstance, []string{"PATH=/bin", "ALPHA=2", "ZETA=1"}, mergedEnvironment)
}
