package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/devaudit/internal/gitrepo"
)

func TestParseReference(testInstance *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expected      gitrepo.Reference
		expectedError bool
	}{
		{
			name:     "shorthand",
			input:    " acme/portal ",
			expected: gitrepo.Reference{Protocol: gitrepo.ProtocolShorthand, Owner: "acme", Repository: "portal"},
		},
		{
			name:     "https_with_suffix",
			input:    "https://github.com/acme/portal.git",
			expected: gitrepo.Reference{Protocol: gitrepo.ProtocolHTTPS, Host: "github.com", Owner: "acme", Repository: "portal"},
		},
		{
			name:     "https_trailing_slash",
			input:    "https://github.com/acme/portal/",
			expected: gitrepo.Reference{Protocol: gitrepo.ProtocolHTTPS, Host: "github.com", Owner: "acme", Repository: "portal"},
		},
		{
			name:     "scp_style",
			input:    "git@github.com:acme/portal.git",
			expected: gitrepo.Reference{Protocol: gitrepo.ProtocolSSH, Host: "github.com", Owner: "acme", Repository: "portal"},
		},
		{
			name:     "ssh_url",
			input:    "ssh://git@github.com/acme/portal",
			expected: gitrepo.Reference{Protocol: gitrepo.ProtocolSSH, Host: "github.com", Owner: "acme", Repository: "portal"},
		},
		{name: "empty", input: "  ", expectedError: true},
		{name: "name_only", input: "portal", expectedError: true},
		{name: "too_deep", input: "https://github.com/acme/portal/tree/main", expectedError: true},
		{name: "missing_owner", input: "/portal", expectedError: true},
		{name: "bare_suffix", input: "acme/.git", expectedError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			reference, parseError := gitrepo.ParseReference(testCase.input)
			if testCase.expectedError {
				var typedError gitrepo.ParseError
				require.ErrorAs(testInstance, parseError, &typedError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, reference)
			require.Equal(testInstance, "acme/portal", reference.String())
		})
	}
}

func TestIsReference(testInstance *testing.T) {
	require.True(testInstance, gitrepo.IsReference("acme/portal"))
	require.False(testInstance, gitrepo.IsReference("portal"))
}
