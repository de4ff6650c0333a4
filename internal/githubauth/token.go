package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted for a GitHub token, in order of preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var defaultTokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// ResolveToken returns the first non-empty token. The configured variable, when set, is consulted before the
// defaults. Explicit overrides take precedence over the process environment.
func ResolveToken(configuredVariable string, overrides map[string]string) (string, bool) {
	preference := tokenPreference(configuredVariable)
	for _, key := range preference {
		if value, found := lookup(overrides, key); found {
			return value, true
		}
	}
	for _, key := range preference {
		if value, found := lookup(nil, key); found {
			return value, true
		}
	}
	return "", false
}

func tokenPreference(configuredVariable string) []string {
	trimmedVariable := strings.TrimSpace(configuredVariable)
	if len(trimmedVariable) == 0 {
		return defaultTokenPreference
	}
	preference := []string{trimmedVariable}
	for _, key := range defaultTokenPreference {
		if key != trimmedVariable {
			preference = append(preference, key)
		}
	}
	return preference
}

// lookup reads from overrides, or from the process environment when overrides is nil.
func lookup(overrides map[string]string, key string) (string, bool) {
	var value string
	var exists bool
	if overrides == nil {
		value, exists = os.LookupEnv(key)
	} else {
		value, exists = overrides[key]
	}
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
