package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindTargetFlagsParsesValues(t *testing.T) {
	command := &cobra.Command{}

	values := BindTargetFlags(command, "local", []string{"local", "docker", "github"})
	require.NotNil(t, values)
	require.Equal(t, TargetFlagValues{}, *values)
	require.Contains(t, command.PersistentFlags().Lookup(BackendFlagName).Usage, "<LOCAL|docker|github>")

	parseError := command.ParseFlags([]string{"--backend", "github", "--owner", "acme", "--repository", "portal", "--branch", "main"})
	require.NoError(t, parseError)
	require.Equal(t, TargetFlagValues{Backend: "github", Owner: "acme", Repository: "portal", Branch: "main"}, *values)
}

func TestTargetFlagValuesMergeOverridesConfiguredValues(t *testing.T) {
	configured := TargetFlagValues{Backend: "docker", Container: "web1", Owner: "acme", Repository: "portal", Branch: "main"}

	merged := TargetFlagValues{Container: " db ", Branch: "release"}.Merge(configured)
	require.Equal(t, TargetFlagValues{Backend: "docker", Container: "db", Owner: "acme", Repository: "portal", Branch: "release"}, merged)
}
