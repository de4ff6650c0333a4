package flags

import (
	"strings"

	"github.com/spf13/cobra"
)

const (
	// BackendFlagName selects the environment backend.
	BackendFlagName = "backend"
	// ContainerFlagName names the container audited by the docker backend.
	ContainerFlagName = "container"
	// OwnerFlagName names the repository owner audited by the github backend.
	OwnerFlagName = "owner"
	// RepositoryFlagName names the repository audited by the github backend.
	RepositoryFlagName = "repository"
	// BranchFlagName names the branch audited by the github backend.
	BranchFlagName = "branch"

	containerFlagUsageConstant  = "Container id or name to audit (docker backend)"
	ownerFlagUsageConstant      = "Repository owner (github backend)"
	repositoryFlagUsageConstant = "Repository name (github backend)"
	branchFlagUsageConstant     = "Branch to audit (github backend)"
	backendFlagUsageConstant    = "Environment to audit."
)

// TargetFlagValues stores the audit target selection. Empty values defer to configuration.
type TargetFlagValues struct {
	Backend    string
	Container  string
	Owner      string
	Repository string
	Branch     string
}

// BindTargetFlags attaches the persistent target selection flags to the command.
func BindTargetFlags(command *cobra.Command, defaultBackend string, backends []string) *TargetFlagValues {
	values := &TargetFlagValues{}
	if command == nil {
		return values
	}

	persistentFlagSet := command.PersistentFlags()
	persistentFlagSet.StringVar(&values.Backend, BackendFlagName, "", FormatChoiceUsage(defaultBackend, backends, backendFlagUsageConstant))
	persistentFlagSet.StringVar(&values.Container, ContainerFlagName, "", containerFlagUsageConstant)
	persistentFlagSet.StringVar(&values.Owner, OwnerFlagName, "", ownerFlagUsageConstant)
	persistentFlagSet.StringVar(&values.Repository, RepositoryFlagName, "", repositoryFlagUsageConstant)
	persistentFlagSet.StringVar(&values.Branch, BranchFlagName, "", branchFlagUsageConstant)
	return values
}

// Merge returns configured with every non-empty flag value applied on top.
func (values TargetFlagValues) Merge(configured TargetFlagValues) TargetFlagValues {
	merged := configured
	overrideIfSet(&merged.Backend, values.Backend)
	overrideIfSet(&merged.Container, values.Container)
	overrideIfSet(&merged.Owner, values.Owner)
	overrideIfSet(&merged.Repository, values.Repository)
	overrideIfSet(&merged.Branch, values.Branch)
	return merged
}

func overrideIfSet(target *string, value string) {
	if trimmedValue := strings.TrimSpace(value); len(trimmedValue) > 0 {
		*target = trimmedValue
	}
}
