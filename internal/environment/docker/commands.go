package docker

import (
	"strings"

	"github.com/temirov/devaudit/internal/environment"
)

const (
	runtimeCommandConstant         = "docker"
	chrootCommandConstant          = "chroot"
	execSubcommandConstant         = "exec"
	listSubcommandConstant         = "ps"
	listAllFlagConstant            = "-a"
	copySubcommandConstant         = "cp"
	shellCommandConstant           = "sh"
	shellCommandFlagConstant       = "-c"
	exportClauseTemplateConstant   = "export "
	clauseSeparatorConstant        = " && "
	argumentSeparatorConstant      = " "
	assignmentSeparatorConstant    = "="
	containerPathSeparatorConstant = ":"
	runningStatusMarkerConstant    = "Up "
	defaultLineTerminatorConstant  = "\n"
)

// ContainerStatus is the result of matching a container identity against the runtime listing.
type ContainerStatus struct {
	Exists  bool
	Running bool
}

// ParseContainerStatus scans `docker ps -a` output. The first non-empty row is the header; blank rows are skipped.
// A trimmed row that starts or ends with the identity matches, and a matching row containing "Up " is running. The
// first match wins.
func ParseContainerStatus(listing string, lineTerminator string, container string) ContainerStatus {
	if len(container) == 0 {
		return ContainerStatus{}
	}
	if len(lineTerminator) == 0 {
		lineTerminator = defaultLineTerminatorConstant
	}

	rows := splitRows(listing, lineTerminator)
	for rowIndex := 1; rowIndex < len(rows); rowIndex++ {
		trimmedRow := strings.TrimSpace(rows[rowIndex])
		if len(trimmedRow) == 0 {
			continue
		}
		if strings.HasPrefix(trimmedRow, container) || strings.HasSuffix(trimmedRow, container) {
			return ContainerStatus{Exists: true, Running: strings.Contains(rows[rowIndex], runningStatusMarkerConstant)}
		}
	}
	return ContainerStatus{}
}

// splitRows splits on any character of the terminator and drops empty rows.
func splitRows(output string, lineTerminator string) []string {
	return strings.FieldsFunc(output, func(character rune) bool {
		return strings.ContainsRune(lineTerminator, character)
	})
}

// BuildExecArguments builds the runtime arguments that run command inside container. With overrides, the command is
// wrapped in `sh -c` behind one `export NAME=VALUE &&` clause per variable, in caller order.
func BuildExecArguments(container string, command string, arguments []string, variables []environment.EnvironmentVariable) []string {
	if len(variables) == 0 {
		execArguments := []string{execSubcommandConstant, container, command}
		return append(execArguments, arguments...)
	}

	var script strings.Builder
	for _, variable := range variables {
		script.WriteString(exportClauseTemplateConstant)
		script.WriteString(variable.Name)
		script.WriteString(assignmentSeparatorConstant)
		script.WriteString(variable.Value)
		script.WriteString(clauseSeparatorConstant)
	}
	script.WriteString(command)
	if len(arguments) > 0 {
		script.WriteString(argumentSeparatorConstant)
		script.WriteString(strings.Join(arguments, argumentSeparatorConstant))
	}
	return []string{execSubcommandConstant, container, shellCommandConstant, shellCommandFlagConstant, script.String()}
}

// RuntimeInvocation wraps runtime arguments for the host: directly through docker, or through chroot into the host
// root when the auditor itself is containerized.
func RuntimeInvocation(containerizedHost bool, hostRoot string, runtimeArguments []string) (string, []string) {
	if !containerizedHost {
		return runtimeCommandConstant, runtimeArguments
	}
	chrootArguments := make([]string, 0, len(runtimeArguments)+2)
	chrootArguments = append(chrootArguments, hostRoot, runtimeCommandConstant)
	chrootArguments = append(chrootArguments, runtimeArguments...)
	return chrootCommandConstant, chrootArguments
}
