package local

import (
	"fmt"
	"os"
	"strings"
)

const (
	dockerEnvironmentMarkerPathConstant = "/.dockerenv"
	initControlGroupPathConstant        = "/proc/1/cgroup"
	unsupportedModeTemplateConstant     = "unsupported containerization mode %q (expected auto, true or false)"
)

var controlGroupContainerMarkers = []string{"docker", "containerd", "kubepods", "libpod"}

// ContainerizationMode selects how the local environment decides whether it runs inside a container.
type ContainerizationMode string

// Supported containerization modes.
const (
	ContainerizationAuto     ContainerizationMode = "auto"
	ContainerizationEnabled  ContainerizationMode = "true"
	ContainerizationDisabled ContainerizationMode = "false"
)

// ParseContainerizationMode accepts auto, true and false. The empty string selects auto.
func ParseContainerizationMode(value string) (ContainerizationMode, error) {
	switch ContainerizationMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ContainerizationAuto:
		return ContainerizationAuto, nil
	case ContainerizationEnabled:
		return ContainerizationEnabled, nil
	case ContainerizationDisabled:
		return ContainerizationDisabled, nil
	default:
		return "", fmt.Errorf(unsupportedModeTemplateConstant, value)
	}
}

// Resolve applies the mode, consulting the detector only in auto mode.
func (mode ContainerizationMode) Resolve(detector ContainerDetector) bool {
	switch mode {
	case ContainerizationEnabled:
		return true
	case ContainerizationDisabled:
		return false
	default:
		return detector != nil && detector()
	}
}

// ContainerDetector reports whether the current process runs inside a container.
type ContainerDetector func() bool

// DetectContainer looks for the docker marker file and for container runtimes in the init process control groups.
func DetectContainer() bool {
	if _, statError := os.Stat(dockerEnvironmentMarkerPathConstant); statError == nil {
		return true
	}
	controlGroups, readError := os.ReadFile(initControlGroupPathConstant)
	if readError != nil {
		return false
	}
	return ControlGroupsIndicateContainer(string(controlGroups))
}

// ControlGroupsIndicateContainer inspects /proc/1/cgroup contents for container runtime markers.
func ControlGroupsIndicateContainer(controlGroups string) bool {
	for _, marker := range controlGroupContainerMarkers {
		if strings.Contains(controlGroups, marker) {
			return true
		}
	}
	return false
}
