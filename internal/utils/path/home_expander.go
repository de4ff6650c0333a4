package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant       = "~"
	forwardSlashConstant      = "/"
	environmentMarkerConstant = "$"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// EnvironmentLookup resolves an environment variable.
type EnvironmentLookup func(name string) (string, bool)

// HomeExpander resolves a leading tilde and environment references in configured local paths, such as
// the host root or a copy destination.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	environmentLookup     EnvironmentLookup
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookups.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir, os.LookupEnv)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with custom lookups. Nil lookups fall back to the
// operating system.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider, lookup EnvironmentLookup) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &HomeExpander{homeDirectoryProvider: provider, environmentLookup: lookup}
}

// Expand resolves "~", "~/..." and $VARIABLE references. Unknown variables expand to nothing and an unresolvable
// home directory leaves the tilde in place.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || len(candidatePath) == 0 {
		return candidatePath
	}

	expandedPath := candidatePath
	if strings.Contains(expandedPath, environmentMarkerConstant) {
		expandedPath = os.Expand(expandedPath, func(name string) string {
			value, _ := expander.environmentLookup(name)
			return value
		})
	}

	if !strings.HasPrefix(expandedPath, tildeSymbolConstant) {
		return expandedPath
	}
	homeDirectory := expander.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return expandedPath
	}
	if expandedPath == tildeSymbolConstant {
		return homeDirectory
	}
	for _, separator := range []string{forwardSlashConstant, string(os.PathSeparator)} {
		if strings.HasPrefix(expandedPath, tildeSymbolConstant+separator) {
			return filepath.Join(homeDirectory, expandedPath[len(tildeSymbolConstant+separator):])
		}
	}
	return expandedPath
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
