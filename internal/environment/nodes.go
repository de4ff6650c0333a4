package environment

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	rootPathConstant               = "/"
	invalidPatternTemplateConstant = "%w: %q"
)

// EntryKind selects files or directories when listing a directory.
type EntryKind int

const (
	// EntryKindFile selects regular files.
	EntryKindFile EntryKind = iota
	// EntryKindDirectory selects directories.
	EntryKindDirectory
)

// FileHandle is a file scoped to its owning environment. Handles cache nothing.
type FileHandle interface {
	Path() string
	Name() string
	Environment() AuditEnvironment
	Exists(executionContext context.Context) (bool, error)
	ReadAsText(executionContext context.Context) (string, error)
}

// DirectoryHandle is a directory scoped to its owning environment. Handles cache nothing.
type DirectoryHandle interface {
	Path() string
	Name() string
	Environment() AuditEnvironment
	Exists(executionContext context.Context) (bool, error)
	// GetFiles lists the files directly inside the directory whose names match the glob pattern.
	GetFiles(executionContext context.Context, pattern string) ([]FileHandle, error)
	// GetDirectories lists the directories directly inside the directory whose names match the glob pattern.
	GetDirectories(executionContext context.Context, pattern string) ([]DirectoryHandle, error)
}

// NodeBackend is implemented by environments that back the shared File and Directory handles.
type NodeBackend interface {
	AuditEnvironment
	// ReadFileAsText returns the contents of the file at path.
	ReadFileAsText(executionContext context.Context, path string) (string, error)
	// ListEntries returns the paths of the entries of the given kind directly inside directoryPath.
	ListEntries(executionContext context.Context, directoryPath string, kind EntryKind) ([]string, error)
}

// File is the FileHandle shared by the backends.
type File struct {
	path    string
	backend NodeBackend
}

// NewFile constructs a file handle. The path must already be resolved.
func NewFile(backend NodeBackend, filePath string) *File {
	return &File{path: filePath, backend: backend}
}

// Path returns the resolved path.
func (file *File) Path() string { return file.path }

// Name returns the last path element.
func (file *File) Name() string { return path.Base(file.path) }

// Environment returns the owning environment.
func (file *File) Environment() AuditEnvironment { return file.backend }

// Exists queries the owning environment.
func (file *File) Exists(executionContext context.Context) (bool, error) {
	return file.backend.FileExists(executionContext, file.path)
}

// ReadAsText reads the file through the owning environment.
func (file *File) ReadAsText(executionContext context.Context) (string, error) {
	return file.backend.ReadFileAsText(executionContext, file.path)
}

// Directory is the DirectoryHandle shared by the backends.
type Directory struct {
	path    string
	backend NodeBackend
}

// NewDirectory constructs a directory handle. The path must already be resolved.
func NewDirectory(backend NodeBackend, directoryPath string) *Directory {
	return &Directory{path: directoryPath, backend: backend}
}

// Path returns the resolved path.
func (directory *Directory) Path() string { return directory.path }

// Name returns the last path element.
func (directory *Directory) Name() string { return path.Base(directory.path) }

// Environment returns the owning environment.
func (directory *Directory) Environment() AuditEnvironment { return directory.backend }

// Exists queries the owning environment.
func (directory *Directory) Exists(executionContext context.Context) (bool, error) {
	return directory.backend.DirectoryExists(executionContext, directory.path)
}

// GetFiles lists matching files.
func (directory *Directory) GetFiles(executionContext context.Context, pattern string) ([]FileHandle, error) {
	entryPaths, listError := directory.matchingEntries(executionContext, pattern, EntryKindFile)
	if listError != nil {
		return nil, listError
	}
	files := make([]FileHandle, 0, len(entryPaths))
	for _, entryPath := range entryPaths {
		files = append(files, directory.backend.ConstructFile(entryPath))
	}
	return files, nil
}

// GetDirectories lists matching subdirectories.
func (directory *Directory) GetDirectories(executionContext context.Context, pattern string) ([]DirectoryHandle, error) {
	entryPaths, listError := directory.matchingEntries(executionContext, pattern, EntryKindDirectory)
	if listError != nil {
		return nil, listError
	}
	directories := make([]DirectoryHandle, 0, len(entryPaths))
	for _, entryPath := range entryPaths {
		directories = append(directories, directory.backend.ConstructDirectory(entryPath))
	}
	return directories, nil
}

func (directory *Directory) matchingEntries(executionContext context.Context, pattern string, kind EntryKind) ([]string, error) {
	if !ValidPattern(pattern) {
		return nil, fmt.Errorf(invalidPatternTemplateConstant, ErrInvalidPattern, pattern)
	}
	entryPaths, listError := directory.backend.ListEntries(executionContext, directory.path, kind)
	if listError != nil {
		return nil, listError
	}
	matchingPaths := make([]string, 0, len(entryPaths))
	for _, entryPath := range entryPaths {
		if MatchName(pattern, path.Base(entryPath)) {
			matchingPaths = append(matchingPaths, entryPath)
		}
	}
	sort.Strings(matchingPaths)
	return matchingPaths, nil
}

// ValidPattern reports whether pattern is an acceptable listing glob. The empty pattern is valid.
func ValidPattern(pattern string) bool {
	return len(pattern) == 0 || doublestar.ValidatePattern(pattern)
}

// MatchName reports whether an entry name matches the listing glob. The empty pattern matches every name.
func MatchName(pattern string, name string) bool {
	if len(pattern) == 0 {
		return true
	}
	matched, matchError := doublestar.Match(pattern, name)
	return matchError == nil && matched
}

// ResolvePath anchors a relative slash-separated path at root and cleans the result.
func ResolvePath(root string, target string) string {
	if path.IsAbs(target) {
		return path.Clean(target)
	}
	if len(root) == 0 {
		root = rootPathConstant
	}
	return path.Join(root, target)
}

// ReadAll reads every file through its own handle.
func ReadAll(executionContext context.Context, files []FileHandle) (map[FileHandle]string, error) {
	contents := make(map[FileHandle]string, len(files))
	for _, file := range files {
		if file == nil {
			continue
		}
		text, readError := file.ReadAsText(executionContext)
		if readError != nil {
			return nil, readError
		}
		contents[file] = text
	}
	return contents, nil
}
