package github

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/devaudit/internal/environment"
	"github.com/temirov/devaudit/internal/githubcli"
)

const (
	environmentNamePrefixConstant   = "github:"
	environmentNameTemplateConstant = "%s%s/%s@%s"
	rootPathConstant                = "/"
	repositoryFamilyConstant        = "repository"
	repositoryLabelTemplateConstant = "%s/%s@%s"

	executeOperationConstant         = "execute"
	executeAsUserOperationConstant   = "execute as user"
	fileExistsOperationConstant      = "file exists"
	directoryExistsOperationConstant = "directory exists"
	readFileOperationConstant        = "read file"
	listDirectoryOperationConstant   = "list directory"
	getContentOperationConstant      = "get content"
	copyFileOperationConstant        = "copy file"

	notInitialisedMessageConstant       = "repository not initialised"
	clientNotConfiguredMessageConstant  = "github repository client not configured"
	executionUnsupportedMessageConstant = "a remote repository cannot execute commands"
	localHostMissingMessageConstant     = "no local environment to copy into"
	fileMissingMessageConstant          = "file not found"
	destinationMissingMessageConstant   = "destination missing after copy"

	clientFailureTemplateConstant        = "Could not create GitHub client: %v"
	repositoryFailureTemplateConstant    = "Could not resolve repository %s/%s: %v"
	branchFailureTemplateConstant        = "Could not resolve branch %s of %s/%s: %v"
	resolvedTemplateConstant             = "Resolved repository %s at commit %s"
	notInitialisedTemplateConstant       = "Cannot %s %s: repository %s/%s is not initialised"
	executionUnsupportedTemplateConstant = "Cannot %s %s in repository %s/%s: commands cannot run in a remote repository"
	contentFailureTemplateConstant       = "Could not get content of %s in %s: %v"
	probeTemplateConstant                = "%s %s in %s: exists=%t entries=%d"
	readFailureTemplateConstant          = "Could not read %s in %s: %v"
	copyFailureTemplateConstant          = "Could not copy %s from %s to %s: %v"
	copySucceededTemplateConstant        = "Copied %s from %s to %s"
)

var (
	// ErrClientNotConfigured indicates the environment was constructed without an API client.
	ErrClientNotConfigured = errors.New(clientNotConfiguredMessageConstant)
)

// RepositoryClient is the subset of githubcli.Client the environment uses.
type RepositoryClient interface {
	GetRepository(executionContext context.Context, owner string, name string) (githubcli.Repository, error)
	GetBranch(executionContext context.Context, owner string, name string, branch string) (githubcli.Branch, error)
	GetContent(executionContext context.Context, owner string, name string, branch string, contentPath string) ([]githubcli.ContentEntry, error)
}

// LocalHost receives files copied out of the repository.
type LocalHost interface {
	environment.AuditEnvironment
	WriteFile(executionContext context.Context, path string, contents []byte) error
}

// Options configures the repository environment.
type Options struct {
	Owner      string
	Repository string
	Branch     string
	// Root anchors relative paths inside the repository.
	Root string
	// Host is where GetFileAsLocal writes. It is optional.
	Host           LocalHost
	MessageHandler environment.MessageHandler
}

// Environment audits a branch of a hosted repository through the contents API.
// The repository and branch are resolved once; a failed resolution leaves the environment permanently uninitialised.
type Environment struct {
	environment.Reporter
	client     RepositoryClient
	host       LocalHost
	owner      string
	name       string
	branchName string
	root       string
	repository *githubcli.Repository
	branch     *githubcli.Branch
}

// NewEnvironment resolves the repository and then the branch. Resolution failures are reported as diagnostics and
// leave the environment uninitialised; they are not returned.
func NewEnvironment(executionContext context.Context, client RepositoryClient, options Options) (*Environment, error) {
	owner := strings.TrimSpace(options.Owner)
	name := strings.TrimSpace(options.Repository)
	branchName := strings.TrimSpace(options.Branch)
	root := strings.TrimSpace(options.Root)
	if len(root) == 0 {
		root = rootPathConstant
	}

	repositoryEnvironment := &Environment{
		Reporter:   environment.NewReporter(fmt.Sprintf(environmentNameTemplateConstant, environmentNamePrefixConstant, owner, name, branchName), options.MessageHandler),
		client:     client,
		host:       options.Host,
		owner:      owner,
		name:       name,
		branchName: branchName,
		root:       root,
	}

	if client == nil {
		repositoryEnvironment.Error(clientFailureTemplateConstant, ErrClientNotConfigured)
		return repositoryEnvironment, nil
	}

	repository, repositoryError := client.GetRepository(executionContext, owner, name)
	if repositoryError != nil {
		repositoryEnvironment.Error(repositoryFailureTemplateConstant, owner, name, repositoryError)
		return repositoryEnvironment, nil
	}

	branch, branchError := client.GetBranch(executionContext, owner, name, branchName)
	if branchError != nil {
		repositoryEnvironment.Error(branchFailureTemplateConstant, branchName, owner, name, branchError)
		return repositoryEnvironment, nil
	}

	repositoryEnvironment.repository = &repository
	repositoryEnvironment.branch = &branch
	repositoryEnvironment.Success(resolvedTemplateConstant, repositoryEnvironment.label(), branch.Commit.SHA)
	return repositoryEnvironment, nil
}

// Name identifies the environment.
func (repositoryEnvironment *Environment) Name() string {
	return fmt.Sprintf(environmentNameTemplateConstant, environmentNamePrefixConstant, repositoryEnvironment.owner, repositoryEnvironment.name, repositoryEnvironment.branchName)
}

// RepositoryInitialised reports whether both the repository and the branch resolved.
func (repositoryEnvironment *Environment) RepositoryInitialised() bool {
	return repositoryEnvironment.repository != nil && repositoryEnvironment.branch != nil
}

// Repository returns the resolved repository.
func (repositoryEnvironment *Environment) Repository() (githubcli.Repository, bool) {
	if !repositoryEnvironment.RepositoryInitialised() {
		return githubcli.Repository{}, false
	}
	return *repositoryEnvironment.repository, true
}

// Branch returns the resolved branch.
func (repositoryEnvironment *Environment) Branch() (githubcli.Branch, bool) {
	if !repositoryEnvironment.RepositoryInitialised() {
		return githubcli.Branch{}, false
	}
	return *repositoryEnvironment.branch, true
}

// MaxConcurrentExecutions reports that nothing can be executed.
func (repositoryEnvironment *Environment) MaxConcurrentExecutions() int {
	return environment.ConcurrencyNotApplicable
}

// OperatingSystem describes the repository rather than a running system.
func (repositoryEnvironment *Environment) OperatingSystem() environment.OperatingSystem {
	operatingSystem := environment.OperatingSystem{Family: repositoryFamilyConstant}
	if repositoryEnvironment.RepositoryInitialised() {
		operatingSystem.PrettyName = repositoryEnvironment.label()
	}
	return operatingSystem
}

// Execute is not supported.
func (repositoryEnvironment *Environment) Execute(_ context.Context, command string, _ []string, _ ...environment.EnvironmentVariable) (environment.ExecutionResult, error) {
	return environment.ExecutionResult{}, repositoryEnvironment.unsupported(executeOperationConstant, command)
}

// ExecuteAsUser is not supported.
func (repositoryEnvironment *Environment) ExecuteAsUser(_ context.Context, command string, _ []string, _ string, _ string) (environment.ExecutionResult, error) {
	return environment.ExecutionResult{}, repositoryEnvironment.unsupported(executeAsUserOperationConstant, command)
}

// GetContent lists path at the branch. Any API failure is reported as a debug diagnostic and reads as an empty
// listing.
func (repositoryEnvironment *Environment) GetContent(executionContext context.Context, contentPath string) ([]githubcli.ContentEntry, error) {
	if readinessError := repositoryEnvironment.requireInitialised(getContentOperationConstant, contentPath); readinessError != nil {
		return nil, readinessError
	}
	return repositoryEnvironment.getContent(executionContext, repositoryPath(contentPath)), nil
}

// FileExists is true when the listing of path is the file itself.
func (repositoryEnvironment *Environment) FileExists(executionContext context.Context, filePath string) (bool, error) {
	if readinessError := repositoryEnvironment.requireInitialised(fileExistsOperationConstant, filePath); readinessError != nil {
		return false, readinessError
	}
	trimmedPath := repositoryPath(filePath)
	listing := repositoryEnvironment.getContent(executionContext, trimmedPath)
	exists := len(listing) > 0 && listing[0].Path == trimmedPath
	repositoryEnvironment.Debug(probeTemplateConstant, fileExistsOperationConstant, trimmedPath, repositoryEnvironment.label(), exists, len(listing))
	return exists, nil
}

// DirectoryExists is true when the listing of path holds entries and is not the single file at path.
func (repositoryEnvironment *Environment) DirectoryExists(executionContext context.Context, directoryPath string) (bool, error) {
	if readinessError := repositoryEnvironment.requireInitialised(directoryExistsOperationConstant, directoryPath); readinessError != nil {
		return false, readinessError
	}
	trimmedPath := repositoryPath(directoryPath)
	listing := repositoryEnvironment.getContent(executionContext, trimmedPath)
	exists := len(listing) > 0 && !denotesFile(listing, trimmedPath)
	repositoryEnvironment.Debug(probeTemplateConstant, directoryExistsOperationConstant, trimmedPath, repositoryEnvironment.label(), exists, len(listing))
	return exists, nil
}

// ConstructFile returns a handle for path resolved against the repository root.
func (repositoryEnvironment *Environment) ConstructFile(filePath string) environment.FileHandle {
	return environment.NewFile(repositoryEnvironment, repositoryEnvironment.resolve(filePath))
}

// ConstructDirectory returns a handle for path resolved against the repository root.
func (repositoryEnvironment *Environment) ConstructDirectory(directoryPath string) environment.DirectoryHandle {
	return environment.NewDirectory(repositoryEnvironment, repositoryEnvironment.resolve(directoryPath))
}

// ReadFilesAsText issues one content call per file.
func (repositoryEnvironment *Environment) ReadFilesAsText(executionContext context.Context, files []environment.FileHandle) (map[environment.FileHandle]string, error) {
	if readinessError := repositoryEnvironment.requireInitialised(readFileOperationConstant, repositoryEnvironment.label()); readinessError != nil {
		return nil, readinessError
	}
	return environment.ReadAll(executionContext, files)
}

// ReadFileAsText fetches the file and decodes its payload.
func (repositoryEnvironment *Environment) ReadFileAsText(executionContext context.Context, filePath string) (string, error) {
	if readinessError := repositoryEnvironment.requireInitialised(readFileOperationConstant, filePath); readinessError != nil {
		return "", readinessError
	}
	trimmedPath := repositoryPath(filePath)
	listing := repositoryEnvironment.getContent(executionContext, trimmedPath)
	if !denotesFile(listing, trimmedPath) {
		repositoryEnvironment.Error(readFailureTemplateConstant, trimmedPath, repositoryEnvironment.label(), fileMissingMessageConstant)
		return "", environment.NewInvocationFailedError(repositoryEnvironment.Name(), readFileOperationConstant, trimmedPath, errors.New(fileMissingMessageConstant))
	}
	contents, decodingError := listing[0].DecodedContent()
	if decodingError != nil {
		repositoryEnvironment.Error(readFailureTemplateConstant, trimmedPath, repositoryEnvironment.label(), decodingError)
		return "", environment.NewInvocationFailedError(repositoryEnvironment.Name(), readFileOperationConstant, trimmedPath, decodingError)
	}
	return contents, nil
}

// ListEntries returns the entries of the requested kind directly inside directoryPath as absolute repository paths.
func (repositoryEnvironment *Environment) ListEntries(executionContext context.Context, directoryPath string, kind environment.EntryKind) ([]string, error) {
	if readinessError := repositoryEnvironment.requireInitialised(listDirectoryOperationConstant, directoryPath); readinessError != nil {
		return nil, readinessError
	}
	trimmedPath := repositoryPath(directoryPath)
	listing := repositoryEnvironment.getContent(executionContext, trimmedPath)
	if denotesFile(listing, trimmedPath) {
		return nil, nil
	}

	wantedType := githubcli.ContentTypeFile
	if kind == environment.EntryKindDirectory {
		wantedType = githubcli.ContentTypeDirectory
	}
	entryPaths := make([]string, 0, len(listing))
	for _, entry := range listing {
		if entry.Type == wantedType {
			entryPaths = append(entryPaths, rootPathConstant+entry.Path)
		}
	}
	return entryPaths, nil
}

// GetFileAsLocal writes the decoded file to localPath on the local host and verifies it is there.
func (repositoryEnvironment *Environment) GetFileAsLocal(executionContext context.Context, remotePath string, localPath string) (environment.FileHandle, error) {
	if readinessError := repositoryEnvironment.requireInitialised(copyFileOperationConstant, remotePath); readinessError != nil {
		return nil, readinessError
	}
	if repositoryEnvironment.host == nil {
		repositoryEnvironment.Error(copyFailureTemplateConstant, remotePath, repositoryEnvironment.label(), localPath, localHostMissingMessageConstant)
		return nil, environment.NewPreconditionFailedError(repositoryEnvironment.Name(), copyFileOperationConstant, localHostMissingMessageConstant)
	}

	resolvedPath := repositoryEnvironment.resolve(remotePath)
	contents, readError := repositoryEnvironment.ReadFileAsText(executionContext, resolvedPath)
	if readError != nil {
		return nil, readError
	}
	if writeError := repositoryEnvironment.host.WriteFile(executionContext, localPath, []byte(contents)); writeError != nil {
		repositoryEnvironment.Error(copyFailureTemplateConstant, resolvedPath, repositoryEnvironment.label(), localPath, writeError)
		return nil, environment.NewInvocationFailedError(repositoryEnvironment.Name(), copyFileOperationConstant, localPath, writeError)
	}

	present, probeError := repositoryEnvironment.host.FileExists(executionContext, localPath)
	if probeError != nil || !present {
		verificationError := probeError
		if verificationError == nil {
			verificationError = errors.New(destinationMissingMessageConstant)
		}
		repositoryEnvironment.Error(copyFailureTemplateConstant, resolvedPath, repositoryEnvironment.label(), localPath, verificationError)
		return nil, environment.NewInvocationFailedError(repositoryEnvironment.Name(), copyFileOperationConstant, localPath, verificationError)
	}
	repositoryEnvironment.Debug(copySucceededTemplateConstant, resolvedPath, repositoryEnvironment.label(), localPath)
	return repositoryEnvironment.host.ConstructFile(localPath), nil
}

func (repositoryEnvironment *Environment) getContent(executionContext context.Context, trimmedPath string) []githubcli.ContentEntry {
	listing, contentError := repositoryEnvironment.client.GetContent(executionContext, repositoryEnvironment.owner, repositoryEnvironment.name, repositoryEnvironment.branchName, trimmedPath)
	if contentError != nil {
		repositoryEnvironment.Debug(contentFailureTemplateConstant, trimmedPath, repositoryEnvironment.label(), contentError)
		return nil
	}
	return listing
}

func (repositoryEnvironment *Environment) requireInitialised(operation string, target string) error {
	if repositoryEnvironment.RepositoryInitialised() {
		return nil
	}
	repositoryEnvironment.Error(notInitialisedTemplateConstant, operation, target, repositoryEnvironment.owner, repositoryEnvironment.name)
	return environment.NewPreconditionFailedError(repositoryEnvironment.Name(), operation, notInitialisedMessageConstant)
}

func (repositoryEnvironment *Environment) unsupported(operation string, command string) error {
	repositoryEnvironment.Error(executionUnsupportedTemplateConstant, operation, command, repositoryEnvironment.owner, repositoryEnvironment.name)
	return environment.NewUnsupportedOperationError(repositoryEnvironment.Name(), operation, executionUnsupportedMessageConstant)
}

func (repositoryEnvironment *Environment) resolve(targetPath string) string {
	return environment.ResolvePath(repositoryEnvironment.root, targetPath)
}

func (repositoryEnvironment *Environment) label() string {
	return fmt.Sprintf(repositoryLabelTemplateConstant, repositoryEnvironment.owner, repositoryEnvironment.name, repositoryEnvironment.branchName)
}

// repositoryPath drops leading and trailing separators, matching how the contents API addresses a path.
func repositoryPath(targetPath string) string {
	return strings.Trim(targetPath, rootPathConstant)
}

// denotesFile reports whether the listing is the single file at trimmedPath.
func denotesFile(listing []githubcli.ContentEntry, trimmedPath string) bool {
	return len(listing) == 1 && listing[0].Path == trimmedPath && !listing[0].IsDirectory()
}
