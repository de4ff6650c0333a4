package github_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/devaudit/internal/environment"
	"github.com/temirov/devaudit/internal/environment/github"
	"github.com/temirov/devaudit/internal/environment/local"
	"github.com/temirov/devaudit/internal/execshell"
	"github.com/temirov/devaudit/internal/githubcli"
)

const (
	testOwnerConstant      = "acme"
	testRepositoryConstant = "portal"
	testBranchConstant     = "main"
	testConfigConstant     = "database:\n  host: db\n"
)

// stubRepositoryClient answers content calls from a table keyed by repository-relative path; unknown paths fail
// like a 404.
type stubRepositoryClient struct {
	repositoryError error
	branchError     error
	contents        map[string][]githubcli.ContentEntry
	requestedPaths  []string
	branchRequests  int
}

func (client *stubRepositoryClient) GetRepository(_ context.Context, owner string, name string) (githubcli.Repository, error) {
	if client.repositoryError != nil {
		return githubcli.Repository{}, client.repositoryError
	}
	return githubcli.Repository{Name: name, FullName: owner + "/" + name, DefaultBranch: testBranchConstant}, nil
}

func (client *stubRepositoryClient) GetBranch(_ context.Context, _ string, _ string, branch string) (githubcli.Branch, error) {
	client.branchRequests++
	if client.branchError != nil {
		return githubcli.Branch{}, client.branchError
	}
	resolved := githubcli.Branch{Name: branch}
	resolved.Commit.SHA = "4b825dc"
	return resolved, nil
}

func (client *stubRepositoryClient) GetContent(_ context.Context, _ string, _ string, _ string, contentPath string) ([]githubcli.ContentEntry, error) {
	client.requestedPaths = append(client.requestedPaths, contentPath)
	entries, found := client.contents[contentPath]
	if !found {
		return nil, githubcli.OperationError{Operation: "GetContent", Cause: errors.New("HTTP 404: Not Found")}
	}
	return entries, nil
}

func fileEntry(entryPath string, contents string) githubcli.ContentEntry {
	return githubcli.ContentEntry{
		Name:     filepath.Base(entryPath),
		Path:     entryPath,
		Type:     githubcli.ContentTypeFile,
		Encoding: "base64",
		Content:  base64.StdEncoding.EncodeToString([]byte(contents)),
	}
}

func directoryEntry(entryPath string) githubcli.ContentEntry {
	return githubcli.ContentEntry{Name: filepath.Base(entryPath), Path: entryPath, Type: githubcli.ContentTypeDirectory}
}

func newRepositoryClient() *stubRepositoryClient {
	return &stubRepositoryClient{contents: map[string][]githubcli.ContentEntry{
		"": {
			fileEntry("config.yml", testConfigConstant),
			directoryEntry("modules"),
			fileEntry("composer.json", "{}"),
		},
		"config.yml":    {fileEntry("config.yml", testConfigConstant)},
		"composer.json": {fileEntry("composer.json", "{}")},
		"modules": {
			directoryEntry("modules/views"),
			fileEntry("modules/README.txt", "readme"),
		},
		"modules/views": {
			fileEntry("modules/views/views.info", "version = \"7.x-3.14\""),
			fileEntry("modules/views/views.module", "<?php"),
		},
		"modules/views/views.info": {fileEntry("modules/views/views.info", "version = \"7.x-3.14\"")},
	}}
}

type eventRecorder struct {
	events []environment.Event
}

func (recorder *eventRecorder) handle(event environment.Event) {
	recorder.events = append(recorder.events, event)
}

func (recorder *eventRecorder) count(severity environment.Severity) int {
	total := 0
	for _, event := range recorder.events {
		if event.Severity == severity {
			total++
		}
	}
	return total
}

func newRepositoryEnvironment(testInstance *testing.T, client *stubRepositoryClient, recorder *eventRecorder, host github.LocalHost) *github.Environment {
	testInstance.Helper()
	repositoryEnvironment, creationError := github.NewEnvironment(context.Background(), client, github.Options{
		Owner:          testOwnerConstant,
		Repository:     testRepositoryConstant,
		Branch:         testBranchConstant,
		Host:           host,
		MessageHandler: recorder.handle,
	})
	require.NoError(testInstance, creationError)
	return repositoryEnvironment
}

type noopExecutor struct{}

func (noopExecutor) Execute(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func TestNewEnvironmentResolvesRepositoryAndBranch(testInstance *testing.T) {
	recorder := &eventRecorder{}
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), recorder, nil)

	require.True(testInstance, repositoryEnvironment.RepositoryInitialised())
	repository, hasRepository := repositoryEnvironment.Repository()
	require.True(testInstance, hasRepository)
	require.Equal(testInstance, "acme/portal", repository.FullName)
	branch, hasBranch := repositoryEnvironment.Branch()
	require.True(testInstance, hasBranch)
	require.Equal(testInstance, "4b825dc", branch.Commit.SHA)
	require.Equal(testInstance, "github:acme/portal@main", repositoryEnvironment.Name())
	require.Equal(testInstance, environment.ConcurrencyNotApplicable, repositoryEnvironment.MaxConcurrentExecutions())
	require.Equal(testInstance, "acme/portal@main", repositoryEnvironment.OperatingSystem().String())
	require.Equal(testInstance, 1, recorder.count(environment.SeveritySuccess))
}

func TestNewEnvironmentResolutionFailures(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		client                 *stubRepositoryClient
		nilClient              bool
		expectedBranchRequests int
	}{
		{
			name:      "client_missing",
			nilClient: true,
		},
		{
			name:   "repository_step",
			client: &stubRepositoryClient{repositoryError: errors.New("HTTP 404: Not Found")},
		},
		{
			name:                   "branch_step",
			client:                 &stubRepositoryClient{branchError: errors.New("HTTP 404: Branch not found")},
			expectedBranchRequests: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			recorder := &eventRecorder{}
			var client github.RepositoryClient
			if !testCase.nilClient {
				client = testCase.client
			}
			repositoryEnvironment, creationError := github.NewEnvironment(context.Background(), client, github.Options{
				Owner:          testOwnerConstant,
				Repository:     testRepositoryConstant,
				Branch:         "missing",
				MessageHandler: recorder.handle,
			})
			require.NoError(testInstance, creationError)
			require.False(testInstance, repositoryEnvironment.RepositoryInitialised())
			require.Equal(testInstance, 1, recorder.count(environment.SeverityError))

			_, hasRepository := repositoryEnvironment.Repository()
			require.False(testInstance, hasRepository)
			_, hasBranch := repositoryEnvironment.Branch()
			require.False(testInstance, hasBranch)
			if testCase.client != nil {
				require.Equal(testInstance, testCase.expectedBranchRequests, testCase.client.branchRequests)
			}

			_, probeError := repositoryEnvironment.FileExists(context.Background(), "/config.yml")
			require.ErrorIs(testInstance, probeError, environment.ErrPreconditionFailed)
			_, listError := repositoryEnvironment.ConstructDirectory("/").GetFiles(context.Background(), "")
			require.ErrorIs(testInstance, listError, environment.ErrPreconditionFailed)
			_, readError := repositoryEnvironment.ConstructFile("config.yml").ReadAsText(context.Background())
			require.ErrorIs(testInstance, readError, environment.ErrPreconditionFailed)
		})
	}
}

func TestFileExistsComparesFirstEntryPath(testInstance *testing.T) {
	recorder := &eventRecorder{}
	client := newRepositoryClient()
	repositoryEnvironment := newRepositoryEnvironment(testInstance, client, recorder, nil)
	executionContext := context.Background()

	testCases := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "root_file_with_separator", path: "/config.yml", expected: true},
		{name: "relative_file", path: "composer.json", expected: true},
		{name: "directory_is_not_a_file", path: "/modules", expected: false},
		{name: "missing_file", path: "/settings.php", expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			exists, probeError := repositoryEnvironment.FileExists(executionContext, testCase.path)
			require.NoError(testInstance, probeError)
			require.Equal(testInstance, testCase.expected, exists)
		})
	}
	require.Contains(testInstance, client.requestedPaths, "config.yml")
	require.Zero(testInstance, recorder.count(environment.SeverityError))
}

func TestDirectoryExistsDistinguishesFiles(testInstance *testing.T) {
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, nil)
	executionContext := context.Background()

	testCases := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "root", path: "/", expected: true},
		{name: "directory", path: "/modules", expected: true},
		{name: "nested_directory", path: "modules/views", expected: true},
		{name: "file", path: "/config.yml", expected: false},
		{name: "file_with_trailing_separator", path: "/config.yml/", expected: false},
		{name: "directory_with_trailing_separator", path: "/modules/", expected: true},
		{name: "missing", path: "/vendor", expected: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			exists, probeError := repositoryEnvironment.DirectoryExists(executionContext, testCase.path)
			require.NoError(testInstance, probeError)
			require.Equal(testInstance, testCase.expected, exists)
		})
	}
}

func TestContentFailuresReadAsEmptyListing(testInstance *testing.T) {
	recorder := &eventRecorder{}
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), recorder, nil)

	listing, contentError := repositoryEnvironment.GetContent(context.Background(), "/vendor")
	require.NoError(testInstance, contentError)
	require.Empty(testInstance, listing)
	require.Zero(testInstance, recorder.count(environment.SeverityError))
	require.NotZero(testInstance, recorder.count(environment.SeverityDebug))
}

func TestNodesListAndRead(testInstance *testing.T) {
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, nil)
	executionContext := context.Background()
	modules := repositoryEnvironment.ConstructDirectory("modules")
	require.Equal(testInstance, "/modules", modules.Path())

	directories, directoryError := modules.GetDirectories(executionContext, "")
	require.NoError(testInstance, directoryError)
	require.Len(testInstance, directories, 1)
	require.Equal(testInstance, "/modules/views", directories[0].Path())

	manifests, listError := directories[0].GetFiles(executionContext, "*.info")
	require.NoError(testInstance, listError)
	require.Len(testInstance, manifests, 1)
	require.Equal(testInstance, "views.info", manifests[0].Name())

	contents, readError := repositoryEnvironment.ReadFilesAsText(executionContext, manifests)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "version = \"7.x-3.14\"", contents[manifests[0]])

	fileListing, fileListError := repositoryEnvironment.ConstructDirectory("/config.yml").GetFiles(executionContext, "")
	require.NoError(testInstance, fileListError)
	require.Empty(testInstance, fileListing)
}

func TestReadMissingFileFails(testInstance *testing.T) {
	recorder := &eventRecorder{}
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), recorder, nil)

	_, readError := repositoryEnvironment.ConstructFile("/modules").ReadAsText(context.Background())
	require.ErrorIs(testInstance, readError, environment.ErrInvocationFailed)
	require.Equal(testInstance, 1, recorder.count(environment.SeverityError))
}

func TestExecutionIsUnsupported(testInstance *testing.T) {
	repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, nil)

	_, executeError := repositoryEnvironment.Execute(context.Background(), "ls", nil)
	require.ErrorIs(testInstance, executeError, environment.ErrUnsupportedOperation)
	_, userError := repositoryEnvironment.ExecuteAsUser(context.Background(), "ls", nil, "www-data", "")
	require.ErrorIs(testInstance, userError, environment.ErrUnsupportedOperation)

	_, batchError := environment.ExecuteAll(context.Background(), repositoryEnvironment, []environment.Command{{Name: "ls"}})
	require.ErrorIs(testInstance, batchError, environment.ErrUnsupportedOperation)
}

func TestGetFileAsLocal(testInstance *testing.T) {
	localRoot := testInstance.TempDir()
	host, hostError := local.NewEnvironment(noopExecutor{}, local.Options{Root: localRoot, Containerization: local.ContainerizationDisabled})
	require.NoError(testInstance, hostError)
	executionContext := context.Background()

	testInstance.Run("copies_and_verifies", func(testInstance *testing.T) {
		repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, host)
		localFile, copyError := repositoryEnvironment.GetFileAsLocal(executionContext, "/config.yml", "audit/config.yml")
		require.NoError(testInstance, copyError)
		require.Equal(testInstance, host.Name(), localFile.Environment().Name())

		written, readError := os.ReadFile(filepath.Join(localRoot, "audit", "config.yml"))
		require.NoError(testInstance, readError)
		require.Equal(testInstance, testConfigConstant, string(written))
	})

	testInstance.Run("missing_remote_file", func(testInstance *testing.T) {
		repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, host)
		_, copyError := repositoryEnvironment.GetFileAsLocal(executionContext, "/settings.php", "audit/settings.php")
		require.ErrorIs(testInstance, copyError, environment.ErrInvocationFailed)
		_, statError := os.Stat(filepath.Join(localRoot, "audit", "settings.php"))
		require.True(testInstance, errors.Is(statError, os.ErrNotExist))
	})

	testInstance.Run("no_local_host", func(testInstance *testing.T) {
		repositoryEnvironment := newRepositoryEnvironment(testInstance, newRepositoryClient(), &eventRecorder{}, nil)
		_, copyError := repositoryEnvironment.GetFileAsLocal(executionContext, "/config.yml", "audit/config.yml")
		require.ErrorIs(testInstance, copyError, environment.ErrPreconditionFailed)
	})
}
