package githubcli_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/devaudit/internal/execshell"
	"github.com/temirov/devaudit/internal/githubcli"
)

const (
	testOwnerConstant          = "acme"
	testRepositoryConstant     = "portal"
	testBranchConstant         = "release/7.x"
	testTokenConstant          = "ghp_example"
	testAcceptHeaderConstant   = "Accept: application/vnd.github+json"
	testRepositoryBodyConstant = `{"id":42,"name":"portal","full_name":"acme/portal","private":true,"default_branch":"main","owner":{"login":"acme"}}`
	testBranchBodyConstant     = `{"name":"release/7.x","protected":false,"commit":{"sha":"4b825dc"}}`
	testDirectoryBodyConstant  = `[{"name":"config.yml","path":"config.yml","type":"file","size":12,"sha":"a1"},{"name":"modules","path":"modules","type":"dir","size":0,"sha":"b2"}]`
)

type stubGitHubExecutor struct {
	executeFunc     func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error)
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitHubExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executeFunc != nil {
		return executor.executeFunc(executionContext, details)
	}
	return execshell.ExecutionResult{}, nil
}

func respondWith(body string) func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{StandardOutput: body}, nil
	}
}

func TestNewClientValidation(testInstance *testing.T) {
	testInstance.Run("nil_executor", func(testInstance *testing.T) {
		client, creationError := githubcli.NewClient(nil, testTokenConstant)
		require.ErrorIs(testInstance, creationError, githubcli.ErrExecutorNotConfigured)
		require.Nil(testInstance, client)
	})
}

func TestGetRepository(testInstance *testing.T) {
	testCases := []struct {
		name          string
		owner         string
		repository    string
		executor      *stubGitHubExecutor
		expectedError any
		verify        func(testInstance *testing.T, repository githubcli.Repository, executor *stubGitHubExecutor)
	}{
		{
			name:       "resolves",
			owner:      testOwnerConstant,
			repository: testRepositoryConstant,
			executor:   &stubGitHubExecutor{executeFunc: respondWith(testRepositoryBodyConstant)},
			verify: func(testInstance *testing.T, repository githubcli.Repository, executor *stubGitHubExecutor) {
				require.Equal(testInstance, "acme/portal", repository.FullName)
				require.Equal(testInstance, "main", repository.DefaultBranch)
				require.Equal(testInstance, "acme", repository.Owner.Login)
				require.True(testInstance, repository.Private)
				require.Len(testInstance, executor.recordedDetails, 1)
				require.Equal(testInstance, []string{"api", "repos/acme/portal", "-H", testAcceptHeaderConstant}, executor.recordedDetails[0].Arguments)
				require.Equal(testInstance, map[string]string{"GH_TOKEN": testTokenConstant}, executor.recordedDetails[0].EnvironmentVariables)
			},
		},
		{
			name:          "decode_failure",
			owner:         testOwnerConstant,
			repository:    testRepositoryConstant,
			executor:      &stubGitHubExecutor{executeFunc: respondWith("not json")},
			expectedError: githubcli.ResponseDecodingError{},
		},
		{
			name:       "command_failure",
			owner:      testOwnerConstant,
			repository: testRepositoryConstant,
			executor: &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, errors.New("HTTP 404: Not Found")
			}},
			expectedError: githubcli.OperationError{},
		},
		{
			name:          "missing_owner",
			repository:    testRepositoryConstant,
			executor:      &stubGitHubExecutor{},
			expectedError: githubcli.InvalidInputError{},
		},
		{
			name:          "missing_repository",
			owner:         testOwnerConstant,
			executor:      &stubGitHubExecutor{},
			expectedError: githubcli.InvalidInputError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, creationError := githubcli.NewClient(testCase.executor, testTokenConstant)
			require.NoError(testInstance, creationError)

			repository, operationError := client.GetRepository(context.Background(), testCase.owner, testCase.repository)
			if testCase.expectedError != nil {
				require.Error(testInstance, operationError)
				require.IsType(testInstance, testCase.expectedError, operationError)
				return
			}
			require.NoError(testInstance, operationError)
			testCase.verify(testInstance, repository, testCase.executor)
		})
	}
}

func TestGetBranch(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executeFunc: respondWith(testBranchBodyConstant)}
	client, creationError := githubcli.NewClient(executor, "")
	require.NoError(testInstance, creationError)

	branch, branchError := client.GetBranch(context.Background(), testOwnerConstant, testRepositoryConstant, testBranchConstant)
	require.NoError(testInstance, branchError)
	require.Equal(testInstance, "4b825dc", branch.Commit.SHA)
	require.Equal(testInstance, "repos/acme/portal/branches/release%2F7.x", executor.recordedDetails[0].Arguments[1])
	require.Nil(testInstance, executor.recordedDetails[0].EnvironmentVariables)

	_, missingError := client.GetBranch(context.Background(), testOwnerConstant, testRepositoryConstant, " ")
	require.IsType(testInstance, githubcli.InvalidInputError{}, missingError)
	require.Len(testInstance, executor.recordedDetails, 1)
}

func TestGetContent(testInstance *testing.T) {
	encodedContent := base64.StdEncoding.EncodeToString([]byte("database:\n  host: db\n"))
	fileBody := `{"name":"config.yml","path":"config.yml","type":"file","size":22,"sha":"a1","encoding":"base64","content":"` +
		encodedContent[:8] + `\n` + encodedContent[8:] + `"}`

	testCases := []struct {
		name             string
		contentPath      string
		body             string
		expectedEndpoint string
		verify           func(testInstance *testing.T, entries []githubcli.ContentEntry)
	}{
		{
			name:             "directory_listing",
			contentPath:      "",
			body:             testDirectoryBodyConstant,
			expectedEndpoint: "repos/acme/portal/contents?ref=release%2F7.x",
			verify: func(testInstance *testing.T, entries []githubcli.ContentEntry) {
				require.Len(testInstance, entries, 2)
				require.False(testInstance, entries[0].IsDirectory())
				require.True(testInstance, entries[1].IsDirectory())
			},
		},
		{
			name:             "single_file",
			contentPath:      "/config.yml",
			body:             fileBody,
			expectedEndpoint: "repos/acme/portal/contents/config.yml?ref=release%2F7.x",
			verify: func(testInstance *testing.T, entries []githubcli.ContentEntry) {
				require.Len(testInstance, entries, 1)
				require.Equal(testInstance, "config.yml", entries[0].Path)
				decoded, decodingError := entries[0].DecodedContent()
				require.NoError(testInstance, decodingError)
				require.Equal(testInstance, "database:\n  host: db\n", decoded)
			},
		},
		{
			name:             "escaped_segments",
			contentPath:      "sites/all/my module",
			body:             "[]",
			expectedEndpoint: "repos/acme/portal/contents/sites/all/my%20module?ref=release%2F7.x",
			verify: func(testInstance *testing.T, entries []githubcli.ContentEntry) {
				require.Empty(testInstance, entries)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executeFunc: respondWith(testCase.body)}
			client, creationError := githubcli.NewClient(executor, testTokenConstant)
			require.NoError(testInstance, creationError)

			entries, contentError := client.GetContent(context.Background(), testOwnerConstant, testRepositoryConstant, testBranchConstant, testCase.contentPath)
			require.NoError(testInstance, contentError)
			require.Equal(testInstance, testCase.expectedEndpoint, executor.recordedDetails[0].Arguments[1])
			testCase.verify(testInstance, entries)
		})
	}
}

func TestGetContentDecodeFailure(testInstance *testing.T) {
	client, creationError := githubcli.NewClient(&stubGitHubExecutor{executeFunc: respondWith("[{")}, "")
	require.NoError(testInstance, creationError)

	_, contentError := client.GetContent(context.Background(), testOwnerConstant, testRepositoryConstant, testBranchConstant, "modules")
	var decodingError githubcli.ResponseDecodingError
	require.ErrorAs(testInstance, contentError, &decodingError)
}

func TestDecodedContentRejectsUnknownEncoding(testInstance *testing.T) {
	_, decodingError := githubcli.ContentEntry{Path: "big.bin", Encoding: "none"}.DecodedContent()
	require.Error(testInstance, decodingError)

	plain, plainError := githubcli.ContentEntry{Content: "raw"}.DecodedContent()
	require.NoError(testInstance, plainError)
	require.Equal(testInstance, "raw", plain)
}

func TestRequestTimeoutAppliesDeadline(testInstance *testing.T) {
	executor := &stubGitHubExecutor{executeFunc: func(executionContext context.Context, _ execshell.CommandDetails) (execshell.ExecutionResult, error) {
		deadline, hasDeadline := executionContext.Deadline()
		require.True(testInstance, hasDeadline)
		require.WithinDuration(testInstance, time.Now().Add(5*time.Second), deadline, time.Second)
		return execshell.ExecutionResult{StandardOutput: testBranchBodyConstant}, nil
	}}
	client, creationError := githubcli.NewClient(executor, "")
	require.NoError(testInstance, creationError)
	client.SetRequestTimeout(5 * time.Second)

	_, branchError := client.GetBranch(context.Background(), testOwnerConstant, testRepositoryConstant, testBranchConstant)
	require.NoError(testInstance, branchError)
}
