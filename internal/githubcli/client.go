package githubcli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/temirov/devaudit/internal/execshell"
)

const (
	apiSubcommandConstant                   = "api"
	acceptHeaderFlagConstant                = "-H"
	acceptHeaderValueConstant               = "Accept: application/vnd.github+json"
	tokenEnvironmentVariableConstant        = "GH_TOKEN"
	repositoryEndpointTemplateConstant      = "repos/%s/%s"
	branchEndpointTemplateConstant          = "repos/%s/%s/branches/%s"
	contentsEndpointTemplateConstant        = "repos/%s/%s/contents%s?ref=%s"
	pathSeparatorConstant                   = "/"
	ownerFieldNameConstant                  = "owner"
	repositoryFieldNameConstant             = "repository"
	branchFieldNameConstant                 = "branch"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	unsupportedEncodingTemplateConstant     = "unsupported content encoding %q for %s"
	base64EncodingConstant                  = "base64"
	listingOpenBracketConstant              = '['
	getRepositoryOperationNameConstant      = OperationName("GetRepository")
	getBranchOperationNameConstant          = OperationName("GetBranch")
	getContentOperationNameConstant         = OperationName("GetContent")
)

// Content entry types reported by the contents API.
const (
	ContentTypeFile      = "file"
	ContentTypeDirectory = "dir"
	ContentTypeSymlink   = "symlink"
	ContentTypeSubmodule = "submodule"
)

// OperationName describes a named GitHub API call supported by the client.
type OperationName string

// Repository contains the repository fields the audit uses.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Branch contains the branch fields the audit uses.
type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Commit    struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// ContentEntry is one entry returned by the contents API. File entries fetched individually carry their content.
type ContentEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	SHA      string `json:"sha"`
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// IsDirectory reports whether the entry is a directory.
func (entry ContentEntry) IsDirectory() bool {
	return entry.Type == ContentTypeDirectory
}

// DecodedContent returns the file content. The API wraps base64 payloads across lines.
func (entry ContentEntry) DecodedContent() (string, error) {
	switch entry.Encoding {
	case "":
		return entry.Content, nil
	case base64EncodingConstant:
		compactPayload := strings.NewReplacer("\n", "", "\r", "").Replace(entry.Content)
		decoded, decodingError := base64.StdEncoding.DecodeString(compactPayload)
		if decodingError != nil {
			return "", decodingError
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf(unsupportedEncodingTemplateConstant, entry.Encoding, entry.Path)
	}
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client issues GitHub REST calls through `gh api`.
type Client struct {
	executor       GitHubCommandExecutor
	token          string
	requestTimeout time.Duration
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub API operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a client. An empty token leaves gh to its own authentication.
func NewClient(executor GitHubCommandExecutor, token string) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor, token: strings.TrimSpace(token)}, nil
}

// SetRequestTimeout bounds every API call. Zero disables the bound.
func (client *Client) SetRequestTimeout(timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	client.requestTimeout = timeout
}

// GetRepository resolves a repository.
func (client *Client) GetRepository(executionContext context.Context, owner string, name string) (Repository, error) {
	if validationError := validateRepository(owner, name); validationError != nil {
		return Repository{}, validationError
	}
	endpoint := fmt.Sprintf(repositoryEndpointTemplateConstant, url.PathEscape(strings.TrimSpace(owner)), url.PathEscape(strings.TrimSpace(name)))

	var repository Repository
	if requestError := client.getJSON(executionContext, getRepositoryOperationNameConstant, endpoint, &repository); requestError != nil {
		return Repository{}, requestError
	}
	return repository, nil
}

// GetBranch resolves a branch of a repository.
func (client *Client) GetBranch(executionContext context.Context, owner string, name string, branch string) (Branch, error) {
	if validationError := validateRepository(owner, name); validationError != nil {
		return Branch{}, validationError
	}
	trimmedBranch := strings.TrimSpace(branch)
	if len(trimmedBranch) == 0 {
		return Branch{}, InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	endpoint := fmt.Sprintf(branchEndpointTemplateConstant, url.PathEscape(strings.TrimSpace(owner)), url.PathEscape(strings.TrimSpace(name)), url.PathEscape(trimmedBranch))

	var resolvedBranch Branch
	if requestError := client.getJSON(executionContext, getBranchOperationNameConstant, endpoint, &resolvedBranch); requestError != nil {
		return Branch{}, requestError
	}
	return resolvedBranch, nil
}

// GetContent lists a repository path at a branch. A directory yields its entries and a file yields one entry
// carrying its content. The empty path lists the repository root.
func (client *Client) GetContent(executionContext context.Context, owner string, name string, branch string, contentPath string) ([]ContentEntry, error) {
	if validationError := validateRepository(owner, name); validationError != nil {
		return nil, validationError
	}
	trimmedBranch := strings.TrimSpace(branch)
	if len(trimmedBranch) == 0 {
		return nil, InvalidInputError{FieldName: branchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	endpoint := fmt.Sprintf(contentsEndpointTemplateConstant,
		url.PathEscape(strings.TrimSpace(owner)), url.PathEscape(strings.TrimSpace(name)),
		escapeContentPath(contentPath), url.QueryEscape(trimmedBranch))

	responseBody, requestError := client.get(executionContext, getContentOperationNameConstant, endpoint)
	if requestError != nil {
		return nil, requestError
	}

	trimmedBody := bytes.TrimSpace(responseBody)
	if len(trimmedBody) > 0 && trimmedBody[0] == listingOpenBracketConstant {
		var entries []ContentEntry
		if decodingError := json.Unmarshal(trimmedBody, &entries); decodingError != nil {
			return nil, ResponseDecodingError{Operation: getContentOperationNameConstant, Cause: decodingError}
		}
		return entries, nil
	}

	var entry ContentEntry
	if decodingError := json.Unmarshal(trimmedBody, &entry); decodingError != nil {
		return nil, ResponseDecodingError{Operation: getContentOperationNameConstant, Cause: decodingError}
	}
	return []ContentEntry{entry}, nil
}

func (client *Client) getJSON(executionContext context.Context, operation OperationName, endpoint string, target any) error {
	responseBody, requestError := client.get(executionContext, operation, endpoint)
	if requestError != nil {
		return requestError
	}
	if decodingError := json.Unmarshal(responseBody, target); decodingError != nil {
		return ResponseDecodingError{Operation: operation, Cause: decodingError}
	}
	return nil
}

func (client *Client) get(executionContext context.Context, operation OperationName, endpoint string) ([]byte, error) {
	if client.requestTimeout > 0 {
		var cancel context.CancelFunc
		executionContext, cancel = context.WithTimeout(executionContext, client.requestTimeout)
		defer cancel()
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{apiSubcommandConstant, endpoint, acceptHeaderFlagConstant, acceptHeaderValueConstant},
	}
	if len(client.token) > 0 {
		commandDetails.EnvironmentVariables = map[string]string{tokenEnvironmentVariableConstant: client.token}
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return nil, OperationError{Operation: operation, Cause: executionError}
	}
	return []byte(executionResult.StandardOutput), nil
}

func validateRepository(owner string, name string) error {
	if len(strings.TrimSpace(owner)) == 0 {
		return InvalidInputError{FieldName: ownerFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(name)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}

// escapeContentPath escapes each segment and returns the path with a leading separator, or nothing for the root.
func escapeContentPath(contentPath string) string {
	trimmedPath := strings.Trim(strings.TrimSpace(contentPath), pathSeparatorConstant)
	if len(trimmedPath) == 0 {
		return ""
	}
	segments := strings.Split(trimmedPath, pathSeparatorConstant)
	for index, segment := range segments {
		segments[index] = url.PathEscape(segment)
	}
	return pathSeparatorConstant + strings.Join(segments, pathSeparatorConstant)
}
