package gitrepo

import (
	"fmt"
	"strings"
)

const (
	sshProtocolPrefixConstant       = "ssh://"
	httpsProtocolPrefixConstant     = "https://"
	sshUserDelimiterConstant        = "@"
	sshPathDelimiterConstant        = ":"
	pathSeparatorConstant           = "/"
	gitSuffixConstant               = ".git"
	parseErrorTemplateConstant      = "%q: %s"
	referenceTemplateConstant       = "%s/%s"
	requiredValueMessageConstant    = "repository reference is required"
	invalidReferenceMessageConstant = "expected owner/name or a remote url"
)

// Protocol identifies how a reference was written.
type Protocol string

// Supported reference forms.
const (
	ProtocolShorthand Protocol = "shorthand"
	ProtocolSSH       Protocol = "ssh"
	ProtocolHTTPS     Protocol = "https"
)

// Reference names a hosted repository. Host is empty for the owner/name shorthand.
type Reference struct {
	Protocol   Protocol
	Host       string
	Owner      string
	Repository string
}

// String renders the reference as owner/name.
func (reference Reference) String() string {
	return fmt.Sprintf(referenceTemplateConstant, reference.Owner, reference.Repository)
}

// ParseError indicates a reference could not be parsed.
type ParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseReference accepts owner/name, https://host/owner/name[.git], git@host:owner/name[.git] and
// ssh://git@host/owner/name[.git].
func ParseReference(value string) (Reference, error) {
	trimmedValue := strings.TrimSpace(value)
	switch {
	case len(trimmedValue) == 0:
		return Reference{}, ParseError{Input: value, Message: requiredValueMessageConstant}
	case strings.HasPrefix(trimmedValue, sshProtocolPrefixConstant):
		return parseSSH(value, strings.TrimPrefix(trimmedValue, sshProtocolPrefixConstant))
	case strings.HasPrefix(trimmedValue, httpsProtocolPrefixConstant):
		return parseHTTPS(value, strings.TrimPrefix(trimmedValue, httpsProtocolPrefixConstant))
	case strings.Contains(trimmedValue, sshUserDelimiterConstant):
		return parseSSH(value, trimmedValue)
	default:
		owner, repository, splitError := splitOwnerAndRepository(value, trimmedValue)
		if splitError != nil {
			return Reference{}, splitError
		}
		return Reference{Protocol: ProtocolShorthand, Owner: owner, Repository: repository}, nil
	}
}

// IsReference reports whether value carries an owner as well as a repository name.
func IsReference(value string) bool {
	return strings.Contains(strings.TrimSpace(value), pathSeparatorConstant)
}

func parseSSH(input string, remote string) (Reference, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return Reference{}, ParseError{Input: input, Message: invalidReferenceMessageConstant}
	}
	hostAndPath := remote[userSplitIndex+1:]

	splitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	if splitIndex == -1 {
		splitIndex = strings.Index(hostAndPath, pathSeparatorConstant)
	}
	if splitIndex <= 0 {
		return Reference{}, ParseError{Input: input, Message: invalidReferenceMessageConstant}
	}

	owner, repository, splitError := splitOwnerAndRepository(input, hostAndPath[splitIndex+1:])
	if splitError != nil {
		return Reference{}, splitError
	}
	return Reference{Protocol: ProtocolSSH, Host: hostAndPath[:splitIndex], Owner: owner, Repository: repository}, nil
}

func parseHTTPS(input string, remote string) (Reference, error) {
	host, repositoryPath, found := strings.Cut(remote, pathSeparatorConstant)
	if !found || len(host) == 0 {
		return Reference{}, ParseError{Input: input, Message: invalidReferenceMessageConstant}
	}
	owner, repository, splitError := splitOwnerAndRepository(input, strings.TrimSuffix(repositoryPath, pathSeparatorConstant))
	if splitError != nil {
		return Reference{}, splitError
	}
	return Reference{Protocol: ProtocolHTTPS, Host: host, Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(input string, repositoryPath string) (string, string, error) {
	segments := strings.Split(repositoryPath, pathSeparatorConstant)
	if len(segments) != 2 || len(segments[0]) == 0 {
		return "", "", ParseError{Input: input, Message: invalidReferenceMessageConstant}
	}
	repository := strings.TrimSuffix(segments[1], gitSuffixConstant)
	if len(repository) == 0 {
		return "", "", ParseError{Input: input, Message: invalidReferenceMessageConstant}
	}
	return segments[0], repository, nil
}
