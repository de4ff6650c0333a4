// Package githubcli reads repositories through the GitHub REST API using `gh api`.
//
// It resolves repositories and branches and lists contents at a branch,
// decoding responses into typed structures. Calls run through execshell so they
// can be stubbed in tests, and an optional token is passed as GH_TOKEN.
package githubcli
