// Package github implements the audit environment for a branch of a hosted repository.
//
// The repository and branch are resolved once through the contents API client.
// Files and directories are answered from content listings; commands cannot be
// executed, so MaxConcurrentExecutions reports that concurrency does not apply.
package github
