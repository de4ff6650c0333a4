// Package environment defines the contract shared by every audit target.
//
// An AuditEnvironment discovers files and directories and executes commands
// against a target: the local host, a container reached through the runtime
// client, or a hosted repository reached through its API. Results use a
// tri-state ExecutionResult, failures use OperationError, and diagnostics are
// delivered to an injected MessageHandler.
package environment
