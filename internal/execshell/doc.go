// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging and timeouts via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines the abstractions
// the audit environments use to run docker, chroot, sudo, and gh in a testable
// manner.
package execshell
