// Package local implements the audit environment for the machine the auditor runs on.
//
// Commands are spawned through execshell and files are read from disk. When the
// auditor itself runs inside a container, paths address the host filesystem
// mounted under the host root.
package local
