// Package gitrepo parses references to hosted git repositories.
//
// A reference may be written as owner/name or as an HTTPS or SSH remote URL;
// the github audit backend uses it to accept whatever form an operator copies
// from a browser or a git remote listing.
package gitrepo
