// Package pathutils expands user shortcuts in configured local paths.
package pathutils
