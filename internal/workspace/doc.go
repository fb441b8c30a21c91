// Package workspace reads and writes the per-workspace .rtfrrc configuration:
// README and ignore globs, the optional history boundary commit and the
// acknowledgement server location.
package workspace
