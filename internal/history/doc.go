// Package history selects the window of commits an audit replays and walks it
// oldest first, resolving each commit's parents, author and changed files.
package history
