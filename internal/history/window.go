package history

import (
	"context"
	"errors"
	"strings"
)

const (
	// DefaultWindowLimit is the number of most recent commits replayed when no limit is configured.
	DefaultWindowLimit = 100
)

// ErrCommitListerNotConfigured indicates a window was requested without a commit lister.
var ErrCommitListerNotConfigured = errors.New("commit lister not configured")

// CommitLister lists commit hashes reachable from HEAD, newest first in topological order.
type CommitLister interface {
	ListCommits(executionContext context.Context, limit int) ([]string, error)
}

// WindowOptions bound the replayed history.
type WindowOptions struct {
	// Boundary is the oldest commit to replay. Empty means no boundary.
	Boundary string
	Limit    int
}

// Window is the ordered set of commits to replay, oldest first.
type Window struct {
	Commits       []string
	StartsAtRoot  bool
	BoundaryFound bool
}

// ResolveWindow selects the newest Limit commits, cut at the boundary commit inclusively when it is among them.
// The window starts at the repository root when no boundary cut happened and the whole history fits.
func ResolveWindow(executionContext context.Context, lister CommitLister, options WindowOptions) (Window, error) {
	if lister == nil {
		return Window{}, ErrCommitListerNotConfigured
	}
	limit := options.Limit
	if limit <= 0 {
		limit = DefaultWindowLimit
	}

	newestFirst, listError := lister.ListCommits(executionContext, limit+1)
	if listError != nil {
		return Window{}, listError
	}

	window := Window{}
	boundary := strings.ToLower(strings.TrimSpace(options.Boundary))
	if len(boundary) > 0 {
		for commitIndex, hash := range newestFirst {
			if commitIndex < limit && strings.EqualFold(hash, boundary) {
				newestFirst = newestFirst[:commitIndex+1]
				window.BoundaryFound = true
				break
			}
		}
	}

	window.StartsAtRoot = !window.BoundaryFound && len(newestFirst) <= limit
	if len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}

	window.Commits = make([]string, 0, len(newestFirst))
	for commitIndex := len(newestFirst) - 1; commitIndex >= 0; commitIndex-- {
		window.Commits = append(window.Commits, newestFirst[commitIndex])
	}
	return window, nil
}
