package audit

import (
	"context"

	"github.com/temirov/rtfr/internal/gitrepo"
)

// HistoryOracle is the subset of repository history the check pipeline queries.
type HistoryOracle interface {
	ListCommits(executionContext context.Context, limit int) ([]string, error)
	CommitSummary(executionContext context.Context, revision string) (gitrepo.CommitSummary, error)
	ChangedFiles(executionContext context.Context, base string, commit string) ([]string, error)
	FileContent(executionContext context.Context, commit string, path string) (string, error)
	AncestryDistance(executionContext context.Context, from string, to string) (int, error)
	PathHistory(executionContext context.Context, revision string, path string, limit int) ([]gitrepo.CommitSummary, error)
}

// ResolverOracle answers the ancestry questions the resolver asks.
type ResolverOracle interface {
	AncestryDistance(executionContext context.Context, from string, to string) (int, error)
	PathHistory(executionContext context.Context, revision string, path string, limit int) ([]gitrepo.CommitSummary, error)
}

// ReadmeDiscoverer finds README files under a workspace.
type ReadmeDiscoverer interface {
	Discover(root string, readmePatterns []string, ignorePatterns []string) ([]string, error)
}

// WorktreeReader reads workspace files from disk.
type WorktreeReader interface {
	ReadFile(path string) ([]byte, error)
}
