package history

import (
	"context"
	"sync"

	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
)

// ChangeSource lists the files that differ between two revisions.
type ChangeSource interface {
	ChangedFiles(executionContext context.Context, base string, commit string) ([]string, error)
}

// Commit is one replayed commit. Its changed files are computed on first use and cached.
type Commit struct {
	Hash    string
	Parents []string
	Author  identity.Identity
	// Index is the commit's position in the window, zero for the oldest.
	Index int

	diffBase     string
	changeSource ChangeSource
	changesOnce  sync.Once
	changedFiles []string
	changesError error
}

// NewCommit builds a Commit whose changed files are the diff of diffBase against it.
func NewCommit(summary gitrepo.CommitSummary, index int, diffBase string, changeSource ChangeSource) *Commit {
	return &Commit{
		Hash:         summary.Hash,
		Parents:      append([]string{}, summary.Parents...),
		Author:       summary.Author,
		Index:        index,
		diffBase:     diffBase,
		changeSource: changeSource,
	}
}

// IsMerge reports whether the commit has two or more parents.
func (commit *Commit) IsMerge() bool {
	return len(commit.Parents) > 1
}

// IsRoot reports whether the commit has no parents.
func (commit *Commit) IsRoot() bool {
	return len(commit.Parents) == 0
}

// DiffBase returns the revision changed files are computed against.
func (commit *Commit) DiffBase() string {
	return commit.diffBase
}

// ChangedFiles returns the workspace-relative paths this commit changed.
func (commit *Commit) ChangedFiles(executionContext context.Context) ([]string, error) {
	commit.changesOnce.Do(func() {
		if commit.changeSource == nil {
			commit.changedFiles = []string{}
			return
		}
		commit.changedFiles, commit.changesError = commit.changeSource.ChangedFiles(executionContext, commit.diffBase, commit.Hash)
	})
	return commit.changedFiles, commit.changesError
}

// diffBaseFor picks the first parent, or the empty tree for parentless commits and for a window that starts at the root.
func diffBaseFor(summary gitrepo.CommitSummary, index int, startsAtRoot bool) string {
	if len(summary.Parents) == 0 || (index == 0 && startsAtRoot) {
		return gitrepo.EmptyTreeHash
	}
	return summary.Parents[0]
}
