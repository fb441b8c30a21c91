// Package gitrepotest provides an in-memory commit graph answering the same
// history queries as gitrepo.HistoryOracle.
package gitrepotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	unknownRevisionOperationConstant    = "resolve-revision"
	duplicateCommitTemplateConstant     = "commit %s already exists"
	unknownParentTemplateConstant       = "parent %s of %s does not exist"
	revisionRangeTemplateConstant       = "%s..%s"
	revisionPathTemplateConstant        = "%s:%s"
	fileContentOperationConstant        = "file-content"
	configuredIdentityOperationConstant = "configured-identity"
	commitSummaryOperationConstant      = "commit-summary"
	changedFilesOperationConstant       = "changed-files"
	ancestryDistanceOperationConstant   = "ancestry-distance"
	pathHistoryOperationConstant        = "path-history"
	listCommitsOperationConstant        = "list-commits"
)

// ErrUnknownRevision indicates a revision that is not part of the graph.
var ErrUnknownRevision = errors.New("unknown revision")

// Change describes one file write or deletion applied by a commit.
type Change struct {
	Path    string
	Content string
	Delete  bool
}

// Write sets path to content.
func Write(path string, content string) Change {
	return Change{Path: path, Content: content}
}

// Remove deletes path.
func Remove(path string) Change {
	return Change{Path: path, Delete: true}
}

type commitNode struct {
	summary gitrepo.CommitSummary
	tree    map[string]string
	order   int
}

// Repository is a mutable in-memory commit graph. Commits must be added parents first.
// Merge commits start from their first parent's tree; callers list the changes the merge brings in.
type Repository struct {
	mutex      sync.Mutex
	commits    map[string]*commitNode
	head       string
	configured identity.Identity
	queryCount int
}

// NewRepository creates an empty graph.
func NewRepository() *Repository {
	return &Repository{commits: map[string]*commitNode{}}
}

// Commit adds a commit on top of parents and moves HEAD to it.
func (repository *Repository) Commit(hash string, author identity.Identity, parents []string, changes ...Change) error {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()

	if _, exists := repository.commits[hash]; exists {
		return fmt.Errorf(duplicateCommitTemplateConstant, hash)
	}

	tree := map[string]string{}
	for parentIndex, parentHash := range parents {
		parentNode, parentExists := repository.commits[parentHash]
		if !parentExists {
			return fmt.Errorf(unknownParentTemplateConstant, parentHash, hash)
		}
		if parentIndex == 0 {
			for path, content := range parentNode.tree {
				tree[path] = content
			}
		}
	}
	for _, change := range changes {
		if change.Delete {
			delete(tree, change.Path)
			continue
		}
		tree[change.Path] = change.Content
	}

	repository.commits[hash] = &commitNode{
		summary: gitrepo.CommitSummary{Hash: hash, Parents: append([]string{}, parents...), Author: author},
		tree:    tree,
		order:   len(repository.commits),
	}
	repository.head = hash
	return nil
}

// MustCommit is Commit for test setup and panics on error.
func (repository *Repository) MustCommit(hash string, author identity.Identity, parents []string, changes ...Change) {
	if commitError := repository.Commit(hash, author, parents, changes...); commitError != nil {
		panic(commitError)
	}
}

// SetHead moves HEAD to an existing commit.
func (repository *Repository) SetHead(hash string) error {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	if _, exists := repository.commits[hash]; !exists {
		return gitrepo.QueryError{Operation: unknownRevisionOperationConstant, Target: hash, Cause: ErrUnknownRevision}
	}
	repository.head = hash
	return nil
}

// SetConfiguredIdentity sets the identity ConfiguredIdentity reports.
func (repository *Repository) SetConfiguredIdentity(configured identity.Identity) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.configured = configured
}

// QueryCount returns how many history queries have been answered.
func (repository *Repository) QueryCount() int {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	return repository.queryCount
}

// IsRepository always reports true.
func (repository *Repository) IsRepository(context.Context) (bool, error) {
	return true, nil
}

// ListCommits returns commits reachable from HEAD, newest first.
func (repository *Repository) ListCommits(_ context.Context, limit int) ([]string, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	if len(repository.head) == 0 {
		return nil, gitrepo.QueryError{Operation: listCommitsOperationConstant, Target: gitrepo.HeadRevision, Cause: ErrUnknownRevision}
	}

	ordered := repository.newestFirst(repository.ancestors(repository.head))
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

// CommitSummary returns the parents and author of a revision.
func (repository *Repository) CommitSummary(_ context.Context, revision string) (gitrepo.CommitSummary, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	node, resolveError := repository.resolve(commitSummaryOperationConstant, revision)
	if resolveError != nil {
		return gitrepo.CommitSummary{}, resolveError
	}
	summary := node.summary
	summary.Parents = append([]string{}, summary.Parents...)
	return summary, nil
}

// ChangedFiles lists paths whose content differs between base and commit, sorted.
func (repository *Repository) ChangedFiles(_ context.Context, base string, commit string) ([]string, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	target := fmt.Sprintf(revisionRangeTemplateConstant, base, commit)
	baseTree := map[string]string{}
	if base != gitrepo.EmptyTreeHash {
		baseNode, baseError := repository.resolve(changedFilesOperationConstant, base)
		if baseError != nil {
			return nil, gitrepo.QueryError{Operation: changedFilesOperationConstant, Target: target, Cause: ErrUnknownRevision}
		}
		baseTree = baseNode.tree
	}
	targetNode, commitError := repository.resolve(changedFilesOperationConstant, commit)
	if commitError != nil {
		return nil, gitrepo.QueryError{Operation: changedFilesOperationConstant, Target: target, Cause: ErrUnknownRevision}
	}
	return diffTrees(baseTree, targetNode.tree), nil
}

// FileContent returns path's content at commit.
func (repository *Repository) FileContent(_ context.Context, commit string, path string) (string, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	node, resolveError := repository.resolve(fileContentOperationConstant, commit)
	if resolveError != nil {
		return "", resolveError
	}
	content, exists := node.tree[path]
	if !exists {
		return "", gitrepo.QueryError{Operation: fileContentOperationConstant, Target: fmt.Sprintf(revisionPathTemplateConstant, commit, path), Cause: gitrepo.ErrPathAbsent}
	}
	return content, nil
}

// AncestryDistance counts commits reachable from to but not from from.
func (repository *Repository) AncestryDistance(_ context.Context, from string, to string) (int, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	fromNode, fromError := repository.resolve(ancestryDistanceOperationConstant, from)
	if fromError != nil {
		return 0, fromError
	}
	toNode, toError := repository.resolve(ancestryDistanceOperationConstant, to)
	if toError != nil {
		return 0, toError
	}

	excluded := repository.ancestors(fromNode.summary.Hash)
	distance := 0
	for hash := range repository.ancestors(toNode.summary.Hash) {
		if _, isExcluded := excluded[hash]; !isExcluded {
			distance++
		}
	}
	return distance, nil
}

// PathHistory returns commits reachable from revision that touched path, newest first.
// Merges identical to one parent are hidden and only that parent is followed, as git log does by default.
func (repository *Repository) PathHistory(_ context.Context, revision string, path string, limit int) ([]gitrepo.CommitSummary, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	startNode, resolveError := repository.resolve(pathHistoryOperationConstant, revision)
	if resolveError != nil {
		return nil, resolveError
	}

	touching := map[string]struct{}{}
	visited := map[string]struct{}{}
	pending := []string{startNode.summary.Hash}
	for len(pending) > 0 {
		currentHash := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := visited[currentHash]; seen {
			continue
		}
		visited[currentHash] = struct{}{}

		node := repository.commits[currentHash]
		content, exists := node.tree[path]
		parents := node.summary.Parents
		if len(parents) == 0 {
			if exists {
				touching[currentHash] = struct{}{}
			}
			continue
		}

		sameParent := ""
		for _, parentHash := range parents {
			parentContent, parentExists := repository.commits[parentHash].tree[path]
			if parentExists == exists && parentContent == content {
				sameParent = parentHash
				break
			}
		}
		if len(sameParent) > 0 {
			pending = append(pending, sameParent)
			continue
		}
		touching[currentHash] = struct{}{}
		pending = append(pending, parents...)
	}

	ordered := repository.newestFirst(touching)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	summaries := make([]gitrepo.CommitSummary, 0, len(ordered))
	for _, hash := range ordered {
		summaries = append(summaries, repository.commits[hash].summary)
	}
	return summaries, nil
}

// ConfiguredIdentity returns the identity set through SetConfiguredIdentity.
func (repository *Repository) ConfiguredIdentity(context.Context) (identity.Identity, error) {
	repository.mutex.Lock()
	defer repository.mutex.Unlock()
	repository.queryCount++

	if repository.configured.Validate() != nil {
		return identity.Identity{}, gitrepo.QueryError{Operation: configuredIdentityOperationConstant, Target: repository.configured.String(), Cause: gitrepo.ErrIdentityNotConfigured}
	}
	return repository.configured, nil
}

func (repository *Repository) resolve(operation string, revision string) (*commitNode, error) {
	hash := revision
	if revision == gitrepo.HeadRevision {
		hash = repository.head
	}
	node, exists := repository.commits[hash]
	if !exists {
		return nil, gitrepo.QueryError{Operation: operation, Target: revision, Cause: ErrUnknownRevision}
	}
	return node, nil
}

func (repository *Repository) ancestors(hash string) map[string]struct{} {
	reachable := map[string]struct{}{}
	pending := []string{hash}
	for len(pending) > 0 {
		currentHash := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, seen := reachable[currentHash]; seen {
			continue
		}
		reachable[currentHash] = struct{}{}
		pending = append(pending, repository.commits[currentHash].summary.Parents...)
	}
	return reachable
}

// newestFirst orders hashes by reverse insertion, which is a topological order because parents precede children.
func (repository *Repository) newestFirst(hashes map[string]struct{}) []string {
	ordered := make([]string, 0, len(hashes))
	for hash := range hashes {
		ordered = append(ordered, hash)
	}
	sort.Slice(ordered, func(leftIndex int, rightIndex int) bool {
		return repository.commits[ordered[leftIndex]].order > repository.commits[ordered[rightIndex]].order
	})
	return ordered
}

func diffTrees(baseTree map[string]string, commitTree map[string]string) []string {
	changed := make([]string, 0)
	for path, content := range commitTree {
		if baseContent, exists := baseTree[path]; !exists || baseContent != content {
			changed = append(changed, path)
		}
	}
	for path := range baseTree {
		if _, exists := commitTree[path]; !exists {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}
