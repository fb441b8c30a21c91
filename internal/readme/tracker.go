package readme

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/gitrepo"
)

const (
	// DefaultPathHistoryLimit caps how far back the latest README revision is searched.
	DefaultPathHistoryLimit = 1000

	worktreeRevisionConstant          = ""
	readmeLogFieldConstant            = "readme"
	commitLogFieldConstant            = "commit"
	tokenLogFieldConstant             = "token"
	reasonLogFieldConstant            = "reason"
	rejectedTokenMessageConstant      = "README annotation truncated at invalid token"
	declarationRemovedMessageConstant = "README no longer declares patterns"
	declarationAbsentMessageConstant  = "README absent at commit"
)

// ErrContentSourceNotConfigured indicates the tracker was built without a content source.
var ErrContentSourceNotConfigured = errors.New("README content source not configured")

// ContentSource reads README content and history at a revision.
type ContentSource interface {
	FileContent(executionContext context.Context, commit string, path string) (string, error)
	PathHistory(executionContext context.Context, revision string, path string, limit int) ([]gitrepo.CommitSummary, error)
}

// Declaration is the pattern set a README declares at one point of history.
type Declaration struct {
	Path        string
	Patterns    []string
	Revision    string
	ExtractedAt string
}

// Directory returns the workspace-relative directory patterns are anchored at.
func (declaration Declaration) Directory() string {
	return path.Dir(declaration.Path)
}

// FromWorktree reports whether the declaration was read from disk rather than from a commit.
func (declaration Declaration) FromWorktree() bool {
	return declaration.ExtractedAt == worktreeRevisionConstant
}

// PatternTracker holds the candidate README paths and the declarations currently in force.
// A path stays a candidate after its declaration is dropped so a later commit can bring it back.
type PatternTracker struct {
	source       ContentSource
	logger       *zap.Logger
	historyLimit int

	mutex        sync.RWMutex
	candidates   map[string]struct{}
	declarations map[string]Declaration
}

// NewPatternTracker constructs a tracker reading history through source.
func NewPatternTracker(source ContentSource, logger *zap.Logger, historyLimit int) (*PatternTracker, error) {
	if source == nil {
		return nil, ErrContentSourceNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyLimit <= 0 {
		historyLimit = DefaultPathHistoryLimit
	}
	return &PatternTracker{
		source:       source,
		logger:       logger,
		historyLimit: historyLimit,
		candidates:   map[string]struct{}{},
		declarations: map[string]Declaration{},
	}, nil
}

// AddCandidate registers a README path without reading it.
func (tracker *PatternTracker) AddCandidate(readmePath string) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.candidates[readmePath] = struct{}{}
}

// IsCandidate reports whether readmePath is tracked.
func (tracker *PatternTracker) IsCandidate(readmePath string) bool {
	tracker.mutex.RLock()
	defer tracker.mutex.RUnlock()
	_, exists := tracker.candidates[readmePath]
	return exists
}

// Seed registers readmePath and extracts its declaration from on-disk content.
func (tracker *PatternTracker) Seed(readmePath string, content string) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.candidates[readmePath] = struct{}{}
	tracker.applyLocked(readmePath, content, worktreeRevisionConstant, worktreeRevisionConstant)
}

// Remove drops readmePath entirely, candidate included.
func (tracker *PatternTracker) Remove(readmePath string) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	delete(tracker.candidates, readmePath)
	delete(tracker.declarations, readmePath)
}

// Refresh re-reads readmePath at commit, which must touch the README, and replaces its declaration.
// The declaration is dropped when the README is absent at commit, declares nothing, or cannot be read;
// only the last case returns an error.
func (tracker *PatternTracker) Refresh(executionContext context.Context, readmePath string, commit string) error {
	tracker.AddCandidate(readmePath)
	return tracker.refreshAt(executionContext, readmePath, commit, commit)
}

// Resync recomputes every candidate's declaration as of commit, using the latest commit at or before it that
// touched each README as the revision. Failures drop the affected declarations and are joined into the result.
func (tracker *PatternTracker) Resync(executionContext context.Context, commit string) error {
	var resyncErrors []error
	for _, readmePath := range tracker.Candidates() {
		history, historyError := tracker.source.PathHistory(executionContext, commit, readmePath, 1)
		if historyError != nil {
			tracker.drop(readmePath)
			resyncErrors = append(resyncErrors, historyError)
			continue
		}
		if len(history) == 0 {
			tracker.drop(readmePath)
			continue
		}
		if refreshError := tracker.refreshAt(executionContext, readmePath, commit, history[0].Hash); refreshError != nil {
			resyncErrors = append(resyncErrors, refreshError)
		}
	}
	return errors.Join(resyncErrors...)
}

// Restore replaces the declarations in force with declarations, typically the state recorded after a parent commit.
// Candidates are kept.
func (tracker *PatternTracker) Restore(declarations []Declaration) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.declarations = make(map[string]Declaration, len(declarations))
	for _, declaration := range declarations {
		tracker.candidates[declaration.Path] = struct{}{}
		tracker.declarations[declaration.Path] = copyDeclaration(declaration)
	}
}

// Candidates returns the tracked README paths, sorted.
func (tracker *PatternTracker) Candidates() []string {
	tracker.mutex.RLock()
	defer tracker.mutex.RUnlock()
	candidates := make([]string, 0, len(tracker.candidates))
	for candidate := range tracker.candidates {
		candidates = append(candidates, candidate)
	}
	sort.Strings(candidates)
	return candidates
}

// Declarations returns a copy of the declarations in force, sorted by path.
func (tracker *PatternTracker) Declarations() []Declaration {
	tracker.mutex.RLock()
	defer tracker.mutex.RUnlock()
	declarations := make([]Declaration, 0, len(tracker.declarations))
	for _, declaration := range tracker.declarations {
		declarations = append(declarations, copyDeclaration(declaration))
	}
	sort.Slice(declarations, func(leftIndex int, rightIndex int) bool {
		return declarations[leftIndex].Path < declarations[rightIndex].Path
	})
	return declarations
}

// Declaration returns the declaration in force for readmePath.
func (tracker *PatternTracker) Declaration(readmePath string) (Declaration, bool) {
	tracker.mutex.RLock()
	defer tracker.mutex.RUnlock()
	declaration, exists := tracker.declarations[readmePath]
	if !exists {
		return Declaration{}, false
	}
	return copyDeclaration(declaration), true
}

func (tracker *PatternTracker) refreshAt(executionContext context.Context, readmePath string, contentCommit string, revision string) error {
	content, contentError := tracker.source.FileContent(executionContext, contentCommit, readmePath)
	if contentError != nil {
		tracker.drop(readmePath)
		if errors.Is(contentError, gitrepo.ErrPathAbsent) {
			tracker.logger.Debug(declarationAbsentMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.String(commitLogFieldConstant, contentCommit))
			return nil
		}
		return contentError
	}

	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	tracker.applyLocked(readmePath, content, revision, contentCommit)
	return nil
}

func (tracker *PatternTracker) applyLocked(readmePath string, content string, revision string, extractedAt string) {
	extraction := Extract(content)
	for _, rejected := range extraction.Rejected {
		tracker.logger.Debug(rejectedTokenMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.String(tokenLogFieldConstant, rejected.Token), zap.String(reasonLogFieldConstant, rejected.Reason))
	}
	if len(extraction.Patterns) == 0 {
		if _, existed := tracker.declarations[readmePath]; existed {
			tracker.logger.Debug(declarationRemovedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.String(commitLogFieldConstant, extractedAt))
		}
		delete(tracker.declarations, readmePath)
		return
	}
	tracker.declarations[readmePath] = Declaration{
		Path:        readmePath,
		Patterns:    extraction.Patterns,
		Revision:    revision,
		ExtractedAt: extractedAt,
	}
}

func (tracker *PatternTracker) drop(readmePath string) {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	delete(tracker.declarations, readmePath)
}

func copyDeclaration(declaration Declaration) Declaration {
	declaration.Patterns = append([]string{}, declaration.Patterns...)
	return declaration
}
