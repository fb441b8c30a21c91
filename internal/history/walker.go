package history

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/gitrepo"
)

const (
	commitLogFieldConstant       = "commit"
	skippedCommitMessageConstant = "Skipping commit that could not be resolved"
	walkCompletedMessageConstant = "History walk completed"
	visitedCountLogFieldConstant = "visited"
	skippedCountLogFieldConstant = "skipped"
	windowSizeLogFieldConstant   = "window"
)

// ErrHistorySourceNotConfigured indicates the walker was built without a history source.
var ErrHistorySourceNotConfigured = errors.New("history source not configured")

// HistorySource resolves commit metadata and changed files.
type HistorySource interface {
	ChangeSource
	CommitSummary(executionContext context.Context, revision string) (gitrepo.CommitSummary, error)
}

// Visitor receives each resolved commit in replay order.
type Visitor interface {
	VisitCommit(executionContext context.Context, commit *Commit) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(executionContext context.Context, commit *Commit) error

// VisitCommit calls the function.
func (visitorFunc VisitorFunc) VisitCommit(executionContext context.Context, commit *Commit) error {
	return visitorFunc(executionContext, commit)
}

// WalkSummary counts the commits a walk visited and skipped.
type WalkSummary struct {
	Visited int
	Skipped int
}

// Walker replays a window sequentially.
type Walker struct {
	source HistorySource
	logger *zap.Logger
}

// NewWalker constructs a Walker.
func NewWalker(source HistorySource, logger *zap.Logger) (*Walker, error) {
	if source == nil {
		return nil, ErrHistorySourceNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{source: source, logger: logger}, nil
}

// Walk visits every commit of window oldest first. Non-merge commits have their changed files resolved before the
// visit; commits whose metadata or changes cannot be resolved are logged and skipped. A visitor error or context
// cancellation aborts the walk.
func (walker *Walker) Walk(executionContext context.Context, window Window, visitor Visitor) (WalkSummary, error) {
	summary := WalkSummary{}
	for commitIndex, hash := range window.Commits {
		if contextError := executionContext.Err(); contextError != nil {
			return summary, contextError
		}

		commitSummary, summaryError := walker.source.CommitSummary(executionContext, hash)
		if summaryError != nil {
			walker.logger.Warn(skippedCommitMessageConstant, zap.String(commitLogFieldConstant, hash), zap.Error(summaryError))
			summary.Skipped++
			continue
		}

		commit := NewCommit(commitSummary, commitIndex, diffBaseFor(commitSummary, commitIndex, window.StartsAtRoot), walker.source)
		if !commit.IsMerge() {
			if _, changesError := commit.ChangedFiles(executionContext); changesError != nil {
				walker.logger.Warn(skippedCommitMessageConstant, zap.String(commitLogFieldConstant, hash), zap.Error(changesError))
				summary.Skipped++
				continue
			}
		}

		if visitError := visitor.VisitCommit(executionContext, commit); visitError != nil {
			return summary, visitError
		}
		summary.Visited++
	}

	walker.logger.Debug(walkCompletedMessageConstant,
		zap.Int(windowSizeLogFieldConstant, len(window.Commits)),
		zap.Int(visitedCountLogFieldConstant, summary.Visited),
		zap.Int(skippedCountLogFieldConstant, summary.Skipped),
	)
	return summary, nil
}
