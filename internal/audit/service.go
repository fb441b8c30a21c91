package audit

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/history"
	"github.com/temirov/rtfr/internal/workspace"
)

const (
	commitLogFieldConstant               = "commit"
	workspaceLogFieldConstant            = "workspace"
	windowSizeLogFieldConstant           = "commits"
	startsAtRootLogFieldConstant         = "starts_at_root"
	boundaryFoundLogFieldConstant        = "boundary_found"
	violationsLogFieldConstant           = "violations"
	seedFailedMessageConstant            = "Unable to read README from the work tree"
	resyncFailedMessageConstant          = "Unable to resynchronize README declarations"
	refreshFailedMessageConstant         = "Unable to refresh README declaration"
	resolutionSkippedMessageConstant     = "Skipping README that could not be resolved"
	windowResolvedMessageConstant        = "Replaying commit window"
	checkCompletedMessageConstant        = "README check completed"
	boundaryNotInWindowMessageConstant   = "Boundary commit not found in the replayed window"
	readmeDiscoveryFailedMessageConstant = "README discovery failed"
	changesFailedMessageConstant         = "Unable to list files changed by commit"
)

// ErrViolationsDetected indicates the check found contributors who did not read a governing README.
var ErrViolationsDetected = errors.New("some READMEs have not been read")

// Service replays a workspace's commit window and reports unread READMEs.
type Service struct {
	oracle      HistoryOracle
	discoverer  ReadmeDiscoverer
	reader      WorktreeReader
	logger      *zap.Logger
	errorWriter io.Writer
}

// NewService constructs a Service using the provided dependencies.
func NewService(oracle HistoryOracle, discoverer ReadmeDiscoverer, reader WorktreeReader, logger *zap.Logger, errorWriter io.Writer) (*Service, error) {
	if oracle == nil {
		return nil, ErrResolverOracleNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorWriter == nil {
		errorWriter = io.Discard
	}
	return &Service{oracle: oracle, discoverer: discoverer, reader: reader, logger: logger, errorWriter: errorWriter}, nil
}

// Run checks the workspace, renders any violations to the error writer, and returns ErrViolationsDetected when
// there were some.
func (service *Service) Run(executionContext context.Context, options CommandOptions, config workspace.Config, snapshot acknowledgement.Snapshot) error {
	workspaceContext, checkError := service.Check(executionContext, options, config, snapshot)
	if checkError != nil {
		return checkError
	}
	if !workspaceContext.Reporter.HasViolations() {
		return nil
	}
	if flushError := workspaceContext.Reporter.Flush(service.errorWriter); flushError != nil {
		return flushError
	}
	return ErrViolationsDetected
}

// Check replays the commit window and returns the run state with every violation recorded.
func (service *Service) Check(executionContext context.Context, options CommandOptions, config workspace.Config, snapshot acknowledgement.Snapshot) (*WorkspaceContext, error) {
	workspaceContext, contextError := NewWorkspaceContext(service.oracle, config, snapshot, options, service.logger)
	if contextError != nil {
		return nil, contextError
	}

	if seedError := service.seed(workspaceContext); seedError != nil {
		return nil, seedError
	}

	boundary := strings.TrimSpace(options.Boundary)
	if len(boundary) == 0 {
		boundary = config.Init
	}
	window, windowError := history.ResolveWindow(executionContext, service.oracle, history.WindowOptions{Boundary: boundary, Limit: options.HistoryLimit})
	if windowError != nil {
		return nil, windowError
	}
	service.logger.Debug(windowResolvedMessageConstant,
		zap.Int(windowSizeLogFieldConstant, len(window.Commits)),
		zap.Bool(startsAtRootLogFieldConstant, window.StartsAtRoot),
		zap.Bool(boundaryFoundLogFieldConstant, window.BoundaryFound),
	)
	if len(boundary) > 0 && !window.BoundaryFound {
		service.logger.Warn(boundaryNotInWindowMessageConstant, zap.String(commitLogFieldConstant, boundary))
	}

	walker, walkerError := history.NewWalker(service.oracle, service.logger)
	if walkerError != nil {
		return nil, walkerError
	}
	visitor := history.VisitorFunc(func(visitContext context.Context, commit *history.Commit) error {
		return service.visitCommit(visitContext, workspaceContext, commit)
	})
	if _, walkError := walker.Walk(executionContext, window, visitor); walkError != nil {
		return nil, walkError
	}

	service.logger.Debug(checkCompletedMessageConstant, zap.String(workspaceLogFieldConstant, options.WorkspaceRoot), zap.Int(violationsLogFieldConstant, len(workspaceContext.Reporter.Violations())))
	return workspaceContext, nil
}

// seed registers the READMEs found on disk with their current content.
func (service *Service) seed(workspaceContext *WorkspaceContext) error {
	if service.discoverer == nil {
		return nil
	}
	readmePaths, discoveryError := service.discoverer.Discover(workspaceContext.Root, workspaceContext.Config.Readme, workspaceContext.Config.Ignore)
	if discoveryError != nil {
		service.logger.Warn(readmeDiscoveryFailedMessageConstant, zap.String(workspaceLogFieldConstant, workspaceContext.Root), zap.Error(discoveryError))
		return nil
	}
	for _, readmePath := range readmePaths {
		if service.reader == nil {
			workspaceContext.Tracker.AddCandidate(readmePath)
			continue
		}
		content, readError := service.reader.ReadFile(filepath.Join(workspaceContext.Root, filepath.FromSlash(readmePath)))
		if readError != nil {
			service.logger.Warn(seedFailedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.Error(readError))
			workspaceContext.Tracker.AddCandidate(readmePath)
			continue
		}
		workspaceContext.Tracker.Seed(readmePath, string(content))
	}
	return nil
}

// visitCommit brings README declarations up to date with commit and then evaluates it.
// A commit whose first parent was replayed starts from the declarations recorded after that parent and refreshes the
// READMEs it touches. Merges and commits whose first parent was not replayed recompute every declaration from their
// own ancestry. Merges are never evaluated.
func (service *Service) visitCommit(executionContext context.Context, workspaceContext *WorkspaceContext, commit *history.Commit) error {
	changedFiles, changesError := commit.ChangedFiles(executionContext)
	if changesError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		service.logger.Warn(changesFailedMessageConstant, zap.String(commitLogFieldConstant, commit.Hash), zap.Error(changesError))
		if !commit.IsMerge() {
			return nil
		}
		changedFiles = nil
	}

	for _, changedFile := range changedFiles {
		if workspaceContext.IsReadme(changedFile) {
			workspaceContext.Tracker.AddCandidate(changedFile)
		}
	}

	parentState, parentReplayed := workspaceContext.parentState(commit)
	if commit.IsMerge() || !parentReplayed {
		if resyncError := workspaceContext.Tracker.Resync(executionContext, commit.Hash); resyncError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			service.logger.Warn(resyncFailedMessageConstant, zap.String(commitLogFieldConstant, commit.Hash), zap.Error(resyncError))
		}
	} else {
		workspaceContext.Tracker.Restore(parentState)
		for _, changedFile := range changedFiles {
			if !workspaceContext.Tracker.IsCandidate(changedFile) {
				continue
			}
			if refreshError := workspaceContext.Tracker.Refresh(executionContext, changedFile, commit.Hash); refreshError != nil {
				if contextError := executionContext.Err(); contextError != nil {
					return contextError
				}
				service.logger.Warn(refreshFailedMessageConstant, zap.String(readmeLogFieldConstant, changedFile), zap.String(commitLogFieldConstant, commit.Hash), zap.Error(refreshError))
			}
		}
	}
	workspaceContext.replayed[commit.Hash] = workspaceContext.Tracker.Declarations()

	if commit.IsMerge() {
		return nil
	}
	return service.evaluate(executionContext, workspaceContext, commit, changedFiles)
}

// evaluate resolves every README governing a changed file in parallel and records violations in declaration order.
func (service *Service) evaluate(executionContext context.Context, workspaceContext *WorkspaceContext, commit *history.Commit, changedFiles []string) error {
	declarations := workspaceContext.Tracker.Declarations()
	results := make([][]Violation, len(declarations))

	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(max(workspaceContext.Options.Workers, 1))
	for declarationIndex, declaration := range declarations {
		governedFiles := workspaceContext.GovernedFiles(declaration, changedFiles)
		if len(governedFiles) == 0 {
			continue
		}
		group.Go(func() error {
			resolution, resolveError := workspaceContext.Resolver.Resolve(groupContext, commit.Hash, commit.Author, declaration)
			if resolveError != nil {
				if contextError := groupContext.Err(); contextError != nil {
					return contextError
				}
				service.logger.Warn(resolutionSkippedMessageConstant, zap.String(readmeLogFieldConstant, declaration.Path), zap.String(commitLogFieldConstant, commit.Hash), zap.Error(resolveError))
				return nil
			}
			if !resolution.Violation() {
				return nil
			}
			slot := make([]Violation, 0, len(governedFiles))
			for _, governedFile := range governedFiles {
				slot = append(slot, Violation{Identity: commit.Author, ReadmePath: declaration.Path, Commit: commit.Hash, File: governedFile})
			}
			results[declarationIndex] = slot
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return waitError
	}

	for _, slot := range results {
		for _, violation := range slot {
			workspaceContext.Reporter.Record(violation)
		}
	}
	return nil
}
