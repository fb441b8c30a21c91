package audit

import (
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/history"
	"github.com/temirov/rtfr/internal/readme"
	"github.com/temirov/rtfr/internal/workspace"
)

const workspaceRootDirectoryConstant = "."

// WorkspaceContext carries the state of one check run: the README declarations in force, the resolver bound to the
// run's acknowledgement snapshot, and the reporter collecting violations.
type WorkspaceContext struct {
	Root     string
	Config   workspace.Config
	Options  CommandOptions
	Tracker  *readme.PatternTracker
	Resolver *AcknowledgementResolver
	Reporter *ViolationReporter
	Matcher  readme.GlobMatcher

	// replayed holds the declarations in force after each replayed commit, keyed by commit hash.
	replayed map[string][]readme.Declaration
}

// NewWorkspaceContext prepares the per-run state for a workspace.
func NewWorkspaceContext(oracle HistoryOracle, config workspace.Config, snapshot acknowledgement.Snapshot, options CommandOptions, logger *zap.Logger) (*WorkspaceContext, error) {
	if oracle == nil {
		return nil, ErrResolverOracleNotConfigured
	}
	tracker, trackerError := readme.NewPatternTracker(oracle, logger, options.ReadmeHistoryLimit)
	if trackerError != nil {
		return nil, trackerError
	}
	resolver, resolverError := NewAcknowledgementResolver(oracle, snapshot, options.IdentityMatching.Canonicalizer(), options.ReadmeHistoryLimit, logger)
	if resolverError != nil {
		return nil, resolverError
	}
	return &WorkspaceContext{
		Root:     options.WorkspaceRoot,
		Config:   config,
		Options:  options,
		Tracker:  tracker,
		Resolver: resolver,
		Reporter: NewViolationReporter(options.Dedup, options.ColorOutput),
		Matcher:  readme.NewGlobMatcher(),
		replayed: map[string][]readme.Declaration{},
	}, nil
}

// IsReadme reports whether a changed path is a README the workspace tracks.
func (workspaceContext *WorkspaceContext) IsReadme(filePath string) bool {
	return workspaceContext.Matcher.Match(filePath, workspaceRootDirectoryConstant, workspaceContext.Config.Readme, workspaceContext.Config.Ignore)
}

// GovernedFiles returns the files among changedFiles that declaration governs.
func (workspaceContext *WorkspaceContext) GovernedFiles(declaration readme.Declaration, changedFiles []string) []string {
	var governed []string
	for _, changedFile := range changedFiles {
		if workspaceContext.Matcher.Match(changedFile, declaration.Directory(), declaration.Patterns, workspaceContext.Config.Ignore) {
			governed = append(governed, changedFile)
		}
	}
	return governed
}

// parentState returns the declarations recorded after commit's first parent was replayed.
func (workspaceContext *WorkspaceContext) parentState(commit *history.Commit) ([]readme.Declaration, bool) {
	if commit.IsRoot() {
		return nil, false
	}
	declarations, replayed := workspaceContext.replayed[commit.Parents[0]]
	return declarations, replayed
}
