package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
	"github.com/temirov/rtfr/internal/readme"
)

const (
	unresolvedRevisionTemplateConstant    = "README %s has no revision at or before %s"
	acknowledgementSkippedMessageConstant = "Skipping unresolvable acknowledgement"
	readmeLogFieldConstant                = "readme"
	acknowledgedLogFieldConstant          = "acknowledged"
)

var (
	// ErrResolverOracleNotConfigured indicates the resolver was built without an oracle.
	ErrResolverOracleNotConfigured = errors.New("resolver oracle not configured")
	// ErrReadmeRevisionUnresolved indicates the README has no committed revision reachable from the commit.
	ErrReadmeRevisionUnresolved = errors.New("README revision unresolved")
)

type distanceKey struct {
	from string
	to   string
}

type distanceEntry struct {
	distance int
	err      error
}

type historyKey struct {
	revision string
	path     string
}

type historyEntry struct {
	summaries []gitrepo.CommitSummary
	err       error
}

// AcknowledgementResolver decides whether an identity has read the README revision in force at a commit.
// Ancestry and path-history answers are memoized for the resolver's lifetime, so one resolver serves one run.
type AcknowledgementResolver struct {
	oracle        ResolverOracle
	snapshot      acknowledgement.Snapshot
	canonicalizer identity.Canonicalizer
	historyLimit  int
	logger        *zap.Logger

	mutex     sync.Mutex
	distances map[distanceKey]distanceEntry
	histories map[historyKey]historyEntry
}

// NewAcknowledgementResolver constructs a resolver over one acknowledgement snapshot.
func NewAcknowledgementResolver(oracle ResolverOracle, snapshot acknowledgement.Snapshot, canonicalizer identity.Canonicalizer, historyLimit int, logger *zap.Logger) (*AcknowledgementResolver, error) {
	if oracle == nil {
		return nil, ErrResolverOracleNotConfigured
	}
	if canonicalizer == nil {
		canonicalizer = identity.ExactCanonicalizer{}
	}
	if historyLimit <= 0 {
		historyLimit = readme.DefaultPathHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcknowledgementResolver{
		oracle:        oracle,
		snapshot:      snapshot,
		canonicalizer: canonicalizer,
		historyLimit:  historyLimit,
		logger:        logger,
		distances:     map[distanceKey]distanceEntry{},
		histories:     map[historyKey]historyEntry{},
	}, nil
}

// Resolve compares the identity's acknowledgements and own README edits against the README revision in force at commit.
func (resolver *AcknowledgementResolver) Resolve(executionContext context.Context, commit string, reader identity.Identity, declaration readme.Declaration) (Resolution, error) {
	readmeRevision, revisionError := resolver.readmeRevision(executionContext, commit, declaration)
	if revisionError != nil {
		return Resolution{}, revisionError
	}

	resolution := Resolution{
		Identity:             reader,
		ReadmePath:           declaration.Path,
		ReadmeRevision:       readmeRevision,
		AcknowledgedDistance: StaleDistance,
		LastEditDistance:     StaleDistance,
	}

	for _, acknowledged := range resolver.snapshot.Commits(reader, declaration.Path) {
		distance, distanceError := resolver.distance(executionContext, acknowledged, readmeRevision)
		if distanceError != nil {
			resolver.logger.Debug(acknowledgementSkippedMessageConstant, zap.String(readmeLogFieldConstant, declaration.Path), zap.String(acknowledgedLogFieldConstant, acknowledged), zap.Error(distanceError))
			continue
		}
		if distance < resolution.AcknowledgedDistance {
			resolution.Acknowledged = acknowledged
			resolution.AcknowledgedDistance = distance
		}
	}

	lastEdit, lastEditError := resolver.lastEdit(executionContext, commit, reader, declaration.Path)
	if lastEditError != nil {
		return Resolution{}, lastEditError
	}
	if len(lastEdit) > 0 {
		distance, distanceError := resolver.distance(executionContext, lastEdit, readmeRevision)
		if distanceError != nil {
			return Resolution{}, distanceError
		}
		resolution.LastEdit = lastEdit
		resolution.LastEditDistance = distance
	}

	resolution.State = classify(resolution)
	return resolution, nil
}

func classify(resolution Resolution) ResolutionState {
	switch {
	case resolution.AcknowledgedDistance == 0 || resolution.LastEditDistance == 0:
		return ResolutionStateCurrent
	case len(resolution.Acknowledged) == 0 && len(resolution.LastEdit) == 0:
		return ResolutionStateNeverAcknowledged
	default:
		return ResolutionStateStale
	}
}

func (resolver *AcknowledgementResolver) readmeRevision(executionContext context.Context, commit string, declaration readme.Declaration) (string, error) {
	if len(declaration.Revision) > 0 {
		return declaration.Revision, nil
	}
	summaries, historyError := resolver.pathHistory(executionContext, commit, declaration.Path)
	if historyError != nil {
		return "", historyError
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf(unresolvedRevisionTemplateConstant+": %w", declaration.Path, commit, ErrReadmeRevisionUnresolved)
	}
	return summaries[0].Hash, nil
}

// lastEdit finds the reader's most recent non-merge commit touching readmePath at or before commit.
func (resolver *AcknowledgementResolver) lastEdit(executionContext context.Context, commit string, reader identity.Identity, readmePath string) (string, error) {
	summaries, historyError := resolver.pathHistory(executionContext, commit, readmePath)
	if historyError != nil {
		return "", historyError
	}
	for _, summary := range summaries {
		if summary.IsMerge() {
			continue
		}
		if identity.Same(resolver.canonicalizer, summary.Author, reader) {
			return summary.Hash, nil
		}
	}
	return "", nil
}

func (resolver *AcknowledgementResolver) pathHistory(executionContext context.Context, revision string, readmePath string) ([]gitrepo.CommitSummary, error) {
	key := historyKey{revision: revision, path: readmePath}
	resolver.mutex.Lock()
	cached, exists := resolver.histories[key]
	resolver.mutex.Unlock()
	if exists {
		return cached.summaries, cached.err
	}

	summaries, historyError := resolver.oracle.PathHistory(executionContext, revision, readmePath, resolver.historyLimit)
	if errors.Is(historyError, context.Canceled) || errors.Is(historyError, context.DeadlineExceeded) {
		return nil, historyError
	}

	resolver.mutex.Lock()
	resolver.histories[key] = historyEntry{summaries: summaries, err: historyError}
	resolver.mutex.Unlock()
	return summaries, historyError
}

func (resolver *AcknowledgementResolver) distance(executionContext context.Context, from string, to string) (int, error) {
	if from == to {
		return 0, nil
	}
	key := distanceKey{from: from, to: to}
	resolver.mutex.Lock()
	cached, exists := resolver.distances[key]
	resolver.mutex.Unlock()
	if exists {
		return cached.distance, cached.err
	}

	distance, distanceError := resolver.oracle.AncestryDistance(executionContext, from, to)
	if errors.Is(distanceError, context.Canceled) || errors.Is(distanceError, context.DeadlineExceeded) {
		return 0, distanceError
	}

	resolver.mutex.Lock()
	resolver.distances[key] = distanceEntry{distance: distance, err: distanceError}
	resolver.mutex.Unlock()
	return distance, distanceError
}
