package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
	"github.com/temirov/rtfr/internal/readme"
	"github.com/temirov/rtfr/internal/utils"
	"github.com/temirov/rtfr/internal/workspace"
)

const (
	hintTemplateConstant                 = "Please read README \"./%s\" for file: %s.\n"
	readmeLogFieldConstant               = "readme"
	readmeSeedFailedMessageConstant      = "Unable to read README from the work tree"
	readmeDiscoveryFailedMessageConstant = "README discovery failed"
	identityUnavailableMessageConstant   = "Skipping hints without a configured git identity"
	resolutionSkippedMessageConstant     = "Skipping README that could not be resolved"
	readmeTrackedMessageConstant         = "Tracking README"
	readmeDroppedMessageConstant         = "README removed from the work tree"
	workspaceRootDirectoryConstant       = "."
)

// ErrOracleNotConfigured indicates the hinter was built without repository access.
var ErrOracleNotConfigured = errors.New("history oracle not configured")

// HistoryOracle answers the repository questions asked while hinting.
type HistoryOracle interface {
	readme.ContentSource
	AncestryDistance(executionContext context.Context, from string, to string) (int, error)
	ConfiguredIdentity(executionContext context.Context) (identity.Identity, error)
}

// ReadmeDiscoverer finds README files under the work tree.
type ReadmeDiscoverer interface {
	Discover(root string, readmePatterns []string, ignorePatterns []string) ([]string, error)
}

// WorktreeReader reads files from disk.
type WorktreeReader interface {
	ReadFile(path string) ([]byte, error)
}

// SnapshotLoader returns the acknowledgements in force when a batch of changes is evaluated.
type SnapshotLoader func(executionContext context.Context) acknowledgement.Snapshot

// HinterOptions configures a Hinter.
type HinterOptions struct {
	WorkspaceRoot      string
	Config             workspace.Config
	Canonicalizer      identity.Canonicalizer
	ReadmeHistoryLimit int
	Snapshots          SnapshotLoader
	Discoverer         ReadmeDiscoverer
	Reader             WorktreeReader
}

// Hinter keeps README declarations in step with the work tree and prints a hint when a changed file is governed by
// a README the configured identity has not read at its latest revision.
type Hinter struct {
	options HinterOptions
	oracle  HistoryOracle
	tracker *readme.PatternTracker
	matcher readme.GlobMatcher
	output  io.Writer
	logger  *zap.Logger

	hintedMutex sync.Mutex
	hinted      map[string]struct{}
}

// NewHinter constructs a Hinter writing hints to output.
func NewHinter(oracle HistoryOracle, options HinterOptions, output io.Writer, logger *zap.Logger) (*Hinter, error) {
	if oracle == nil {
		return nil, ErrOracleNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if output == nil {
		output = io.Discard
	}
	if options.Canonicalizer == nil {
		options.Canonicalizer = identity.ExactCanonicalizer{}
	}
	if options.Snapshots == nil {
		options.Snapshots = func(context.Context) acknowledgement.Snapshot { return acknowledgement.EmptySnapshot() }
	}
	tracker, trackerError := readme.NewPatternTracker(oracle, logger, options.ReadmeHistoryLimit)
	if trackerError != nil {
		return nil, trackerError
	}
	return &Hinter{
		options: options,
		oracle:  oracle,
		tracker: tracker,
		matcher: readme.NewGlobMatcher(),
		output:  utils.NewFlushingWriter(output),
		logger:  logger,
		hinted:  map[string]struct{}{},
	}, nil
}

// Prime seeds declarations from every README currently on disk.
func (hinter *Hinter) Prime() {
	if hinter.options.Discoverer == nil {
		return
	}
	readmePaths, discoveryError := hinter.options.Discoverer.Discover(hinter.options.WorkspaceRoot, hinter.options.Config.Readme, hinter.options.Config.Ignore)
	if discoveryError != nil {
		hinter.logger.Warn(readmeDiscoveryFailedMessageConstant, zap.Error(discoveryError))
		return
	}
	for _, readmePath := range readmePaths {
		hinter.seed(readmePath)
	}
}

// Declarations returns the README declarations currently in force.
func (hinter *Hinter) Declarations() []readme.Declaration {
	return hinter.tracker.Declarations()
}

// Handle applies a batch of changes: README edits re-extract patterns, README removals drop them, and other files
// are checked against every README that governs them.
func (hinter *Hinter) Handle(executionContext context.Context, changes []Change) error {
	var changedFiles []string
	for _, change := range changes {
		if hinter.isReadme(change.Path) {
			if change.Operation == OperationRemove {
				hinter.drop(change.Path)
				continue
			}
			hinter.seed(change.Path)
			continue
		}
		if change.Operation == OperationWrite {
			changedFiles = append(changedFiles, change.Path)
		}
	}
	if len(changedFiles) == 0 {
		return nil
	}

	governed := map[string][]string{}
	declarations := map[string]readme.Declaration{}
	for _, declaration := range hinter.tracker.Declarations() {
		for _, changedFile := range changedFiles {
			if hinter.matcher.Match(changedFile, declaration.Directory(), declaration.Patterns, hinter.options.Config.Ignore) {
				governed[declaration.Path] = append(governed[declaration.Path], changedFile)
				declarations[declaration.Path] = declaration
			}
		}
	}
	if len(governed) == 0 {
		return nil
	}

	reader, identityError := hinter.oracle.ConfiguredIdentity(executionContext)
	if identityError == nil {
		identityError = reader.Validate()
	}
	if identityError != nil {
		hinter.logger.Warn(identityUnavailableMessageConstant, zap.Error(identityError))
		return nil
	}

	resolver, resolverError := audit.NewAcknowledgementResolver(hinter.oracle, hinter.options.Snapshots(executionContext), hinter.options.Canonicalizer, hinter.options.ReadmeHistoryLimit, hinter.logger)
	if resolverError != nil {
		return resolverError
	}

	readmePaths := make([]string, 0, len(governed))
	for readmePath := range governed {
		readmePaths = append(readmePaths, readmePath)
	}
	sort.Strings(readmePaths)

	for _, readmePath := range readmePaths {
		declaration := declarations[readmePath]
		declaration.Revision = ""
		resolution, resolveError := resolver.Resolve(executionContext, gitrepo.HeadRevision, reader, declaration)
		if resolveError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			hinter.logger.Debug(resolutionSkippedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.Error(resolveError))
			continue
		}
		if !resolution.Violation() {
			continue
		}
		for _, governedFile := range governed[readmePath] {
			if !hinter.markHinted(readmePath, resolution.ReadmeRevision, governedFile) {
				continue
			}
			if _, writeError := fmt.Fprintf(hinter.output, hintTemplateConstant, readmePath, governedFile); writeError != nil {
				return writeError
			}
		}
	}
	return nil
}

// markHinted records a hint and reports whether it is new for this README revision.
func (hinter *Hinter) markHinted(readmePath string, revision string, file string) bool {
	key := strings.Join([]string{readmePath, revision, file}, "\x00")
	hinter.hintedMutex.Lock()
	defer hinter.hintedMutex.Unlock()
	if _, exists := hinter.hinted[key]; exists {
		return false
	}
	hinter.hinted[key] = struct{}{}
	return true
}

func (hinter *Hinter) isReadme(relativePath string) bool {
	return hinter.matcher.Match(relativePath, workspaceRootDirectoryConstant, hinter.options.Config.Readme, hinter.options.Config.Ignore)
}

func (hinter *Hinter) seed(readmePath string) {
	if hinter.options.Reader == nil {
		hinter.tracker.AddCandidate(readmePath)
		return
	}
	content, readError := hinter.options.Reader.ReadFile(filepath.Join(hinter.options.WorkspaceRoot, filepath.FromSlash(readmePath)))
	if readError != nil {
		hinter.logger.Warn(readmeSeedFailedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.Error(readError))
		return
	}
	hinter.tracker.Seed(readmePath, string(content))
	hinter.logger.Debug(readmeTrackedMessageConstant, zap.String(readmeLogFieldConstant, readmePath))
}

func (hinter *Hinter) drop(readmePath string) {
	hinter.tracker.Remove(readmePath)
	prefix := readmePath + "\x00"
	hinter.hintedMutex.Lock()
	for key := range hinter.hinted {
		if strings.HasPrefix(key, prefix) {
			delete(hinter.hinted, key)
		}
	}
	hinter.hintedMutex.Unlock()
	hinter.logger.Debug(readmeDroppedMessageConstant, zap.String(readmeLogFieldConstant, readmePath))
}
