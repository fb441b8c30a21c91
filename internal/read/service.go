package read

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	latestRevisionLimitConstant      = 1
	parentDirectoryPrefixConstant    = ".."
	outsideWorkspaceTemplateConstant = "%w: %s"
	noHistoryTemplateConstant        = "%w: %s"
	readmeLogFieldConstant           = "readme"
	commitLogFieldConstant           = "commit"
	previousLogFieldConstant         = "previous"
	recordedMessageConstant          = "Recorded README acknowledgement"
	unchangedMessageConstant         = "README acknowledgement already current"
)

var (
	// ErrOracleNotConfigured indicates the service was constructed without a history oracle.
	ErrOracleNotConfigured = errors.New("history oracle not configured")
	// ErrStoreNotConfigured indicates the service was constructed without an acknowledgement store.
	ErrStoreNotConfigured = errors.New("acknowledgement store not configured")
	// ErrReadmePathRequired indicates an empty README argument.
	ErrReadmePathRequired = errors.New("README path required")
	// ErrReadmeOutsideWorkspace indicates a README path that escapes the workspace root.
	ErrReadmeOutsideWorkspace = errors.New("README is outside the workspace")
	// ErrReadmeHasNoHistory indicates a README that was never committed.
	ErrReadmeHasNoHistory = errors.New("README has no committed revision")
)

// Result describes one recorded acknowledgement.
type Result struct {
	Identity   identity.Identity
	ReadmePath string
	Commit     string
	Outcome    acknowledgement.RecordOutcome
}

// Service records README acknowledgements for the configured identity.
type Service struct {
	oracle HistoryOracle
	queue  *acknowledgement.WriteQueue
	logger *zap.Logger
}

// NewService constructs a Service and starts its writer. Callers Close it when done.
func NewService(oracle HistoryOracle, store acknowledgement.Store, logger *zap.Logger) (*Service, error) {
	if oracle == nil {
		return nil, ErrOracleNotConfigured
	}
	if store == nil {
		return nil, ErrStoreNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{oracle: oracle, queue: acknowledgement.NewWriteQueue(store), logger: logger}, nil
}

// Close waits for pending writes and stops the writer.
func (service *Service) Close() {
	service.queue.Close()
}

// Read acknowledges the newest committed revision of readmeArgument. Relative arguments are taken relative to
// workspaceRoot. Concurrent calls are written one at a time.
func (service *Service) Read(executionContext context.Context, workspaceRoot string, readmeArgument string) (Result, error) {
	readmePath, pathError := WorkspaceRelativePath(workspaceRoot, readmeArgument)
	if pathError != nil {
		return Result{}, pathError
	}

	reader, identityError := service.oracle.ConfiguredIdentity(executionContext)
	if identityError != nil {
		return Result{}, identityError
	}
	if validationError := reader.Validate(); validationError != nil {
		return Result{}, validationError
	}

	readmeHistory, historyError := service.oracle.PathHistory(executionContext, gitrepo.HeadRevision, readmePath, latestRevisionLimitConstant)
	if historyError != nil {
		return Result{}, historyError
	}
	if len(readmeHistory) == 0 {
		return Result{}, fmt.Errorf(noHistoryTemplateConstant, ErrReadmeHasNoHistory, readmePath)
	}
	latestRevision := readmeHistory[0].Hash

	outcome, recordError := service.queue.Record(executionContext, reader, readmePath, latestRevision)
	if recordError != nil {
		return Result{}, recordError
	}

	if outcome.Recorded {
		service.logger.Info(recordedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.String(commitLogFieldConstant, latestRevision), zap.String(previousLogFieldConstant, outcome.Previous))
	} else {
		service.logger.Info(unchangedMessageConstant, zap.String(readmeLogFieldConstant, readmePath), zap.String(commitLogFieldConstant, latestRevision))
	}
	return Result{Identity: reader, ReadmePath: readmePath, Commit: latestRevision, Outcome: outcome}, nil
}

// WorkspaceRelativePath converts a README argument into the workspace-relative slash path acknowledgements use.
func WorkspaceRelativePath(workspaceRoot string, readmeArgument string) (string, error) {
	trimmedArgument := strings.TrimSpace(readmeArgument)
	if len(trimmedArgument) == 0 {
		return "", ErrReadmePathRequired
	}

	absolutePath := trimmedArgument
	if !filepath.IsAbs(absolutePath) {
		absolutePath = filepath.Join(workspaceRoot, trimmedArgument)
	}
	relativePath, relativeError := filepath.Rel(workspaceRoot, absolutePath)
	if relativeError != nil {
		return "", fmt.Errorf(outsideWorkspaceTemplateConstant, ErrReadmeOutsideWorkspace, readmeArgument)
	}
	slashPath := path.Clean(filepath.ToSlash(relativePath))
	if slashPath == "." || slashPath == parentDirectoryPrefixConstant || strings.HasPrefix(slashPath, parentDirectoryPrefixConstant+"/") {
		return "", fmt.Errorf(outsideWorkspaceTemplateConstant, ErrReadmeOutsideWorkspace, readmeArgument)
	}
	return slashPath, nil
}
