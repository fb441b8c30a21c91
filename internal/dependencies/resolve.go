// Package dependencies resolves the collaborators shared by rtfr commands, falling back to real implementations
// when a command builder was not given one.
package dependencies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/execshell"
	"github.com/temirov/rtfr/internal/filesystem"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
	"github.com/temirov/rtfr/internal/readme"
	"github.com/temirov/rtfr/internal/utils"
	pathutils "github.com/temirov/rtfr/internal/utils/path"
	"github.com/temirov/rtfr/internal/workspace"
)

const (
	currentDirectoryConstant             = "."
	notRepositoryTemplateConstant        = "%s is not a git work tree"
	workspaceLogFieldConstant            = "workspace"
	storeLogFieldConstant                = "store"
	configurationFallbackMessageConstant = "Using default workspace configuration"
	snapshotFallbackMessageConstant      = "Acknowledgements unavailable, treating every README as unread"
	configurationMissingMessageConstant  = "Workspace has no configuration file, using defaults"
)

// ErrNotRepository indicates the workspace directory is not inside a git work tree.
var ErrNotRepository = errors.New("workspace is not a git work tree")

// StoreOracle answers the history questions acknowledgement stores ask.
type StoreOracle interface {
	acknowledgement.AncestryComparator
	acknowledgement.PathHistorian
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default reporting to observers.
func ResolveGitExecutor(existing gitrepo.GitExecutor, logger *zap.Logger, observers ...execshell.CommandEventObserver) (gitrepo.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, observers...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveHistoryOracle builds the git-backed oracle for workspaceRoot and verifies it is a work tree.
func ResolveHistoryOracle(executionContext context.Context, executor gitrepo.GitExecutor, workspaceRoot string) (*gitrepo.HistoryOracle, error) {
	oracle, creationError := gitrepo.NewHistoryOracle(executor, workspaceRoot)
	if creationError != nil {
		return nil, creationError
	}
	isRepository, checkError := oracle.IsRepository(executionContext)
	if checkError != nil {
		return nil, checkError
	}
	if !isRepository {
		return nil, fmt.Errorf(notRepositoryTemplateConstant+": %w", workspaceRoot, ErrNotRepository)
	}
	return oracle, nil
}

// ResolveReadmeDiscoverer returns the provided discoverer or the filesystem walker.
func ResolveReadmeDiscoverer(existing ReadmeDiscoverer) ReadmeDiscoverer {
	if existing != nil {
		return existing
	}
	return readme.NewFilesystemDiscoverer()
}

// ReadmeDiscoverer finds README files under a workspace.
type ReadmeDiscoverer interface {
	Discover(root string, readmePatterns []string, ignorePatterns []string) ([]string, error)
}

// LoadWorkspaceConfig reads .rtfrrc and falls back to defaults with a warning when it is missing or malformed.
func LoadWorkspaceConfig(workspaceRoot string, logger *zap.Logger) workspace.Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	config, loadError := workspace.LoadConfig(workspaceRoot)
	if loadError == nil {
		return config
	}
	if errors.Is(loadError, workspace.ErrConfigurationMissing) {
		logger.Debug(configurationMissingMessageConstant, zap.String(workspaceLogFieldConstant, workspaceRoot))
		return config
	}
	logger.Warn(configurationFallbackMessageConstant, zap.String(workspaceLogFieldConstant, workspaceRoot), zap.Error(loadError))
	return config
}

// ResolveStore selects the remote store when the configuration names a server and token, the workspace file otherwise.
func ResolveStore(config workspace.Config, workspaceRoot string, oracle StoreOracle, canonicalizer identity.Canonicalizer, client *http.Client, logger *zap.Logger) (acknowledgement.Store, error) {
	if endpoint, hasRemote := config.CacheEndpoint(); hasRemote {
		return acknowledgement.NewRemoteStore(endpoint, client, oracle, logger)
	}
	return acknowledgement.NewFileStore(filepath.Join(workspaceRoot, acknowledgement.DefaultFileName), oracle, canonicalizer, logger)
}

// LoadSnapshot reads the store once for a run. Failures degrade to an empty snapshot so every README reads as unread.
func LoadSnapshot(executionContext context.Context, store acknowledgement.Store, canonicalizer identity.Canonicalizer, logger *zap.Logger) acknowledgement.Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		return acknowledgement.EmptySnapshot()
	}
	document, loadError := store.Load(executionContext)
	if loadError != nil {
		logger.Warn(snapshotFallbackMessageConstant, zap.String(storeLogFieldConstant, describeStore(store)), zap.Error(loadError))
		return acknowledgement.EmptySnapshot()
	}
	return acknowledgement.NewSnapshot(document, canonicalizer)
}

func describeStore(store acknowledgement.Store) string {
	switch typedStore := store.(type) {
	case *acknowledgement.RemoteStore:
		return typedStore.Endpoint()
	case *acknowledgement.FileStore:
		return typedStore.Path()
	default:
		return fmt.Sprintf("%T", store)
	}
}

// WorktreeReader reads workspace files from disk.
type WorktreeReader interface {
	ReadFile(path string) ([]byte, error)
}

// ResolveWorktreeReader returns the provided reader or the operating system filesystem.
func ResolveWorktreeReader(existing WorktreeReader) WorktreeReader {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveWorkspaceRoot returns the workspace root attached to the command context, or the current directory.
func ResolveWorkspaceRoot(executionContext context.Context) (string, error) {
	if workspaceRoot, found := utils.NewCommandContextAccessor().WorkspaceRoot(executionContext); found {
		return workspaceRoot, nil
	}
	return pathutils.NewWorkspacePathResolver(nil).ResolveDirectory(currentDirectoryConstant)
}
