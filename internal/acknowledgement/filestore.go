package acknowledgement

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/identity"
)

const (
	temporaryFilePatternConstant        = ".rtf-readme-*.json"
	documentFilePermissionsConstant     = 0o644
	readmeLogFieldConstant              = "readme"
	commitLogFieldConstant              = "commit"
	existingCommitLogFieldConstant      = "existing_commit"
	olderAcknowledgementMessageConstant = "Keeping newer acknowledgement"
)

// FileStore keeps acknowledgements in a JSON file inside the workspace.
type FileStore struct {
	path          string
	comparator    AncestryComparator
	canonicalizer identity.Canonicalizer
	logger        *zap.Logger
	mutex         sync.Mutex
}

// NewFileStore constructs a store backed by the file at path.
func NewFileStore(path string, comparator AncestryComparator, canonicalizer identity.Canonicalizer, logger *zap.Logger) (*FileStore, error) {
	if len(strings.TrimSpace(path)) == 0 {
		return nil, ErrStorePathRequired
	}
	if comparator == nil {
		return nil, ErrComparatorNotConfigured
	}
	if canonicalizer == nil {
		canonicalizer = identity.ExactCanonicalizer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, comparator: comparator, canonicalizer: canonicalizer, logger: logger}, nil
}

// Path returns the backing file path.
func (store *FileStore) Path() string {
	return store.path
}

// Load reads the document. A missing file yields an empty document.
func (store *FileStore) Load(context.Context) (Document, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.loadLocked()
}

// Record stores commit as user's acknowledgement of readmePath unless the stored one is newer.
func (store *FileStore) Record(executionContext context.Context, user identity.Identity, readmePath string, commit string) (RecordOutcome, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	document, loadError := store.loadLocked()
	if loadError != nil {
		return RecordOutcome{}, loadError
	}

	outcome := RecordOutcome{}
	for _, existingCommit := range document.Commits(store.canonicalizer, user, readmePath) {
		outcome.Previous = existingCommit
		if existingCommit == commit || isStrictAncestor(executionContext, store.comparator, commit, existingCommit) {
			store.logger.Debug(olderAcknowledgementMessageConstant,
				zap.String(readmeLogFieldConstant, readmePath),
				zap.String(commitLogFieldConstant, commit),
				zap.String(existingCommitLogFieldConstant, existingCommit),
			)
			return outcome, nil
		}
	}

	document.Set(store.canonicalizer, user, readmePath, commit)
	if writeError := store.writeLocked(document); writeError != nil {
		return RecordOutcome{}, writeError
	}
	outcome.Recorded = true
	return outcome, nil
}

func (store *FileStore) loadLocked() (Document, error) {
	data, readError := os.ReadFile(store.path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return Document{Users: []UserRecord{}}, nil
		}
		return Document{}, readError
	}
	return ParseDocument(store.path, data)
}

// writeLocked replaces the file atomically through a temporary sibling.
func (store *FileStore) writeLocked(document Document) error {
	encoded, encodeError := document.Encode()
	if encodeError != nil {
		return encodeError
	}

	temporaryFile, createError := os.CreateTemp(filepath.Dir(store.path), temporaryFilePatternConstant)
	if createError != nil {
		return createError
	}
	temporaryPath := temporaryFile.Name()
	defer os.Remove(temporaryPath)

	if _, writeError := temporaryFile.Write(encoded); writeError != nil {
		temporaryFile.Close()
		return writeError
	}
	if closeError := temporaryFile.Close(); closeError != nil {
		return closeError
	}
	if chmodError := os.Chmod(temporaryPath, documentFilePermissionsConstant); chmodError != nil {
		return chmodError
	}
	return os.Rename(temporaryPath, store.path)
}
