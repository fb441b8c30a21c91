package server

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	tokenKeyPrefixConstant        = "token:"
	tokenLogFieldConstant         = "token"
	userLogFieldConstant          = "user"
	readmeLogFieldConstant        = "readme"
	filesLogFieldConstant         = "files"
	tokenIssuedMessageConstant    = "Issued workspace token"
	tokenRevokedMessageConstant   = "Revoked workspace token"
	conflictMessageConstant       = "Several acknowledgements stored for posted README"
	deletedEntriesMessageConstant = "Deleted acknowledgements"
)

var (
	// ErrUnknownToken indicates a token the server never issued or has revoked.
	ErrUnknownToken = errors.New("unknown token")
	// ErrStorageNotConfigured indicates a cache without a backing store.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// Cache manages per-token acknowledgement documents. Writes are serialized so concurrent posts for one token
// never lose entries.
type Cache struct {
	store             KeyValueStore
	maxRecordsPerPath int
	metrics           *Metrics
	logger            *zap.Logger
	writeMutex        sync.Mutex
}

// NewCache constructs a Cache over store.
func NewCache(store KeyValueStore, maxRecordsPerPath int, metrics *Metrics, logger *zap.Logger) (*Cache, error) {
	if store == nil {
		return nil, ErrStorageNotConfigured
	}
	if maxRecordsPerPath <= 0 {
		maxRecordsPerPath = DefaultMaxRecordsPerPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, maxRecordsPerPath: maxRecordsPerPath, metrics: metrics, logger: logger}, nil
}

// IssueToken creates an empty document under a fresh random token.
func (cache *Cache) IssueToken(executionContext context.Context) (string, error) {
	token := uuid.NewString()
	if saveError := cache.save(executionContext, token, acknowledgement.Document{}); saveError != nil {
		return "", saveError
	}
	cache.metrics.observeTokenIssued()
	cache.logger.Info(tokenIssuedMessageConstant, zap.String(tokenLogFieldConstant, token))
	return token, nil
}

// RevokeToken deletes the token together with its document.
func (cache *Cache) RevokeToken(executionContext context.Context, token string) error {
	cache.writeMutex.Lock()
	defer cache.writeMutex.Unlock()

	if _, loadError := cache.load(executionContext, token); loadError != nil {
		return loadError
	}
	if deleteError := cache.store.Delete(executionContext, tokenKey(token)); deleteError != nil {
		return deleteError
	}
	cache.metrics.observeTokenRevoked()
	cache.logger.Info(tokenRevokedMessageConstant, zap.String(tokenLogFieldConstant, token))
	return nil
}

// Document returns the token's acknowledgements.
func (cache *Cache) Document(executionContext context.Context, token string) (acknowledgement.Document, error) {
	return cache.load(executionContext, token)
}

// Merge appends posted entries to the contributor's stored ones, drops exact duplicates, and keeps the newest
// maxRecordsPerPath entries per README. When a posted README ends up with more than one entry, the returned
// record lists every stored entry for the posted READMEs so the client can resolve them.
func (cache *Cache) Merge(executionContext context.Context, token string, posted acknowledgement.UserRecord) (*acknowledgement.UserRecord, error) {
	cache.writeMutex.Lock()
	defer cache.writeMutex.Unlock()

	document, loadError := cache.load(executionContext, token)
	if loadError != nil {
		return nil, loadError
	}

	userIndex := findUser(document, posted.Identity())
	if userIndex < 0 {
		document.Users = append(document.Users, acknowledgement.UserRecord{Name: posted.Name, Email: posted.Email})
		userIndex = len(document.Users) - 1
	}
	userRecord := &document.Users[userIndex]
	userRecord.Files = MergeFileRecords(userRecord.Files, posted.Files, cache.maxRecordsPerPath)

	if saveError := cache.save(executionContext, token, document); saveError != nil {
		return nil, saveError
	}

	postedPaths := map[string]struct{}{}
	for _, fileRecord := range posted.Files {
		postedPaths[fileRecord.Path] = struct{}{}
	}
	entriesPerPath := map[string]int{}
	conflictFiles := []acknowledgement.FileRecord{}
	for _, fileRecord := range userRecord.Files {
		if _, wasPosted := postedPaths[fileRecord.Path]; !wasPosted {
			continue
		}
		entriesPerPath[fileRecord.Path]++
		conflictFiles = append(conflictFiles, fileRecord)
	}
	for path, entryCount := range entriesPerPath {
		if entryCount > 1 {
			cache.metrics.observeRecord(outcomeConflictedConstant)
			cache.logger.Debug(conflictMessageConstant, zap.String(tokenLogFieldConstant, token), zap.String(userLogFieldConstant, posted.Identity().String()), zap.String(readmeLogFieldConstant, path))
			return &acknowledgement.UserRecord{Name: posted.Name, Email: posted.Email, Files: conflictFiles}, nil
		}
	}
	cache.metrics.observeRecord(outcomeAcceptedConstant)
	return nil, nil
}

// Delete removes the listed entries of a contributor. Entries that are not stored are ignored.
func (cache *Cache) Delete(executionContext context.Context, token string, deleted acknowledgement.UserRecord) error {
	cache.writeMutex.Lock()
	defer cache.writeMutex.Unlock()

	document, loadError := cache.load(executionContext, token)
	if loadError != nil {
		return loadError
	}
	userIndex := findUser(document, deleted.Identity())
	if userIndex < 0 {
		return nil
	}

	removals := map[acknowledgement.FileRecord]struct{}{}
	for _, fileRecord := range deleted.Files {
		removals[fileRecord] = struct{}{}
	}
	userRecord := &document.Users[userIndex]
	retained := make([]acknowledgement.FileRecord, 0, len(userRecord.Files))
	for _, fileRecord := range userRecord.Files {
		if _, remove := removals[fileRecord]; !remove {
			retained = append(retained, fileRecord)
		}
	}
	removedCount := len(userRecord.Files) - len(retained)
	userRecord.Files = retained

	if saveError := cache.save(executionContext, token, document); saveError != nil {
		return saveError
	}
	for index := 0; index < removedCount; index++ {
		cache.metrics.observeRecord(outcomeDeletedConstant)
	}
	cache.logger.Debug(deletedEntriesMessageConstant, zap.String(tokenLogFieldConstant, token), zap.Int(filesLogFieldConstant, removedCount))
	return nil
}

// MergeFileRecords appends posted to stored, keeps the first occurrence of each entry, and keeps the last limit
// entries per path. Paths keep the order they first appeared in.
func MergeFileRecords(stored []acknowledgement.FileRecord, posted []acknowledgement.FileRecord, limit int) []acknowledgement.FileRecord {
	seen := map[acknowledgement.FileRecord]struct{}{}
	entriesByPath := map[string][]acknowledgement.FileRecord{}
	var orderedPaths []string
	for _, fileRecord := range append(append([]acknowledgement.FileRecord{}, stored...), posted...) {
		if _, duplicate := seen[fileRecord]; duplicate {
			continue
		}
		seen[fileRecord] = struct{}{}
		if _, known := entriesByPath[fileRecord.Path]; !known {
			orderedPaths = append(orderedPaths, fileRecord.Path)
		}
		entriesByPath[fileRecord.Path] = append(entriesByPath[fileRecord.Path], fileRecord)
	}

	merged := make([]acknowledgement.FileRecord, 0, len(seen))
	for _, path := range orderedPaths {
		pathEntries := entriesByPath[path]
		if limit > 0 && len(pathEntries) > limit {
			pathEntries = pathEntries[len(pathEntries)-limit:]
		}
		merged = append(merged, pathEntries...)
	}
	return merged
}

func (cache *Cache) load(executionContext context.Context, token string) (acknowledgement.Document, error) {
	data, found, getError := cache.store.Get(executionContext, tokenKey(token))
	if getError != nil {
		return acknowledgement.Document{}, getError
	}
	if !found {
		return acknowledgement.Document{}, ErrUnknownToken
	}
	return acknowledgement.ParseDocument(tokenKey(token), data)
}

func (cache *Cache) save(executionContext context.Context, token string, document acknowledgement.Document) error {
	encoded, encodeError := document.Encode()
	if encodeError != nil {
		return encodeError
	}
	return cache.store.Put(executionContext, tokenKey(token), encoded)
}

func findUser(document acknowledgement.Document, user identity.Identity) int {
	for userIndex, userRecord := range document.Users {
		if userRecord.Identity().Equal(user) {
			return userIndex
		}
	}
	return -1
}

func tokenKey(token string) string {
	return tokenKeyPrefixConstant + token
}
