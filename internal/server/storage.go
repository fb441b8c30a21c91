package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	pathutils "github.com/temirov/rtfr/internal/utils/path"
)

const unsupportedStorageTemplateConstant = "%w: %q"

var (
	// ErrUnsupportedStorage indicates a storage backend name the server does not know.
	ErrUnsupportedStorage = errors.New("unsupported storage backend")
	// ErrDatabasePathRequired indicates an on-disk badger database without a directory.
	ErrDatabasePathRequired = errors.New("database path required")
)

// KeyValueStore persists opaque values by key.
type KeyValueStore interface {
	Get(executionContext context.Context, key string) ([]byte, bool, error)
	Put(executionContext context.Context, key string, value []byte) error
	Delete(executionContext context.Context, key string) error
	Close() error
}

// OpenStorage opens the backend configuration selects.
func OpenStorage(configuration CommandConfiguration, logger *zap.Logger) (KeyValueStore, error) {
	switch StorageBackend(configuration.Storage) {
	case StorageBackendBadger:
		databasePath := pathutils.NewHomeExpander().Expand(configuration.DatabasePath)
		return OpenBadgerStore(BadgerOptions{Path: databasePath}, logger)
	case StorageBackendRedis:
		return NewRedisStore(RedisOptions{Address: configuration.RedisAddress})
	default:
		return nil, fmt.Errorf(unsupportedStorageTemplateConstant, ErrUnsupportedStorage, configuration.Storage)
	}
}
