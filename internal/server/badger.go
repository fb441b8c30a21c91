package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	databaseDirectoryPermissionsConstant = 0o750
	createDatabaseTemplateConstant       = "create database directory %s: %w"
	openDatabaseTemplateConstant         = "open badger database: %w"
	badgerComponentLogFieldConstant      = "component"
	badgerComponentNameConstant          = "badger"
)

// BadgerOptions configures the embedded document database.
type BadgerOptions struct {
	// Path is the database directory. It is created when missing and ignored in memory.
	Path     string
	InMemory bool
}

// BadgerStore keeps documents in an embedded badger database.
type BadgerStore struct {
	database *badger.DB
}

// OpenBadgerStore opens or creates the database.
func OpenBadgerStore(options BadgerOptions, logger *zap.Logger) (*BadgerStore, error) {
	var databaseOptions badger.Options
	if options.InMemory {
		databaseOptions = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if len(strings.TrimSpace(options.Path)) == 0 {
			return nil, ErrDatabasePathRequired
		}
		if mkdirError := os.MkdirAll(options.Path, databaseDirectoryPermissionsConstant); mkdirError != nil {
			return nil, fmt.Errorf(createDatabaseTemplateConstant, options.Path, mkdirError)
		}
		databaseOptions = badger.DefaultOptions(options.Path).WithSyncWrites(true)
	}

	if logger == nil {
		databaseOptions = databaseOptions.WithLogger(nil)
	} else {
		databaseOptions = databaseOptions.WithLogger(&badgerLogger{logger: logger.With(zap.String(badgerComponentLogFieldConstant, badgerComponentNameConstant)).Sugar()})
	}

	database, openError := badger.Open(databaseOptions)
	if openError != nil {
		return nil, fmt.Errorf(openDatabaseTemplateConstant, openError)
	}
	return &BadgerStore{database: database}, nil
}

// Get returns the value stored at key.
func (store *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	viewError := store.database.View(func(transaction *badger.Txn) error {
		item, getError := transaction.Get([]byte(key))
		if getError != nil {
			return getError
		}
		copied, copyError := item.ValueCopy(nil)
		value = copied
		return copyError
	})
	if errors.Is(viewError, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if viewError != nil {
		return nil, false, viewError
	}
	return value, true, nil
}

// Put stores value at key.
func (store *BadgerStore) Put(_ context.Context, key string, value []byte) error {
	return store.database.Update(func(transaction *badger.Txn) error {
		return transaction.Set([]byte(key), value)
	})
}

// Delete removes key. Deleting a missing key succeeds.
func (store *BadgerStore) Delete(_ context.Context, key string) error {
	return store.database.Update(func(transaction *badger.Txn) error {
		return transaction.Delete([]byte(key))
	})
}

// Close flushes and closes the database.
func (store *BadgerStore) Close() error {
	return store.database.Close()
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (adapter *badgerLogger) Errorf(format string, arguments ...interface{}) {
	adapter.logger.Errorf(strings.TrimSpace(format), arguments...)
}

func (adapter *badgerLogger) Warningf(format string, arguments ...interface{}) {
	adapter.logger.Warnf(strings.TrimSpace(format), arguments...)
}

func (adapter *badgerLogger) Infof(format string, arguments ...interface{}) {
	adapter.logger.Debugf(strings.TrimSpace(format), arguments...)
}

func (adapter *badgerLogger) Debugf(format string, arguments ...interface{}) {
	adapter.logger.Debugf(strings.TrimSpace(format), arguments...)
}
