package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/watch"
)

const (
	testDebounce      = 50 * time.Millisecond
	testEventDeadline = 5 * time.Second
)

// collectUntil gathers changes until every expected path has been seen or the deadline passes.
func collectUntil(testInstance *testing.T, changes <-chan []watch.Change, expected map[string]watch.Operation) map[string]watch.Operation {
	testInstance.Helper()
	observed := map[string]watch.Operation{}
	deadline := time.After(testEventDeadline)
	for {
		complete := true
		for path, operation := range expected {
			if observed[path] != operation {
				complete = false
				break
			}
		}
		if complete {
			return observed
		}
		select {
		case batch, open := <-changes:
			if !open {
				return observed
			}
			for _, change := range batch {
				observed[change.Path] = change.Operation
			}
		case <-deadline:
			return observed
		}
	}
}

func TestNewFilesystemEventsRequiresRoot(testInstance *testing.T) {
	_, creationError := watch.NewFilesystemEvents("  ", nil, testDebounce, nil)
	require.ErrorIs(testInstance, creationError, watch.ErrRootRequired)
}

func TestFilesystemEventsStartFailsForMissingRoot(testInstance *testing.T) {
	events, creationError := watch.NewFilesystemEvents(filepath.Join(testInstance.TempDir(), "missing"), nil, testDebounce, nil)
	require.NoError(testInstance, creationError)

	_, startError := events.Start(context.Background())
	require.Error(testInstance, startError)
}

func TestFilesystemEventsDeliversDebouncedChanges(testInstance *testing.T) {
	root := testInstance.TempDir()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(root, "obsolete.txt"), []byte("old"), 0o644))

	events, creationError := watch.NewFilesystemEvents(root, []string{"vendor"}, testDebounce, nil)
	require.NoError(testInstance, creationError)
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, startError := events.Start(executionContext)
	require.NoError(testInstance, startError)

	require.NoError(testInstance, os.WriteFile(filepath.Join(root, "vendor", "lib.go"), []byte("package lib"), 0o644))
	require.NoError(testInstance, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))
	require.NoError(testInstance, os.Remove(filepath.Join(root, "obsolete.txt")))
	require.NoError(testInstance, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	observed := collectUntil(testInstance, changes, map[string]watch.Operation{
		"main.go":      watch.OperationWrite,
		"obsolete.txt": watch.OperationRemove,
	})
	require.Equal(testInstance, watch.OperationWrite, observed["main.go"])
	require.Equal(testInstance, watch.OperationRemove, observed["obsolete.txt"])
	require.NotContains(testInstance, observed, "vendor/lib.go")
	require.NotContains(testInstance, observed, "docs")

	require.NoError(testInstance, os.WriteFile(filepath.Join(root, "docs", "README.md"), []byte("# Docs"), 0o644))
	nested := collectUntil(testInstance, changes, map[string]watch.Operation{"docs/README.md": watch.OperationWrite})
	require.Equal(testInstance, watch.OperationWrite, nested["docs/README.md"])

	cancel()
	for range changes {
	}
}
