package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/readme"
)

const (
	// DefaultDebounce is how long a path must stay quiet before its change is delivered.
	DefaultDebounce = 200 * time.Millisecond

	changeBufferConstant           = 64
	minimumTickConstant            = time.Millisecond
	directoryLogFieldConstant      = "directory"
	pathLogFieldConstant           = "path"
	watchFailedMessageConstant     = "Unable to watch directory"
	watcherErrorMessageConstant    = "File watcher error"
	watchStartedMessageConstant    = "Watching work tree"
	debounceLogFieldConstant       = "debounce"
	currentDirectoryMarkerConstant = "."
)

// ErrRootRequired indicates a watcher without a directory to watch.
var ErrRootRequired = errors.New("watch root required")

// Operation classifies a debounced change.
type Operation string

// Change operations.
const (
	OperationWrite  Operation = "write"
	OperationRemove Operation = "remove"
)

// Change is one debounced file change, relative to the watched root with forward slashes.
type Change struct {
	Path      string
	Operation Operation
}

// FilesystemEvents turns fsnotify events under a root into debounced Changes.
// Directories matching the ignore globs are neither watched nor reported.
type FilesystemEvents struct {
	root     string
	ignore   []string
	debounce time.Duration
	matcher  readme.GlobMatcher
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	changes chan []Change

	pendingMutex sync.Mutex
	pending      map[string]pendingChange
}

type pendingChange struct {
	operation Operation
	updatedAt time.Time
}

// NewFilesystemEvents creates a recursive watcher rooted at root.
func NewFilesystemEvents(root string, ignore []string, debounce time.Duration, logger *zap.Logger) (*FilesystemEvents, error) {
	if len(strings.TrimSpace(root)) == 0 {
		return nil, ErrRootRequired
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return nil, watcherError
	}
	return &FilesystemEvents{
		root:     root,
		ignore:   append([]string{}, ignore...),
		debounce: debounce,
		matcher:  readme.NewGlobMatcher(),
		logger:   logger,
		watcher:  watcher,
		changes:  make(chan []Change, changeBufferConstant),
		pending:  map[string]pendingChange{},
	}, nil
}

// Start watches every directory under the root and delivers batches of settled changes until executionContext
// ends. The returned channel is closed when the watcher stops.
func (events *FilesystemEvents) Start(executionContext context.Context) (<-chan []Change, error) {
	if addError := events.addRecursive(events.root); addError != nil {
		events.watcher.Close()
		return nil, addError
	}
	events.logger.Info(watchStartedMessageConstant, zap.String(directoryLogFieldConstant, events.root), zap.Duration(debounceLogFieldConstant, events.debounce))
	go events.run(executionContext)
	return events.changes, nil
}

func (events *FilesystemEvents) run(executionContext context.Context) {
	defer close(events.changes)
	defer events.watcher.Close()

	ticker := time.NewTicker(max(events.debounce/2, minimumTickConstant))
	defer ticker.Stop()

	for {
		select {
		case <-executionContext.Done():
			return
		case event, open := <-events.watcher.Events:
			if !open {
				return
			}
			events.handle(event)
		case watchError, open := <-events.watcher.Errors:
			if !open {
				return
			}
			events.logger.Warn(watcherErrorMessageConstant, zap.Error(watchError))
		case now := <-ticker.C:
			if settled := events.settled(now); len(settled) > 0 {
				select {
				case events.changes <- settled:
				case <-executionContext.Done():
					return
				}
			}
		}
	}
}

func (events *FilesystemEvents) handle(event fsnotify.Event) {
	relativePath, relativeError := filepath.Rel(events.root, event.Name)
	if relativeError != nil {
		return
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == currentDirectoryMarkerConstant || events.matcher.Excluded(relativePath, events.ignore) {
		return
	}

	operation := OperationWrite
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		operation = OperationRemove
	case event.Has(fsnotify.Create):
		if info, statError := os.Stat(event.Name); statError == nil && info.IsDir() {
			if addError := events.addRecursive(event.Name); addError != nil {
				events.logger.Warn(watchFailedMessageConstant, zap.String(directoryLogFieldConstant, event.Name), zap.Error(addError))
			}
			return
		}
	case event.Has(fsnotify.Write):
	default:
		return
	}

	events.pendingMutex.Lock()
	events.pending[relativePath] = pendingChange{operation: operation, updatedAt: time.Now()}
	events.pendingMutex.Unlock()
}

// settled removes and returns the changes that have been quiet for the debounce period, sorted by path.
func (events *FilesystemEvents) settled(now time.Time) []Change {
	events.pendingMutex.Lock()
	defer events.pendingMutex.Unlock()

	var settled []Change
	for path, change := range events.pending {
		if now.Sub(change.updatedAt) < events.debounce {
			continue
		}
		settled = append(settled, Change{Path: path, Operation: change.operation})
		delete(events.pending, path)
	}
	sort.Slice(settled, func(leftIndex int, rightIndex int) bool {
		return settled[leftIndex].Path < settled[rightIndex].Path
	})
	return settled
}

func (events *FilesystemEvents) addRecursive(directory string) error {
	return filepath.WalkDir(directory, func(path string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == directory {
				return walkError
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != events.root {
			relativePath, relativeError := filepath.Rel(events.root, path)
			if relativeError == nil && events.matcher.Excluded(filepath.ToSlash(relativePath), events.ignore) {
				return filepath.SkipDir
			}
		}
		if addError := events.watcher.Add(path); addError != nil {
			events.logger.Warn(watchFailedMessageConstant, zap.String(pathLogFieldConstant, path), zap.Error(addError))
		}
		return nil
	})
}
