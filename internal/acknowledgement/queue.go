package acknowledgement

import (
	"context"
	"sync"

	"github.com/temirov/rtfr/internal/identity"
)

const writeQueueCapacityConstant = 16

// WriteRequest asks for one acknowledgement to be recorded.
type WriteRequest struct {
	User       identity.Identity
	ReadmePath string
	Commit     string
}

// WriteResult carries the outcome of a WriteRequest.
type WriteResult struct {
	Outcome RecordOutcome
	Error   error
}

type queuedWrite struct {
	executionContext context.Context
	request          WriteRequest
	results          chan WriteResult
}

// WriteQueue serializes acknowledgement writes for one workspace through a single goroutine.
// It satisfies Store, so callers can use it in place of the store it wraps.
type WriteQueue struct {
	store    Store
	requests chan queuedWrite
	done     chan struct{}

	mutex  sync.RWMutex
	closed bool
}

// NewWriteQueue starts the writer goroutine for store.
func NewWriteQueue(store Store) *WriteQueue {
	queue := &WriteQueue{
		store:    store,
		requests: make(chan queuedWrite, writeQueueCapacityConstant),
		done:     make(chan struct{}),
	}
	go queue.run()
	return queue
}

// Submit enqueues request and returns a channel receiving exactly one result.
func (queue *WriteQueue) Submit(executionContext context.Context, request WriteRequest) <-chan WriteResult {
	results := make(chan WriteResult, 1)

	queue.mutex.RLock()
	defer queue.mutex.RUnlock()
	if queue.closed {
		results <- WriteResult{Error: ErrQueueClosed}
		return results
	}

	select {
	case queue.requests <- queuedWrite{executionContext: executionContext, request: request, results: results}:
	case <-executionContext.Done():
		results <- WriteResult{Error: executionContext.Err()}
	}
	return results
}

// Record submits the acknowledgement and waits for it to be written.
func (queue *WriteQueue) Record(executionContext context.Context, user identity.Identity, readmePath string, commit string) (RecordOutcome, error) {
	select {
	case result := <-queue.Submit(executionContext, WriteRequest{User: user, ReadmePath: readmePath, Commit: commit}):
		return result.Outcome, result.Error
	case <-executionContext.Done():
		return RecordOutcome{}, executionContext.Err()
	}
}

// Load reads through to the wrapped store.
func (queue *WriteQueue) Load(executionContext context.Context) (Document, error) {
	return queue.store.Load(executionContext)
}

// Close stops accepting writes and waits for queued ones to finish.
func (queue *WriteQueue) Close() {
	queue.mutex.Lock()
	if queue.closed {
		queue.mutex.Unlock()
		<-queue.done
		return
	}
	queue.closed = true
	close(queue.requests)
	queue.mutex.Unlock()
	<-queue.done
}

func (queue *WriteQueue) run() {
	defer close(queue.done)
	for write := range queue.requests {
		if contextError := write.executionContext.Err(); contextError != nil {
			write.results <- WriteResult{Error: contextError}
			continue
		}
		outcome, recordError := queue.store.Record(write.executionContext, write.request.User, write.request.ReadmePath, write.request.Commit)
		write.results <- WriteResult{Outcome: outcome, Error: recordError}
	}
}
