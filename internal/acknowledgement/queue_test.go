package acknowledgement_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/identity"
)

func TestWriteQueueSerializesConcurrentWrites(testInstance *testing.T) {
	storePath := filepath.Join(testInstance.TempDir(), acknowledgement.DefaultFileName)
	fileStore, creationError := acknowledgement.NewFileStore(storePath, buildLinearRepository(), nil, nil)
	require.NoError(testInstance, creationError)

	queue := acknowledgement.NewWriteQueue(fileStore)
	defer queue.Close()

	const writerCount = 8
	var waitGroup sync.WaitGroup
	for writerIndex := 0; writerIndex < writerCount; writerIndex++ {
		waitGroup.Add(1)
		go func(writerIndex int) {
			defer waitGroup.Done()
			reader := identity.New(fmt.Sprintf("Reader %d", writerIndex), fmt.Sprintf("reader%d@example.com", writerIndex))
			_, recordError := queue.Record(context.Background(), reader, "README.md", "c2")
			require.NoError(testInstance, recordError)
		}(writerIndex)
	}
	waitGroup.Wait()

	document, loadError := queue.Load(context.Background())
	require.NoError(testInstance, loadError)
	require.Len(testInstance, document.Users, writerCount)
}

func TestWriteQueueRejectsAfterClose(testInstance *testing.T) {
	storePath := filepath.Join(testInstance.TempDir(), acknowledgement.DefaultFileName)
	fileStore, creationError := acknowledgement.NewFileStore(storePath, buildLinearRepository(), nil, nil)
	require.NoError(testInstance, creationError)

	queue := acknowledgement.NewWriteQueue(fileStore)
	result := <-queue.Submit(context.Background(), acknowledgement.WriteRequest{User: testReader, ReadmePath: "README.md", Commit: "c1"})
	require.NoError(testInstance, result.Error)
	require.True(testInstance, result.Outcome.Recorded)

	queue.Close()
	queue.Close()

	closedResult := <-queue.Submit(context.Background(), acknowledgement.WriteRequest{User: testReader, ReadmePath: "README.md", Commit: "c2"})
	require.ErrorIs(testInstance, closedResult.Error, acknowledgement.ErrQueueClosed)
}
