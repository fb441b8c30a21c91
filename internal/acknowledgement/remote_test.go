package acknowledgement_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/acknowledgement"
)

const testCachePath = "/cache/token-1"

type fakeAcknowledgementServer struct {
	mutex        sync.Mutex
	document     acknowledgement.Document
	postResponse func(posted acknowledgement.UserRecord) any
	posted       []acknowledgement.UserRecord
	deleted      []acknowledgement.UserRecord
}

func (server *fakeAcknowledgementServer) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	if request.URL.Path != testCachePath {
		http.NotFound(responseWriter, request)
		return
	}

	switch request.Method {
	case http.MethodGet:
		_ = json.NewEncoder(responseWriter).Encode(server.document)
	case http.MethodPost:
		var posted acknowledgement.UserRecord
		if decodeError := json.NewDecoder(request.Body).Decode(&posted); decodeError != nil {
			http.Error(responseWriter, decodeError.Error(), http.StatusBadRequest)
			return
		}
		server.posted = append(server.posted, posted)
		if server.postResponse == nil {
			_, _ = responseWriter.Write([]byte(acknowledgement.AcceptedResponseBody))
			return
		}
		_ = json.NewEncoder(responseWriter).Encode(server.postResponse(posted))
	case http.MethodPut:
		var deletion acknowledgement.UserRecord
		_ = json.NewDecoder(request.Body).Decode(&deletion)
		server.deleted = append(server.deleted, deletion)
		_, _ = responseWriter.Write([]byte(acknowledgement.AcceptedResponseBody))
	default:
		responseWriter.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestRemoteStore(testInstance *testing.T, handler http.Handler, path string) *acknowledgement.RemoteStore {
	testInstance.Helper()
	httpServer := httptest.NewServer(handler)
	testInstance.Cleanup(httpServer.Close)

	store, creationError := acknowledgement.NewRemoteStore(httpServer.URL+path, httpServer.Client(), buildLinearRepository(), nil)
	require.NoError(testInstance, creationError)
	return store
}

func TestRemoteStoreLoad(testInstance *testing.T) {
	fakeServer := &fakeAcknowledgementServer{document: acknowledgement.Document{Users: []acknowledgement.UserRecord{
		{Name: "Ada", Email: "ada@example.com", Files: []acknowledgement.FileRecord{{Path: "README.md", Commit: "c2"}}},
	}}}
	store := newTestRemoteStore(testInstance, fakeServer, testCachePath)

	document, loadError := store.Load(context.Background())
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"c2"}, document.Commits(nil, testReader, "README.md"))
}

func TestRemoteStoreUnknownToken(testInstance *testing.T) {
	store := newTestRemoteStore(testInstance, &fakeAcknowledgementServer{}, "/cache/unknown")

	_, loadError := store.Load(context.Background())
	var remoteError acknowledgement.RemoteStoreError
	require.ErrorAs(testInstance, loadError, &remoteError)
	require.Equal(testInstance, http.StatusNotFound, remoteError.StatusCode)
	require.ErrorIs(testInstance, loadError, acknowledgement.ErrUnknownToken)
}

func TestRemoteStoreUnreachable(testInstance *testing.T) {
	httpServer := httptest.NewServer(http.NotFoundHandler())
	endpoint := httpServer.URL + testCachePath
	httpServer.Close()

	store, creationError := acknowledgement.NewRemoteStore(endpoint, nil, buildLinearRepository(), nil)
	require.NoError(testInstance, creationError)

	_, loadError := store.Load(context.Background())
	var remoteError acknowledgement.RemoteStoreError
	require.ErrorAs(testInstance, loadError, &remoteError)
	require.Zero(testInstance, remoteError.StatusCode)
}

func TestRemoteStoreRecordAccepted(testInstance *testing.T) {
	fakeServer := &fakeAcknowledgementServer{}
	store := newTestRemoteStore(testInstance, fakeServer, testCachePath)

	outcome, recordError := store.Record(context.Background(), testReader, "README.md", "c3")
	require.NoError(testInstance, recordError)
	require.True(testInstance, outcome.Recorded)
	require.Empty(testInstance, fakeServer.deleted)
	require.Equal(testInstance, []acknowledgement.UserRecord{
		{Name: "Ada", Email: "ada@example.com", Files: []acknowledgement.FileRecord{{Path: "README.md", Commit: "c3"}}},
	}, fakeServer.posted)
}

func TestRemoteStoreRecordDeletesSupersededEntries(testInstance *testing.T) {
	testCases := []struct {
		name             string
		conflictFiles    []acknowledgement.FileRecord
		postedCommit     string
		expectedDeleted  []acknowledgement.FileRecord
		expectedRecorded bool
	}{
		{
			name:             "older_entries_deleted",
			conflictFiles:    []acknowledgement.FileRecord{{Path: "README.md", Commit: "c1"}, {Path: "README.md", Commit: "c2"}, {Path: "README.md", Commit: "c3"}},
			postedCommit:     "c3",
			expectedDeleted:  []acknowledgement.FileRecord{{Path: "README.md", Commit: "c1"}, {Path: "README.md", Commit: "c2"}},
			expectedRecorded: true,
		},
		{
			name:             "posting_older_commit_deletes_itself",
			conflictFiles:    []acknowledgement.FileRecord{{Path: "README.md", Commit: "c3"}, {Path: "README.md", Commit: "c1"}},
			postedCommit:     "c1",
			expectedDeleted:  []acknowledgement.FileRecord{{Path: "README.md", Commit: "c1"}},
			expectedRecorded: false,
		},
		{
			name:             "unknown_commits_kept",
			conflictFiles:    []acknowledgement.FileRecord{{Path: "README.md", Commit: "gone"}, {Path: "README.md", Commit: "c3"}},
			postedCommit:     "c3",
			expectedRecorded: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			conflictFiles := testCase.conflictFiles
			fakeServer := &fakeAcknowledgementServer{postResponse: func(posted acknowledgement.UserRecord) any {
				return acknowledgement.UserRecord{Name: posted.Name, Email: posted.Email, Files: conflictFiles}
			}}
			store := newTestRemoteStore(testInstance, fakeServer, testCachePath)

			outcome, recordError := store.Record(context.Background(), testReader, "README.md", testCase.postedCommit)
			require.NoError(testInstance, recordError)
			require.Equal(testInstance, testCase.expectedRecorded, outcome.Recorded)
			require.Equal(testInstance, testCase.expectedDeleted, outcome.Superseded)
			if len(testCase.expectedDeleted) == 0 {
				require.Empty(testInstance, fakeServer.deleted)
				return
			}
			require.Len(testInstance, fakeServer.deleted, 1)
			require.Equal(testInstance, testCase.expectedDeleted, fakeServer.deleted[0].Files)
		})
	}
}
