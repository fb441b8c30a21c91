package acknowledgement

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	// AcceptedResponseBody is the body the server answers when a record merged without conflict.
	AcceptedResponseBody = "ok"

	defaultRemoteTimeoutConstant      = 15 * time.Second
	remoteHistoryLimitConstant        = 1000
	jsonContentTypeConstant           = "application/json"
	contentTypeHeaderConstant         = "Content-Type"
	maximumResponseBytesConstant      = 8 << 20
	endpointLogFieldConstant          = "endpoint"
	supersededCountLogFieldConstant   = "superseded"
	historyUnavailableMessageConstant = "Unable to order conflicting acknowledgements"
	supersededDeletedMessageConstant  = "Deleted superseded acknowledgements"
)

// RemoteStore keeps acknowledgements on an acknowledgement server under one workspace token.
type RemoteStore struct {
	endpoint  string
	client    *http.Client
	historian PathHistorian
	logger    *zap.Logger
}

// NewRemoteStore constructs a store talking to endpoint, the server's cache URL for a token.
func NewRemoteStore(endpoint string, client *http.Client, historian PathHistorian, logger *zap.Logger) (*RemoteStore, error) {
	if len(strings.TrimSpace(endpoint)) == 0 {
		return nil, ErrEndpointRequired
	}
	if historian == nil {
		return nil, ErrComparatorNotConfigured
	}
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeoutConstant}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteStore{endpoint: endpoint, client: client, historian: historian, logger: logger}, nil
}

// Endpoint returns the cache URL the store talks to.
func (store *RemoteStore) Endpoint() string {
	return store.endpoint
}

// Load fetches the token's document.
func (store *RemoteStore) Load(executionContext context.Context) (Document, error) {
	responseBody, requestError := store.exchange(executionContext, http.MethodGet, nil)
	if requestError != nil {
		return Document{}, requestError
	}
	document, parseError := ParseDocument(store.endpoint, responseBody)
	if parseError != nil {
		return Document{}, RemoteStoreError{Method: http.MethodGet, URL: store.endpoint, StatusCode: http.StatusOK, Cause: parseError}
	}
	return document, nil
}

// Record posts the acknowledgement. When the server reports several entries for the README, entries whose
// commits lie strictly behind the newest one in the README's history are deleted.
func (store *RemoteStore) Record(executionContext context.Context, user identity.Identity, readmePath string, commit string) (RecordOutcome, error) {
	posted := UserRecord{Name: user.Name, Email: user.Email, Files: []FileRecord{{Path: readmePath, Commit: commit}}}
	responseBody, postError := store.exchangeJSON(executionContext, http.MethodPost, posted)
	if postError != nil {
		return RecordOutcome{}, postError
	}

	outcome := RecordOutcome{Recorded: true}
	if strings.TrimSpace(string(responseBody)) == AcceptedResponseBody {
		return outcome, nil
	}

	var conflict UserRecord
	if decodeError := json.Unmarshal(responseBody, &conflict); decodeError != nil {
		return RecordOutcome{}, RemoteStoreError{Method: http.MethodPost, URL: store.endpoint, StatusCode: http.StatusOK, Cause: DocumentError{Source: store.endpoint, Cause: decodeError}}
	}

	superseded := store.supersededEntries(executionContext, conflict.Files)
	for _, fileRecord := range superseded {
		if fileRecord.Path == readmePath && fileRecord.Commit == commit {
			outcome.Recorded = false
		}
	}
	if len(superseded) == 0 {
		return outcome, nil
	}

	deletion := UserRecord{Name: user.Name, Email: user.Email, Files: superseded}
	if _, putError := store.exchangeJSON(executionContext, http.MethodPut, deletion); putError != nil {
		return RecordOutcome{}, putError
	}
	store.logger.Debug(supersededDeletedMessageConstant, zap.String(endpointLogFieldConstant, store.endpoint), zap.Int(supersededCountLogFieldConstant, len(superseded)))
	outcome.Superseded = superseded
	return outcome, nil
}

// supersededEntries keeps, per path, the entry nearest to HEAD in the path's history and returns the others
// that appear in that history. Entries unknown to the history are left alone.
func (store *RemoteStore) supersededEntries(executionContext context.Context, entries []FileRecord) []FileRecord {
	entriesByPath := map[string][]FileRecord{}
	var orderedPaths []string
	for _, entry := range entries {
		if _, seen := entriesByPath[entry.Path]; !seen {
			orderedPaths = append(orderedPaths, entry.Path)
		}
		entriesByPath[entry.Path] = append(entriesByPath[entry.Path], entry)
	}

	var superseded []FileRecord
	for _, path := range orderedPaths {
		pathEntries := entriesByPath[path]
		if len(pathEntries) < 2 {
			continue
		}
		pathHistory, historyError := store.historian.PathHistory(executionContext, gitrepo.HeadRevision, path, remoteHistoryLimitConstant)
		if historyError != nil {
			store.logger.Warn(historyUnavailableMessageConstant, zap.String(readmeLogFieldConstant, path), zap.Error(historyError))
			continue
		}
		positions := make(map[string]int, len(pathHistory))
		for position, summary := range pathHistory {
			positions[summary.Hash] = position
		}

		newestPosition := -1
		for _, entry := range pathEntries {
			if position, known := positions[entry.Commit]; known && (newestPosition < 0 || position < newestPosition) {
				newestPosition = position
			}
		}
		for _, entry := range pathEntries {
			if position, known := positions[entry.Commit]; known && position > newestPosition {
				superseded = append(superseded, entry)
			}
		}
	}
	return superseded
}

func (store *RemoteStore) exchangeJSON(executionContext context.Context, method string, payload UserRecord) ([]byte, error) {
	encoded, encodeError := json.Marshal(payload)
	if encodeError != nil {
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, Cause: encodeError}
	}
	return store.exchange(executionContext, method, encoded)
}

func (store *RemoteStore) exchange(executionContext context.Context, method string, payload []byte) ([]byte, error) {
	var requestBody io.Reader
	if payload != nil {
		requestBody = bytes.NewReader(payload)
	}
	request, requestError := http.NewRequestWithContext(executionContext, method, store.endpoint, requestBody)
	if requestError != nil {
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, Cause: requestError}
	}
	if payload != nil {
		request.Header.Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	}

	response, responseError := store.client.Do(request)
	if responseError != nil {
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, Cause: responseError}
	}
	defer response.Body.Close()

	responseBody, readError := io.ReadAll(io.LimitReader(response.Body, maximumResponseBytesConstant))
	if readError != nil {
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, StatusCode: response.StatusCode, Cause: readError}
	}
	switch {
	case response.StatusCode == http.StatusNotFound:
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, StatusCode: response.StatusCode, Cause: ErrUnknownToken}
	case response.StatusCode != http.StatusOK:
		return nil, RemoteStoreError{Method: method, URL: store.endpoint, StatusCode: response.StatusCode}
	}
	return responseBody, nil
}
