package acknowledgement

import (
	"errors"
	"fmt"
)

const (
	documentErrorTemplateConstant          = "acknowledgement document %s is invalid: %v"
	remoteStoreErrorTemplateConstant       = "acknowledgement server %s %s failed: %v"
	remoteStoreStatusErrorTemplateConstant = "acknowledgement server %s %s answered %d"
)

var (
	// ErrQueueClosed indicates a write submitted after the queue stopped.
	ErrQueueClosed = errors.New("acknowledgement write queue closed")
	// ErrComparatorNotConfigured indicates a store was built without an ancestry comparator.
	ErrComparatorNotConfigured = errors.New("ancestry comparator not configured")
	// ErrStorePathRequired indicates a file store was built without a path.
	ErrStorePathRequired = errors.New("acknowledgement store path required")
	// ErrEndpointRequired indicates a remote store was built without an endpoint.
	ErrEndpointRequired = errors.New("acknowledgement server endpoint required")
	// ErrUnknownToken indicates the server does not know the workspace token.
	ErrUnknownToken = errors.New("acknowledgement server does not know this token")
)

// DocumentError reports an acknowledgement document that cannot be decoded or fails validation.
type DocumentError struct {
	Source string
	Cause  error
}

// Error describes the invalid document.
func (documentError DocumentError) Error() string {
	return fmt.Sprintf(documentErrorTemplateConstant, documentError.Source, documentError.Cause)
}

// Unwrap exposes the decoding or validation failure.
func (documentError DocumentError) Unwrap() error {
	return documentError.Cause
}

// RemoteStoreError reports a failed exchange with the acknowledgement server.
type RemoteStoreError struct {
	Method     string
	URL        string
	StatusCode int
	Cause      error
}

// Error describes the failed request.
func (remoteError RemoteStoreError) Error() string {
	if remoteError.Cause == nil {
		return fmt.Sprintf(remoteStoreStatusErrorTemplateConstant, remoteError.Method, remoteError.URL, remoteError.StatusCode)
	}
	return fmt.Sprintf(remoteStoreErrorTemplateConstant, remoteError.Method, remoteError.URL, remoteError.Cause)
}

// Unwrap exposes the transport or decoding failure.
func (remoteError RemoteStoreError) Unwrap() error {
	return remoteError.Cause
}
