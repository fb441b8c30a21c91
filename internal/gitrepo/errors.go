package gitrepo

import (
	"errors"
	"fmt"
)

const queryErrorTemplateConstant = "git %s query failed for %s: %v"

var (
	// ErrGitExecutorNotConfigured indicates the oracle was built without an executor.
	ErrGitExecutorNotConfigured = errors.New("git executor not configured")
	// ErrRepositoryPathRequired indicates the oracle was built without a repository path.
	ErrRepositoryPathRequired = errors.New("repository path required")
	// ErrPathAbsent indicates a path does not exist at the requested revision.
	ErrPathAbsent = errors.New("path absent at revision")
	// ErrIdentityNotConfigured indicates git user.name or user.email is unset.
	ErrIdentityNotConfigured = errors.New("git user.name and user.email must be configured")
)

// QueryError reports a history query git could not answer.
type QueryError struct {
	Operation string
	Target    string
	Cause     error
}

// Error describes the failed query.
func (queryError QueryError) Error() string {
	return fmt.Sprintf(queryErrorTemplateConstant, queryError.Operation, queryError.Target, queryError.Cause)
}

// Unwrap exposes the underlying cause.
func (queryError QueryError) Unwrap() error {
	return queryError.Cause
}
