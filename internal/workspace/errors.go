package workspace

import (
	"errors"
	"fmt"
)

const configurationErrorTemplateConstant = "workspace configuration %s: %v"

var (
	// ErrConfigurationMissing indicates the workspace has no configuration file.
	ErrConfigurationMissing = errors.New("configuration file not found")
	// ErrInvalidBoundaryCommit indicates a boundary commit that is not a full commit hash.
	ErrInvalidBoundaryCommit = errors.New("init commit must be 40 alphanumeric characters")
	// ErrInvalidServerURL indicates a server location that is not an http or https URL.
	ErrInvalidServerURL = errors.New("server must be an http or https URL")
	// ErrWorkspaceRootRequired indicates an empty workspace directory.
	ErrWorkspaceRootRequired = errors.New("workspace directory required")
)

// ConfigurationError reports a missing or malformed workspace configuration.
// Callers fall back to DefaultConfig when they can.
type ConfigurationError struct {
	Path  string
	Cause error
}

// Error describes the configuration problem.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Path, configurationError.Cause)
}

// Unwrap exposes the underlying problem.
func (configurationError ConfigurationError) Unwrap() error {
	return configurationError.Cause
}
