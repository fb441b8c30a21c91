// Package execshell runs the git subprocess that backs every history query.
//
// ShellExecutor wraps a CommandRunner with structured logging and lifecycle
// notifications, OSCommandRunner provides the os/exec implementation, and
// CommandMessageFormatter turns git invocations into readable log lines.
package execshell
