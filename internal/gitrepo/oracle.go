package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/rtfr/internal/execshell"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	// EmptyTreeHash is git's well-known hash of the empty tree, used as the diff base of root commits.
	EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	// HeadRevision names the checked-out revision.
	HeadRevision = "HEAD"

	gitLogSubcommandConstant         = "log"
	gitShowSubcommandConstant        = "show"
	gitDiffSubcommandConstant        = "diff"
	gitRevListSubcommandConstant     = "rev-list"
	gitConfigSubcommandConstant      = "config"
	gitRevParseSubcommandConstant    = "rev-parse"
	gitTopologicalOrderFlagConstant  = "--topo-order"
	gitHashOnlyFormatFlagConstant    = "--format=%H"
	gitSummaryFormatFlagConstant     = "--format=%H%x1f%P%x1f%an%x1f%ae"
	gitMaxCountFlagTemplateConstant  = "--max-count=%d"
	gitNoPatchFlagConstant           = "-s"
	gitNameOnlyFlagConstant          = "--name-only"
	gitNoRenamesFlagConstant         = "--no-renames"
	gitNullTerminatedFlagConstant    = "-z"
	gitCountFlagConstant             = "--count"
	gitWorkTreeFlagConstant          = "--is-inside-work-tree"
	gitPathSpecSeparatorConstant     = "--"
	gitUserNameKeyConstant           = "user.name"
	gitUserEmailKeyConstant          = "user.email"
	gitOptionalLocksVariableConstant = "GIT_OPTIONAL_LOCKS"
	gitOptionalLocksDisabledConstant = "0"
	revisionRangeTemplateConstant    = "%s..%s"
	revisionPathTemplateConstant     = "%s:%s"
	summaryFieldSeparatorConstant    = "\x1f"
	nullSeparatorConstant            = "\x00"
	lineSeparatorConstant            = "\n"
	trueLiteralConstant              = "true"
	summaryFieldCountConstant        = 4

	listCommitsOperationConstant        = "list-commits"
	commitSummaryOperationConstant      = "commit-summary"
	changedFilesOperationConstant       = "changed-files"
	fileContentOperationConstant        = "file-content"
	ancestryDistanceOperationConstant   = "ancestry-distance"
	pathHistoryOperationConstant        = "path-history"
	configuredIdentityOperationConstant = "configured-identity"
	repositoryCheckOperationConstant    = "repository-check"

	malformedSummaryTemplateConstant = "malformed commit summary %q"
	emptySummaryMessageConstant      = "no commit returned"
)

var absentPathMarkers = []string{"does not exist in", "exists on disk, but not in"}

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// CommitSummary identifies a commit together with its parents and author.
type CommitSummary struct {
	Hash    string
	Parents []string
	Author  identity.Identity
}

// IsMerge reports whether the commit has two or more parents.
func (summary CommitSummary) IsMerge() bool {
	return len(summary.Parents) > 1
}

// HistoryOracle answers history queries for one repository.
type HistoryOracle struct {
	executor       GitExecutor
	repositoryPath string
}

// NewHistoryOracle binds an executor to a repository working directory.
func NewHistoryOracle(executor GitExecutor, repositoryPath string) (*HistoryOracle, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	return &HistoryOracle{executor: executor, repositoryPath: repositoryPath}, nil
}

// RepositoryPath returns the working directory queries run in.
func (oracle *HistoryOracle) RepositoryPath() string {
	return oracle.repositoryPath
}

// IsRepository reports whether the repository path is inside a git work tree.
func (oracle *HistoryOracle) IsRepository(executionContext context.Context) (bool, error) {
	output, queryError := oracle.run(executionContext, repositoryCheckOperationConstant, oracle.repositoryPath, gitRevParseSubcommandConstant, gitWorkTreeFlagConstant)
	if queryError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(queryError, &failedError) {
			return false, nil
		}
		return false, queryError
	}
	return strings.TrimSpace(output) == trueLiteralConstant, nil
}

// ListCommits returns commit hashes reachable from HEAD, newest first in topological order.
// A limit of zero lists every commit.
func (oracle *HistoryOracle) ListCommits(executionContext context.Context, limit int) ([]string, error) {
	arguments := []string{gitLogSubcommandConstant, gitTopologicalOrderFlagConstant, gitHashOnlyFormatFlagConstant}
	if limit > 0 {
		arguments = append(arguments, fmt.Sprintf(gitMaxCountFlagTemplateConstant, limit))
	}

	output, queryError := oracle.run(executionContext, listCommitsOperationConstant, HeadRevision, arguments...)
	if queryError != nil {
		return nil, queryError
	}
	return splitNonEmpty(output, lineSeparatorConstant), nil
}

// CommitSummary returns the parents and author of a revision.
func (oracle *HistoryOracle) CommitSummary(executionContext context.Context, revision string) (CommitSummary, error) {
	output, queryError := oracle.run(executionContext, commitSummaryOperationConstant, revision, gitShowSubcommandConstant, gitNoPatchFlagConstant, gitSummaryFormatFlagConstant, revision)
	if queryError != nil {
		return CommitSummary{}, queryError
	}

	summaries, parseError := parseCommitSummaries(output)
	if parseError != nil {
		return CommitSummary{}, QueryError{Operation: commitSummaryOperationConstant, Target: revision, Cause: parseError}
	}
	if len(summaries) == 0 {
		return CommitSummary{}, QueryError{Operation: commitSummaryOperationConstant, Target: revision, Cause: errors.New(emptySummaryMessageConstant)}
	}
	return summaries[0], nil
}

// ChangedFiles lists paths that differ between base and commit, with deletions reported under their old path.
func (oracle *HistoryOracle) ChangedFiles(executionContext context.Context, base string, commit string) ([]string, error) {
	target := fmt.Sprintf(revisionRangeTemplateConstant, base, commit)
	output, queryError := oracle.run(executionContext, changedFilesOperationConstant, target, gitDiffSubcommandConstant, gitNameOnlyFlagConstant, gitNoRenamesFlagConstant, gitNullTerminatedFlagConstant, base, commit)
	if queryError != nil {
		return nil, queryError
	}
	return splitNonEmpty(output, nullSeparatorConstant), nil
}

// FileContent returns the content of path at commit. Missing paths yield an error wrapping ErrPathAbsent.
func (oracle *HistoryOracle) FileContent(executionContext context.Context, commit string, path string) (string, error) {
	target := fmt.Sprintf(revisionPathTemplateConstant, commit, path)
	output, queryError := oracle.run(executionContext, fileContentOperationConstant, target, gitShowSubcommandConstant, target)
	if queryError != nil {
		var failedError execshell.CommandFailedError
		if errors.As(queryError, &failedError) && isAbsentPathFailure(failedError.Result.StandardError) {
			return "", QueryError{Operation: fileContentOperationConstant, Target: target, Cause: ErrPathAbsent}
		}
		return "", queryError
	}
	return output, nil
}

// AncestryDistance counts commits reachable from to but not from from.
// Zero means to is from itself or one of its ancestors.
func (oracle *HistoryOracle) AncestryDistance(executionContext context.Context, from string, to string) (int, error) {
	target := fmt.Sprintf(revisionRangeTemplateConstant, from, to)
	output, queryError := oracle.run(executionContext, ancestryDistanceOperationConstant, target, gitRevListSubcommandConstant, gitCountFlagConstant, target)
	if queryError != nil {
		return 0, queryError
	}

	distance, parseError := strconv.Atoi(strings.TrimSpace(output))
	if parseError != nil {
		return 0, QueryError{Operation: ancestryDistanceOperationConstant, Target: target, Cause: parseError}
	}
	return distance, nil
}

// PathHistory returns up to limit commits reachable from revision that touched path, newest first.
func (oracle *HistoryOracle) PathHistory(executionContext context.Context, revision string, path string, limit int) ([]CommitSummary, error) {
	arguments := []string{gitLogSubcommandConstant}
	if limit > 0 {
		arguments = append(arguments, fmt.Sprintf(gitMaxCountFlagTemplateConstant, limit))
	}
	arguments = append(arguments, gitSummaryFormatFlagConstant, revision, gitPathSpecSeparatorConstant, path)

	output, queryError := oracle.run(executionContext, pathHistoryOperationConstant, path, arguments...)
	if queryError != nil {
		return nil, queryError
	}

	summaries, parseError := parseCommitSummaries(output)
	if parseError != nil {
		return nil, QueryError{Operation: pathHistoryOperationConstant, Target: path, Cause: parseError}
	}
	return summaries, nil
}

// ConfiguredIdentity reads user.name and user.email from git configuration.
func (oracle *HistoryOracle) ConfiguredIdentity(executionContext context.Context) (identity.Identity, error) {
	name, nameError := oracle.readConfigurationValue(executionContext, gitUserNameKeyConstant)
	if nameError != nil {
		return identity.Identity{}, nameError
	}
	email, emailError := oracle.readConfigurationValue(executionContext, gitUserEmailKeyConstant)
	if emailError != nil {
		return identity.Identity{}, emailError
	}

	configured := identity.New(name, email)
	if validationError := configured.Validate(); validationError != nil {
		return identity.Identity{}, QueryError{Operation: configuredIdentityOperationConstant, Target: configured.String(), Cause: ErrIdentityNotConfigured}
	}
	return configured, nil
}

// readConfigurationValue maps git config's exit status 1 for unset keys onto ErrIdentityNotConfigured.
func (oracle *HistoryOracle) readConfigurationValue(executionContext context.Context, key string) (string, error) {
	value, queryError := oracle.run(executionContext, configuredIdentityOperationConstant, key, gitConfigSubcommandConstant, key)
	if queryError == nil {
		return value, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(queryError, &failedError) {
		return "", QueryError{Operation: configuredIdentityOperationConstant, Target: key, Cause: ErrIdentityNotConfigured}
	}
	return "", queryError
}

func (oracle *HistoryOracle) run(executionContext context.Context, operation string, target string, arguments ...string) (string, error) {
	details := execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     oracle.repositoryPath,
		EnvironmentVariables: map[string]string{gitOptionalLocksVariableConstant: gitOptionalLocksDisabledConstant},
	}

	executionResult, executionError := oracle.executor.ExecuteGit(executionContext, details)
	if executionError != nil {
		return "", QueryError{Operation: operation, Target: target, Cause: executionError}
	}
	return executionResult.StandardOutput, nil
}

func parseCommitSummaries(output string) ([]CommitSummary, error) {
	lines := splitNonEmpty(output, lineSeparatorConstant)
	summaries := make([]CommitSummary, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, summaryFieldSeparatorConstant)
		if len(fields) != summaryFieldCountConstant || len(strings.TrimSpace(fields[0])) == 0 {
			return nil, fmt.Errorf(malformedSummaryTemplateConstant, line)
		}
		summaries = append(summaries, CommitSummary{
			Hash:    strings.TrimSpace(fields[0]),
			Parents: strings.Fields(fields[1]),
			Author:  identity.New(fields[2], fields[3]),
		})
	}
	return summaries, nil
}

func splitNonEmpty(output string, separator string) []string {
	rawEntries := strings.Split(output, separator)
	entries := make([]string, 0, len(rawEntries))
	for _, rawEntry := range rawEntries {
		trimmedEntry := strings.TrimRight(rawEntry, "\r\n")
		if separator == lineSeparatorConstant {
			trimmedEntry = strings.TrimSpace(trimmedEntry)
		}
		if len(trimmedEntry) == 0 {
			continue
		}
		entries = append(entries, trimmedEntry)
	}
	return entries
}

func isAbsentPathFailure(standardError string) bool {
	for _, marker := range absentPathMarkers {
		if strings.Contains(standardError, marker) {
			return true
		}
	}
	return false
}
