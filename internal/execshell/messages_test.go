package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testMessageWorkingDirectoryConstant = "/workspace/repo"
	testMessageCommitHashConstant       = "0123456789abcdef0123456789abcdef01234567"
	testMessageParentHashConstant       = "89abcdef0123456789abcdef0123456789abcdef"
)

func TestCommandMessageFormatterDescribesHistoryQueries(t *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedStart   string
		expectedSuccess string
	}{
		{
			name:            "ListCommits",
			arguments:       []string{"log", "--topo-order", "--format=%H"},
			expectedStart:   "Listing commit history in /workspace/repo",
			expectedSuccess: "Listed commit history in /workspace/repo",
		},
		{
			name:            "PathHistory",
			arguments:       []string{"log", "--max-count=1000", "--format=%H", testMessageCommitHashConstant, "--", "docs/README.md"},
			expectedStart:   "Reading history of docs/README.md at 01234567 in /workspace/repo",
			expectedSuccess: "Read history of docs/README.md at 01234567 in /workspace/repo",
		},
		{
			name:            "FileContent",
			arguments:       []string{"show", testMessageCommitHashConstant + ":README.md"},
			expectedStart:   "Reading README.md at 01234567 in /workspace/repo",
			expectedSuccess: "Read README.md at 01234567 in /workspace/repo",
		},
		{
			name:            "CommitDetails",
			arguments:       []string{"show", "-s", "--format=%P", testMessageCommitHashConstant},
			expectedStart:   "Reading details of commit 01234567 in /workspace/repo",
			expectedSuccess: "Read details of commit 01234567 in /workspace/repo",
		},
		{
			name:            "ChangedFilesFromEmptyTree",
			arguments:       []string{"diff", "--name-only", "-z", gitEmptyTreeHashConstant, testMessageCommitHashConstant},
			expectedStart:   "Listing files changed between the empty tree and 01234567 in /workspace/repo",
			expectedSuccess: "Listed files changed between the empty tree and 01234567 in /workspace/repo",
		},
		{
			name:            "AncestryDistance",
			arguments:       []string{"rev-list", "--count", testMessageParentHashConstant + ".." + testMessageCommitHashConstant},
			expectedStart:   "Counting commits between 89abcdef and 01234567 in /workspace/repo",
			expectedSuccess: "Counted commits between 89abcdef and 01234567 in /workspace/repo",
		},
		{
			name:            "ConfiguredIdentity",
			arguments:       []string{"config", "user.email"},
			expectedStart:   "Reading git configuration user.email in /workspace/repo",
			expectedSuccess: "Read git configuration user.email in /workspace/repo",
		},
		{
			name:            "UnknownSubcommand",
			arguments:       []string{"status", "--porcelain"},
			expectedStart:   "Running git status --porcelain in /workspace/repo",
			expectedSuccess: "Completed git status --porcelain in /workspace/repo",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			formatter := CommandMessageFormatter{}
			command := ShellCommand{
				Name:    CommandGit,
				Details: CommandDetails{Arguments: testCase.arguments, WorkingDirectory: testMessageWorkingDirectoryConstant},
			}

			require.Equal(t, testCase.expectedStart, formatter.BuildStartedMessage(command))
			require.Equal(t, testCase.expectedSuccess, formatter.BuildSuccessMessage(command))
		})
	}
}

func TestCommandMessageFormatterFailureMessagesKeepFirstStandardErrorLine(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name:    CommandGit,
		Details: CommandDetails{Arguments: []string{"show", testMessageCommitHashConstant + ":README.md"}},
	}

	failureMessage := formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 128, StandardError: "fatal: path 'README.md' does not exist\nhint: second line\n"})
	require.Equal(t, "Failed to read README.md at 01234567 (exit code 128: fatal: path 'README.md' does not exist)", failureMessage)

	executionFailureMessage := formatter.BuildExecutionFailureMessage(command, errors.New("git not installed"))
	require.Equal(t, "Unable to read README.md at 01234567: git not installed", executionFailureMessage)
}

func TestAbbreviateRevision(t *testing.T) {
	require.Equal(t, "01234567", AbbreviateRevision(testMessageCommitHashConstant))
	require.Equal(t, "HEAD", AbbreviateRevision("HEAD"))
	require.Equal(t, "the empty tree", AbbreviateRevision(gitEmptyTreeHashConstant))
}
