package audit_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/dependencies"
	"github.com/temirov/rtfr/internal/execshell"
	"github.com/temirov/rtfr/internal/utils"
)

const (
	checkWorkspaceRootConstant     = "/workspace/project"
	checkBoundaryFlagConstant      = "--boundary"
	checkDedupFlagConstant         = "--dedup"
	checkInvalidDedupValueConstant = "per-planet"
	checkNotWorkTreeOutputConstant = "fatal: not a git repository"
	checkGitBinaryConstant         = "git"
)

type recordingGitExecutor struct {
	commands []execshell.CommandDetails
	fail     bool
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.commands = append(executor.commands, details)
	if executor.fail {
		result := execshell.ExecutionResult{ExitCode: 128, StandardError: checkNotWorkTreeOutputConstant}
		return result, execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details}, Result: result}
	}
	return execshell.ExecutionResult{StandardOutput: "false\n"}, nil
}

func buildCheckCommand(testInstance *testing.T, executor *recordingGitExecutor, arguments ...string) (func() error, *strings.Builder) {
	testInstance.Helper()
	builder := audit.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		GitExecutor:    executor,
		Discoverer:     scenarioDiscoverer,
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	command.SetContext(utils.NewCommandContextAccessor().WithWorkspaceRoot(context.Background(), checkWorkspaceRootConstant))
	command.SetArgs(arguments)
	outputBuffer := &strings.Builder{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	return command.Execute, outputBuffer
}

func TestCommandBuilderRegistersFlags(testInstance *testing.T) {
	command, buildError := (&audit.CommandBuilder{}).Build()
	require.NoError(testInstance, buildError)

	for _, flagName := range []string{"boundary", "limit", "workers", "dedup", "identity", "no-color"} {
		require.NotNil(testInstance, command.Flags().Lookup(flagName), flagName)
	}
	require.Contains(testInstance, command.Flags().Lookup("dedup").Usage, "readme")
}

func TestCommandBuilderRejectsInvalidInvocations(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedError string
	}{
		{
			name:          "positional_arguments",
			arguments:     []string{"README.md"},
			expectedError: "check does not accept positional arguments",
		},
		{
			name:          "unknown_dedup_granularity",
			arguments:     []string{checkDedupFlagConstant, checkInvalidDedupValueConstant},
			expectedError: checkInvalidDedupValueConstant,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			executor := &recordingGitExecutor{}
			execute, _ := buildCheckCommand(subTest, executor, testCase.arguments...)

			executionError := execute()
			require.Error(subTest, executionError)
			require.Contains(subTest, executionError.Error(), testCase.expectedError)
			require.Empty(subTest, executor.commands)
		})
	}
}

func TestCommandBuilderRequiresWorkTree(testInstance *testing.T) {
	testCases := []struct {
		name     string
		executor *recordingGitExecutor
	}{
		{name: "git_fails", executor: &recordingGitExecutor{fail: true}},
		{name: "outside_work_tree", executor: &recordingGitExecutor{}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			execute, _ := buildCheckCommand(subTest, testCase.executor, checkBoundaryFlagConstant, "c1")

			executionError := execute()
			require.ErrorIs(subTest, executionError, dependencies.ErrNotRepository)
			require.Len(subTest, testCase.executor.commands, 1)
			require.Equal(subTest, checkWorkspaceRootConstant, testCase.executor.commands[0].WorkingDirectory)
			require.Equal(subTest, []string{"rev-parse", "--is-inside-work-tree"}, testCase.executor.commands[0].Arguments)
		})
	}
}

func TestCheckCommandAgainstGitRepository(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(checkGitBinaryConstant); lookupError != nil {
		testInstance.Skip("git is not installed")
	}

	repositoryRoot := testInstance.TempDir()
	runGit := func(arguments ...string) {
		command := exec.Command(checkGitBinaryConstant, arguments...)
		command.Dir = repositoryRoot
		command.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
		output, runError := command.CombinedOutput()
		require.NoError(testInstance, runError, string(output))
	}
	writeFile := func(relativePath string, content string) {
		absolutePath := filepath.Join(repositoryRoot, filepath.FromSlash(relativePath))
		require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
	commitAs := func(name string, email string, message string) {
		runGit("add", "-A")
		runGit("-c", "user.name="+name, "-c", "user.email="+email, "commit", "-q", "-m", message)
	}

	runGit("init", "-q")
	writeFile(docsReadmePath, sqlAnnotation)
	writeFile(schemaPath, "create table a;")
	commitAs("Ada", "ada@example.com", "docs")
	writeFile(schemaPath, "create table b;")
	commitAs("Bob", "bob@example.com", "schema")

	builder := audit.CommandBuilder{LoggerProvider: func() *zap.Logger { return zap.NewNop() }}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(utils.NewCommandContextAccessor().WithWorkspaceRoot(context.Background(), repositoryRoot))
	command.SetArgs([]string{"--no-color"})
	outputBuffer := &strings.Builder{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)

	executionError := command.Execute()
	require.ErrorIs(testInstance, executionError, audit.ErrViolationsDetected)
	require.Contains(testInstance, outputBuffer.String(), "Bob <bob@example.com>,")
	require.Contains(testInstance, outputBuffer.String(), "./docs/README.md")
	require.NotContains(testInstance, outputBuffer.String(), "Ada <ada@example.com>")
}

func TestCheckCommandFollowsBranchReadme(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(checkGitBinaryConstant); lookupError != nil {
		testInstance.Skip("git is not installed")
	}

	repositoryRoot := testInstance.TempDir()
	runGit := func(arguments ...string) {
		command := exec.Command(checkGitBinaryConstant, arguments...)
		command.Dir = repositoryRoot
		command.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
		output, runError := command.CombinedOutput()
		require.NoError(testInstance, runError, string(output))
	}
	writeFile := func(relativePath string, content string) {
		absolutePath := filepath.Join(repositoryRoot, filepath.FromSlash(relativePath))
		require.NoError(testInstance, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(testInstance, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
	commitAs := func(name string, email string, message string) {
		runGit("add", "-A")
		runGit("-c", "user.name="+name, "-c", "user.email="+email, "commit", "-q", "-m", message)
	}

	runGit("init", "-q")
	writeFile(docsReadmePath, sqlAnnotation)
	writeFile(schemaPath, "create table a;")
	commitAs("Ada", "ada@example.com", "docs")
	runGit("checkout", "-q", "-b", "readme-rewrite")
	writeFile(docsReadmePath, textAnnotation)
	commitAs("Ada", "ada@example.com", "readme")
	runGit("checkout", "-q", "-")
	writeFile(schemaPath, "create table b;")
	commitAs("Bob", "bob@example.com", "schema")
	runGit("-c", "user.name=Carol", "-c", "user.email=carol@example.com", "merge", "-q", "--no-ff", "-m", "merge", "readme-rewrite")

	builder := audit.CommandBuilder{LoggerProvider: func() *zap.Logger { return zap.NewNop() }}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(utils.NewCommandContextAccessor().WithWorkspaceRoot(context.Background(), repositoryRoot))
	command.SetArgs([]string{"--no-color"})
	outputBuffer := &strings.Builder{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)

	executionError := command.Execute()
	require.ErrorIs(testInstance, executionError, audit.ErrViolationsDetected)
	require.Contains(testInstance, outputBuffer.String(), "Bob <bob@example.com>,")
	require.Contains(testInstance, outputBuffer.String(), "./docs/README.md")
	require.NotContains(testInstance, outputBuffer.String(), "Carol <carol@example.com>")
}
