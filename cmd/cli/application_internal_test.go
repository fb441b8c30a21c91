package cli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/identity"
)

const (
	testSearchPathEnvironmentName = "RTFR_CONFIG_SEARCH_PATH"
	testGitBinary                 = "git"
)

func newIsolatedApplication(testInstance *testing.T) *Application {
	testInstance.Helper()
	testInstance.Setenv(testSearchPathEnvironmentName, testInstance.TempDir())
	application := NewApplication()
	application.rootCommand.SetContext(context.Background())
	return application
}

func TestApplicationRegistersCommands(testInstance *testing.T) {
	application := newIsolatedApplication(testInstance)

	registered := map[string]bool{}
	for _, command := range application.rootCommand.Commands() {
		registered[command.Name()] = true
	}
	for _, commandName := range []string{"check", "read", "init", "serve", "watch"} {
		require.True(testInstance, registered[commandName], commandName)
	}
	for _, flagName := range []string{"config", "log-level", "log-format", "dir"} {
		require.NotNil(testInstance, application.rootCommand.PersistentFlags().Lookup(flagName), flagName)
	}
}

func TestInitializeConfigurationAttachesWorkspaceRoot(testInstance *testing.T) {
	application := newIsolatedApplication(testInstance)
	workspaceRoot := testInstance.TempDir()
	rootCommand := application.rootCommand

	require.NoError(testInstance, rootCommand.PersistentFlags().Set("dir", workspaceRoot))
	require.NoError(testInstance, application.initializeConfiguration(rootCommand))

	attachedRoot, found := application.commandContextAccessor.WorkspaceRoot(rootCommand.Context())
	require.True(testInstance, found)
	expectedRoot, resolveError := filepath.Abs(workspaceRoot)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, expectedRoot, attachedRoot)

	require.Equal(testInstance, 100, application.configuration.Tools.Check.HistoryLimit)
	require.Equal(testInstance, "badger", application.configuration.Tools.Serve.Storage)
}

func TestInitializeConfigurationLayering(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileContent   string
		environment   map[string]string
		flags         map[string]string
		expectedDedup string
		expectedLevel string
	}{
		{
			name:          "embedded_defaults",
			expectedDedup: "readme",
			expectedLevel: "info",
		},
		{
			name:          "configuration_file",
			fileContent:   "common:\n  log_level: warn\ntools:\n  check:\n    dedup: file\n",
			expectedDedup: "file",
			expectedLevel: "warn",
		},
		{
			name:          "environment_overrides_file",
			fileContent:   "tools:\n  check:\n    dedup: file\n",
			environment:   map[string]string{"RTFR_TOOLS_CHECK_DEDUP": "commit"},
			expectedDedup: "commit",
			expectedLevel: "info",
		},
		{
			name:          "flag_overrides_log_level",
			fileContent:   "common:\n  log_level: warn\n",
			flags:         map[string]string{"log-level": "error"},
			expectedDedup: "readme",
			expectedLevel: "error",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			for environmentName, environmentValue := range testCase.environment {
				subTest.Setenv(environmentName, environmentValue)
			}
			application := newIsolatedApplication(subTest)
			rootCommand := application.rootCommand
			require.NoError(subTest, rootCommand.PersistentFlags().Set("dir", subTest.TempDir()))
			if len(testCase.fileContent) > 0 {
				configurationPath := filepath.Join(subTest.TempDir(), "config.yaml")
				require.NoError(subTest, os.WriteFile(configurationPath, []byte(testCase.fileContent), 0o600))
				require.NoError(subTest, rootCommand.PersistentFlags().Set("config", configurationPath))
			}
			for flagName, flagValue := range testCase.flags {
				require.NoError(subTest, rootCommand.PersistentFlags().Set(flagName, flagValue))
			}

			require.NoError(subTest, application.initializeConfiguration(rootCommand))
			require.Equal(subTest, testCase.expectedDedup, application.configuration.Tools.Check.Dedup)
			require.Equal(subTest, testCase.expectedLevel, application.configuration.Common.LogLevel)
		})
	}
}

func TestInitializeConfigurationRejectsMissingWorkspace(testInstance *testing.T) {
	application := newIsolatedApplication(testInstance)
	rootCommand := application.rootCommand
	require.NoError(testInstance, rootCommand.PersistentFlags().Set("dir", filepath.Join(testInstance.TempDir(), "missing")))

	initializationError := application.initializeConfiguration(rootCommand)
	require.Error(testInstance, initializationError)
	require.Contains(testInstance, initializationError.Error(), "unable to open workspace")
}

func TestApplicationCheckReadCheck(testInstance *testing.T) {
	if _, lookupError := exec.LookPath(testGitBinary); lookupError != nil {
		testInstance.Skip("git is not installed")
	}
	testInstance.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	repositoryRoot := testInstance.TempDir()
	runGit := func(arguments ...string) {
		command := exec.Command(testGitBinary, arguments...)
		command.Dir = repositoryRoot
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
	runGit("config", "user.name", "Bob")
	runGit("config", "user.email", "bob@example.com")
	writeFile("docs/README.md", "# Docs\n<!-- README *.sql -->\n")
	commitAs("Ada", "ada@example.com", "docs")
	writeFile("docs/schema.sql", "create table a;")
	commitAs("Bob", "bob@example.com", "schema")

	execute := func(arguments ...string) (string, error) {
		application := newIsolatedApplication(testInstance)
		output := &strings.Builder{}
		application.rootCommand.SetOut(output)
		application.rootCommand.SetErr(output)
		application.rootCommand.SetArgs(append([]string{"--log-level", "error", "--dir", repositoryRoot}, arguments...))
		executionError := application.Execute()
		return output.String(), executionError
	}

	_, firstCheckError := execute("check", "--no-color")
	require.ErrorIs(testInstance, firstCheckError, audit.ErrViolationsDetected)

	_, readError := execute("read", "docs/README.md")
	require.NoError(testInstance, readError)

	document, parseError := readAcknowledgements(filepath.Join(repositoryRoot, acknowledgement.DefaultFileName))
	require.NoError(testInstance, parseError)
	require.Len(testInstance, document.Commits(nil, identity.New("Bob", "bob@example.com"), "docs/README.md"), 1)

	_, secondCheckError := execute("check", "--no-color")
	require.NoError(testInstance, secondCheckError)
}

func readAcknowledgements(path string) (acknowledgement.Document, error) {
	content, readError := os.ReadFile(path)
	if readError != nil {
		return acknowledgement.Document{}, readError
	}
	return acknowledgement.ParseDocument(path, content)
}
