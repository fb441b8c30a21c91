package setup_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/setup"
	"github.com/temirov/rtfr/internal/workspace"
)

const (
	testBoundaryCommit = "0123456789ABCDEF0123456789abcdef01234567"
	testServerAddress  = "localhost:8080"
	testToken          = "workspace-token"
)

type scriptedPrompter struct {
	answers map[string]string
	asked   []string
}

func (prompter *scriptedPrompter) Ask(question setup.Question) (string, error) {
	prompter.asked = append(prompter.asked, question.Title)
	for prefix, answer := range prompter.answers {
		if len(question.Title) >= len(prefix) && question.Title[:len(prefix)] == prefix {
			if question.Validate != nil {
				if validationError := question.Validate(answer); validationError != nil {
					return "", validationError
				}
			}
			return answer, nil
		}
	}
	return "", nil
}

func stringPointer(value string) *string {
	return &value
}

func TestServiceInitializeFromAnswers(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	service := setup.NewService(nil, nil)

	configPath, config, initializeError := service.Initialize(workspaceRoot, setup.Answers{
		Boundary: stringPointer(testBoundaryCommit),
		Server:   stringPointer(testServerAddress),
		Token:    stringPointer(testToken),
	})
	require.NoError(testInstance, initializeError)
	require.Equal(testInstance, filepath.Join(workspaceRoot, workspace.ConfigFileName), configPath)
	require.Equal(testInstance, "0123456789abcdef0123456789abcdef01234567", config.Init)
	require.Equal(testInstance, "http://localhost:8080", config.Server)
	require.Equal(testInstance, testToken, config.Token)

	loaded, loadError := workspace.LoadConfig(workspaceRoot)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, config.Init, loaded.Init)
	require.Equal(testInstance, workspace.DefaultIgnorePatterns(), loaded.Ignore)
	require.Equal(testInstance, workspace.DefaultReadmePatterns(), loaded.Readme)
}

func TestServiceInitializeAsksOnlyForMissingValues(testInstance *testing.T) {
	prompter := &scriptedPrompter{answers: map[string]string{"Acknowledgement server": "https://rtfr.example.com/", "Server token": testToken}}
	service := setup.NewService(prompter, nil)

	_, config, initializeError := service.Initialize(testInstance.TempDir(), setup.Answers{Boundary: stringPointer("")})
	require.NoError(testInstance, initializeError)
	require.Len(testInstance, prompter.asked, 2)
	require.Empty(testInstance, config.Init)
	require.Equal(testInstance, "https://rtfr.example.com", config.Server)
	require.Equal(testInstance, testToken, config.Token)
}

func TestServiceInitializeLocalOnly(testInstance *testing.T) {
	prompter := &scriptedPrompter{answers: map[string]string{}}
	service := setup.NewService(prompter, nil)

	_, config, initializeError := service.Initialize(testInstance.TempDir(), setup.Answers{})
	require.NoError(testInstance, initializeError)
	require.Len(testInstance, prompter.asked, 2)
	require.False(testInstance, config.HasRemote())
}

func TestServiceInitializeRejectsInvalidAnswers(testInstance *testing.T) {
	testCases := []struct {
		name          string
		answers       setup.Answers
		expectedError error
	}{
		{
			name:          "short_boundary",
			answers:       setup.Answers{Boundary: stringPointer("abc123"), Server: stringPointer("")},
			expectedError: workspace.ErrInvalidBoundaryCommit,
		},
		{
			name:          "unsupported_scheme",
			answers:       setup.Answers{Boundary: stringPointer(""), Server: stringPointer("ftp://example.com")},
			expectedError: workspace.ErrInvalidServerURL,
		},
		{
			name:          "server_without_token",
			answers:       setup.Answers{Boundary: stringPointer(""), Server: stringPointer(testServerAddress), Token: stringPointer(" ")},
			expectedError: setup.ErrTokenRequired,
		},
		{
			name:          "missing_answer_without_prompter",
			answers:       setup.Answers{Boundary: stringPointer("")},
			expectedError: setup.ErrPrompterNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			workspaceRoot := subTest.TempDir()
			_, _, initializeError := setup.NewService(nil, nil).Initialize(workspaceRoot, testCase.answers)
			require.ErrorIs(subTest, initializeError, testCase.expectedError)

			_, statError := os.Stat(filepath.Join(workspaceRoot, workspace.ConfigFileName))
			require.True(subTest, os.IsNotExist(statError))
		})
	}
}

func TestServiceInitializeKeepsExistingPatterns(testInstance *testing.T) {
	workspaceRoot := testInstance.TempDir()
	existing := "readme:\n  - docs/**/README.md\nignore:\n  - vendor\n"
	require.NoError(testInstance, os.WriteFile(filepath.Join(workspaceRoot, workspace.ConfigFileName), []byte(existing), 0o644))

	_, config, initializeError := setup.NewService(nil, nil).Initialize(workspaceRoot, setup.Answers{Boundary: stringPointer(""), Server: stringPointer("")})
	require.NoError(testInstance, initializeError)
	require.Equal(testInstance, []string{"docs/**/README.md"}, config.Readme)
	require.Equal(testInstance, []string{"vendor"}, config.Ignore)
}
