package setup

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/workspace"
)

const (
	boundaryQuestionTitleConstant       = "Commit hash the check starts from (empty for the whole history):"
	boundaryQuestionDescriptionConstant = "A full 40 character commit hash"
	serverQuestionTitleConstant         = "Acknowledgement server (empty to keep acknowledgements in .rtf-readme.json):"
	serverQuestionDescriptionConstant   = "http(s)://host:port"
	tokenQuestionTitleConstant          = "Server token:"
	tokenQuestionDescriptionConstant    = "Issued by rtfr serve"
	configPathLogFieldConstant          = "path"
	configurationWrittenMessageConstant = "Wrote workspace configuration"
	existingConfigMessageConstant       = "Keeping README and ignore patterns from the existing configuration"
)

var (
	// ErrPrompterNotConfigured indicates init needed an answer but had no way to ask.
	ErrPrompterNotConfigured = errors.New("prompter not configured")
	// ErrTokenRequired indicates a server was configured without a token.
	ErrTokenRequired = errors.New("token required when a server is configured")
)

// Answers holds the values given on the command line. A nil field has not been given and is asked for.
type Answers struct {
	Boundary *string
	Server   *string
	Token    *string
}

// Service asks for missing values and writes .rtfrrc.
type Service struct {
	prompter Prompter
	logger   *zap.Logger
}

// NewService constructs a Service. The prompter may be nil when every answer is supplied.
func NewService(prompter Prompter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{prompter: prompter, logger: logger}
}

// Initialize completes answers, validates them, and writes the workspace configuration.
// README and ignore patterns of a readable existing configuration are kept.
func (service *Service) Initialize(workspaceRoot string, answers Answers) (string, workspace.Config, error) {
	config := workspace.DefaultConfig()
	if existingConfig, loadError := workspace.LoadConfig(workspaceRoot); loadError == nil {
		config.Readme = existingConfig.Readme
		config.Ignore = existingConfig.Ignore
		service.logger.Debug(existingConfigMessageConstant)
	}

	boundary, boundaryError := service.answer(answers.Boundary, Question{
		Title:       boundaryQuestionTitleConstant,
		Description: boundaryQuestionDescriptionConstant,
		Validate:    validateOptionalBoundary,
	})
	if boundaryError != nil {
		return "", workspace.Config{}, boundaryError
	}
	if len(boundary) > 0 {
		normalizedBoundary, validationError := workspace.ValidateBoundaryCommit(boundary)
		if validationError != nil {
			return "", workspace.Config{}, validationError
		}
		config.Init = normalizedBoundary
	}

	server, serverError := service.answer(answers.Server, Question{
		Title:       serverQuestionTitleConstant,
		Description: serverQuestionDescriptionConstant,
		Validate:    validateOptionalServer,
	})
	if serverError != nil {
		return "", workspace.Config{}, serverError
	}
	if len(server) > 0 {
		normalizedServer, validationError := workspace.NormalizeServerURL(server)
		if validationError != nil {
			return "", workspace.Config{}, validationError
		}
		config.Server = normalizedServer

		token, tokenError := service.answer(answers.Token, Question{
			Title:       tokenQuestionTitleConstant,
			Description: tokenQuestionDescriptionConstant,
			Validate:    validateToken,
		})
		if tokenError != nil {
			return "", workspace.Config{}, tokenError
		}
		if validationError := validateToken(token); validationError != nil {
			return "", workspace.Config{}, validationError
		}
		config.Token = token
	}

	configPath, writeError := workspace.WriteConfig(workspaceRoot, config)
	if writeError != nil {
		return "", workspace.Config{}, writeError
	}
	service.logger.Info(configurationWrittenMessageConstant, zap.String(configPathLogFieldConstant, configPath))
	return configPath, config, nil
}

func (service *Service) answer(given *string, question Question) (string, error) {
	if given != nil {
		return strings.TrimSpace(*given), nil
	}
	if service.prompter == nil {
		return "", ErrPrompterNotConfigured
	}
	return service.prompter.Ask(question)
}

func validateOptionalBoundary(value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return nil
	}
	_, validationError := workspace.ValidateBoundaryCommit(value)
	return validationError
}

func validateOptionalServer(value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return nil
	}
	_, validationError := workspace.NormalizeServerURL(value)
	return validationError
}

func validateToken(value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return ErrTokenRequired
	}
	return nil
}
