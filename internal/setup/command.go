package setup

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/dependencies"
	"github.com/temirov/rtfr/internal/ui"
)

const (
	commandNameConstant                  = "init"
	commandShortDescriptionConstant      = "Write the workspace configuration (.rtfrrc)"
	commandLongDescriptionConstant       = "init writes .rtfrrc at the workspace root. Values not given as flags are asked for: interactively on a terminal, line by line otherwise."
	flagBoundaryNameConstant             = "init"
	flagBoundaryDescriptionConstant      = "Commit the check starts from"
	flagServerNameConstant               = "server"
	flagServerDescriptionConstant        = "Acknowledgement server URL, http(s)://host:port"
	flagTokenNameConstant                = "token"
	flagTokenDescriptionConstant         = "Token issued by the acknowledgement server"
	configurationWrittenTemplateConstant = "Wrote %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the init cobra command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	// Prompter overrides terminal detection when set.
	Prompter Prompter
}

// Build constructs the init command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().StringP(flagBoundaryNameConstant, "i", "", flagBoundaryDescriptionConstant)
	command.Flags().StringP(flagServerNameConstant, "s", "", flagServerDescriptionConstant)
	command.Flags().StringP(flagTokenNameConstant, "t", "", flagTokenDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	workspaceRoot, rootError := dependencies.ResolveWorkspaceRoot(command.Context())
	if rootError != nil {
		return rootError
	}

	answers := Answers{
		Boundary: changedString(command, flagBoundaryNameConstant),
		Server:   changedString(command, flagServerNameConstant),
		Token:    changedString(command, flagTokenNameConstant),
	}

	service := NewService(builder.resolvePrompter(command.InOrStdin(), command.OutOrStdout()), builder.resolveLogger())
	configPath, _, initializeError := service.Initialize(workspaceRoot, answers)
	if initializeError != nil {
		return initializeError
	}
	_, printError := fmt.Fprintf(command.OutOrStdout(), configurationWrittenTemplateConstant, configPath)
	return printError
}

func (builder *CommandBuilder) resolvePrompter(input io.Reader, output io.Writer) Prompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	if ui.IsTerminal(input) && ui.IsTerminal(output) {
		return NewFormPrompter(output)
	}
	return NewIOLinePrompter(input, output)
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func changedString(command *cobra.Command, flagName string) *string {
	if !command.Flags().Changed(flagName) {
		return nil
	}
	value, _ := command.Flags().GetString(flagName)
	return &value
}
