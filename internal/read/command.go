package read

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/dependencies"
	"github.com/temirov/rtfr/internal/execshell"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/utils/flags"
)

const (
	commandUseConstant              = "read <readme>"
	commandShortDescriptionConstant = "Record that you have read a README"
	commandLongDescriptionConstant  = "read records the latest committed revision of the README as read by the identity configured in git (user.name and user.email). Acknowledgements go to the workspace server when .rtfrrc names one, and to .rtf-readme.json otherwise."
	recordedTemplateConstant        = "%s read %s at %s\n"
	unchangedTemplateConstant       = "%s had already read %s at %s\n"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the read cobra command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	// ConfigurationProvider supplies the identity matching mode shared with check.
	ConfigurationProvider func() audit.CommandConfiguration
	GitExecutor           gitrepo.GitExecutor
	HTTPClient            *http.Client
}

// Build constructs the read command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	executionContext := command.Context()

	configuration := audit.DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	matching, matchingError := flags.ParseChoice(configuration.Identity, string(audit.IdentityMatchingExact), audit.IdentityMatchingChoices())
	if matchingError != nil {
		return matchingError
	}
	canonicalizer := audit.IdentityMatching(matching).Canonicalizer()

	workspaceRoot, rootError := dependencies.ResolveWorkspaceRoot(executionContext)
	if rootError != nil {
		return rootError
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger)
	if executorError != nil {
		return executorError
	}
	oracle, oracleError := dependencies.ResolveHistoryOracle(executionContext, gitExecutor, workspaceRoot)
	if oracleError != nil {
		return oracleError
	}

	workspaceConfig := dependencies.LoadWorkspaceConfig(workspaceRoot, logger)
	store, storeError := dependencies.ResolveStore(workspaceConfig, workspaceRoot, oracle, canonicalizer, builder.HTTPClient, logger)
	if storeError != nil {
		return storeError
	}

	service, serviceError := NewService(oracle, store, logger)
	if serviceError != nil {
		return serviceError
	}
	defer service.Close()

	result, readError := service.Read(executionContext, workspaceRoot, arguments[0])
	if readError != nil {
		return readError
	}

	template := recordedTemplateConstant
	if !result.Outcome.Recorded {
		template = unchangedTemplateConstant
	}
	_, printError := fmt.Fprintf(command.OutOrStdout(), template, result.Identity.String(), result.ReadmePath, execshell.AbbreviateRevision(result.Commit))
	return printError
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
