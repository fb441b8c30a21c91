package audit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/dependencies"
	"github.com/temirov/rtfr/internal/execshell"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/ui"
	"github.com/temirov/rtfr/internal/utils/flags"
)

const (
	commandNameConstant                = "check"
	commandShortDescriptionConstant    = "Report contributors who changed files without reading the governing README"
	commandLongDescriptionConstant     = "check replays the most recent commits of the workspace and reports every commit that changed a file governed by a README whose current revision its author had not read."
	unexpectedArgumentsMessageConstant = "check does not accept positional arguments"
	flagBoundaryNameConstant           = "boundary"
	flagBoundaryDescriptionConstant    = "Oldest commit to replay, overriding the workspace init commit"
	flagLimitNameConstant              = "limit"
	flagLimitDescriptionConstant       = "Maximum number of commits to replay"
	flagWorkersNameConstant            = "workers"
	flagWorkersDescriptionConstant     = "Maximum number of READMEs resolved concurrently per commit"
	flagDedupNameConstant              = "dedup"
	flagDedupDescriptionConstant       = "Report each unread README once per identity, per file, or per commit"
	flagIdentityNameConstant           = "identity"
	flagIdentityDescriptionConstant    = "How commit authors are matched against acknowledgements"
	flagNoColorNameConstant            = "no-color"
	flagNoColorDescriptionConstant     = "Disable coloured output"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the check cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	GitExecutor                  gitrepo.GitExecutor
	Discoverer                   ReadmeDiscoverer
	WorktreeReader               WorktreeReader
	HTTPClient                   *http.Client
}

// Build constructs the cobra command for README checks.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagBoundaryNameConstant, "", flagBoundaryDescriptionConstant)
	command.Flags().Int(flagLimitNameConstant, defaults.HistoryLimit, flagLimitDescriptionConstant)
	command.Flags().Int(flagWorkersNameConstant, defaults.Workers, flagWorkersDescriptionConstant)
	command.Flags().String(flagDedupNameConstant, defaults.Dedup, flags.FormatChoiceUsage(defaults.Dedup, DedupGranularityChoices(), flagDedupDescriptionConstant))
	command.Flags().String(flagIdentityNameConstant, defaults.Identity, flags.FormatChoiceUsage(defaults.Identity, IdentityMatchingChoices(), flagIdentityDescriptionConstant))
	command.Flags().Bool(flagNoColorNameConstant, false, flagNoColorDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	var eventLogger *ui.ConsoleCommandEventLogger
	var observers []execshell.CommandEventObserver
	if builder.humanReadableLogging() {
		eventLogger = ui.NewConsoleCommandEventLogger(logger)
		observers = append(observers, eventLogger)
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, observers...)
	if executorError != nil {
		return executorError
	}

	executionContext := command.Context()
	oracle, oracleError := dependencies.ResolveHistoryOracle(executionContext, gitExecutor, options.WorkspaceRoot)
	if oracleError != nil {
		return oracleError
	}

	workspaceConfig := dependencies.LoadWorkspaceConfig(options.WorkspaceRoot, logger)
	canonicalizer := options.IdentityMatching.Canonicalizer()
	store, storeError := dependencies.ResolveStore(workspaceConfig, options.WorkspaceRoot, oracle, canonicalizer, builder.HTTPClient, logger)
	if storeError != nil {
		return storeError
	}
	snapshot := dependencies.LoadSnapshot(executionContext, store, canonicalizer, logger)

	service, serviceError := NewService(
		oracle,
		dependencies.ResolveReadmeDiscoverer(builder.Discoverer),
		dependencies.ResolveWorktreeReader(builder.WorktreeReader),
		logger,
		command.ErrOrStderr(),
	)
	if serviceError != nil {
		return serviceError
	}

	runError := service.Run(executionContext, options, workspaceConfig, snapshot)
	eventLogger.LogSummary()
	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (CommandOptions, error) {
	configuration := builder.resolveConfiguration()

	if command.Flags().Changed(flagLimitNameConstant) {
		configuration.HistoryLimit, _ = command.Flags().GetInt(flagLimitNameConstant)
	}
	if command.Flags().Changed(flagWorkersNameConstant) {
		configuration.Workers, _ = command.Flags().GetInt(flagWorkersNameConstant)
	}
	if command.Flags().Changed(flagDedupNameConstant) {
		configuration.Dedup, _ = command.Flags().GetString(flagDedupNameConstant)
	}
	if command.Flags().Changed(flagIdentityNameConstant) {
		configuration.Identity, _ = command.Flags().GetString(flagIdentityNameConstant)
	}
	configuration = configuration.sanitize()

	dedup, dedupError := flags.ParseChoice(configuration.Dedup, string(DedupGranularityReadme), DedupGranularityChoices())
	if dedupError != nil {
		return CommandOptions{}, dedupError
	}
	matching, matchingError := flags.ParseChoice(configuration.Identity, string(IdentityMatchingExact), IdentityMatchingChoices())
	if matchingError != nil {
		return CommandOptions{}, matchingError
	}

	workspaceRoot, rootError := dependencies.ResolveWorkspaceRoot(command.Context())
	if rootError != nil {
		return CommandOptions{}, rootError
	}

	boundaryValue, _ := command.Flags().GetString(flagBoundaryNameConstant)
	noColorValue, _ := command.Flags().GetBool(flagNoColorNameConstant)

	return CommandOptions{
		WorkspaceRoot:      workspaceRoot,
		Boundary:           strings.TrimSpace(boundaryValue),
		HistoryLimit:       configuration.HistoryLimit,
		ReadmeHistoryLimit: configuration.ReadmeHistoryLimit,
		Workers:            configuration.Workers,
		Dedup:              DedupGranularity(dedup),
		IdentityMatching:   IdentityMatching(matching),
		ColorOutput:        !noColorValue && ui.ColorEnabled(command.ErrOrStderr()),
	}, nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
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

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}
