package watch

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/dependencies"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/utils/flags"
)

const (
	commandNameConstant             = "watch"
	commandShortDescriptionConstant = "Hint which READMEs to read while you edit"
	commandLongDescriptionConstant  = "watch follows file changes in the work tree and prints a hint when a changed file is governed by a README whose latest revision the identity configured in git has not read."
	flagDebounceNameConstant        = "debounce"
	flagDebounceDescriptionConstant = "How long a file must stay unchanged before it is checked"
	batchFailedMessageConstant      = "Unable to evaluate changes"
	watchStoppedMessageConstant     = "Watch stopped"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// EventSource delivers batches of work tree changes until its context ends.
type EventSource interface {
	Start(executionContext context.Context) (<-chan []Change, error)
}

// EventSourceFactory creates the event source for a workspace.
type EventSourceFactory func(root string, ignore []string, debounce time.Duration, logger *zap.Logger) (EventSource, error)

// CommandBuilder assembles the watch cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	// CheckConfigurationProvider supplies identity matching and README history depth shared with check.
	CheckConfigurationProvider func() audit.CommandConfiguration
	GitExecutor                gitrepo.GitExecutor
	HTTPClient                 *http.Client
	EventSourceFactory         EventSourceFactory
}

// Build constructs the watch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}
	command.Flags().Duration(flagDebounceNameConstant, DefaultDebounce, flagDebounceDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := builder.resolveLogger()

	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if command.Flags().Changed(flagDebounceNameConstant) {
		configuration.Debounce, _ = command.Flags().GetDuration(flagDebounceNameConstant)
	}
	configuration = configuration.Sanitize()

	checkConfiguration := audit.DefaultCommandConfiguration()
	if builder.CheckConfigurationProvider != nil {
		checkConfiguration = builder.CheckConfigurationProvider()
	}
	matching, matchingError := flags.ParseChoice(checkConfiguration.Identity, string(audit.IdentityMatchingExact), audit.IdentityMatchingChoices())
	if matchingError != nil {
		return matchingError
	}
	canonicalizer := audit.IdentityMatching(matching).Canonicalizer()

	executionContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	hinter, hinterError := NewHinter(oracle, HinterOptions{
		WorkspaceRoot:      workspaceRoot,
		Config:             workspaceConfig,
		Canonicalizer:      canonicalizer,
		ReadmeHistoryLimit: checkConfiguration.ReadmeHistoryLimit,
		Snapshots: func(snapshotContext context.Context) acknowledgement.Snapshot {
			return dependencies.LoadSnapshot(snapshotContext, store, canonicalizer, logger)
		},
		Discoverer: dependencies.ResolveReadmeDiscoverer(nil),
		Reader:     dependencies.ResolveWorktreeReader(nil),
	}, command.OutOrStdout(), logger)
	if hinterError != nil {
		return hinterError
	}
	hinter.Prime()

	factory := builder.EventSourceFactory
	if factory == nil {
		factory = newFilesystemEventSource
	}
	source, sourceError := factory(workspaceRoot, workspaceConfig.Ignore, configuration.Debounce, logger)
	if sourceError != nil {
		return sourceError
	}
	return Run(executionContext, source, hinter, logger)
}

// Run feeds every batch from source to hinter until the source closes or executionContext ends.
func Run(executionContext context.Context, source EventSource, hinter *Hinter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	changes, startError := source.Start(executionContext)
	if startError != nil {
		return startError
	}
	for batch := range changes {
		if handleError := hinter.Handle(executionContext, batch); handleError != nil {
			if errors.Is(handleError, context.Canceled) {
				break
			}
			logger.Warn(batchFailedMessageConstant, zap.Error(handleError))
		}
	}
	logger.Debug(watchStoppedMessageConstant)
	return nil
}

func newFilesystemEventSource(root string, ignore []string, debounce time.Duration, logger *zap.Logger) (EventSource, error) {
	return NewFilesystemEvents(root, ignore, debounce, logger)
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
