package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/utils/flags"
)

const (
	commandNameConstant               = "serve"
	commandShortDescriptionConstant   = "Run the acknowledgement server"
	commandLongDescriptionConstant    = "serve runs the HTTP server that centralizes README acknowledgements for workspaces whose .rtfrrc names a server and token."
	flagAddressNameConstant           = "address"
	flagAddressDescriptionConstant    = "Address to listen on"
	flagStorageNameConstant           = "storage"
	flagStorageDescriptionConstant    = "Document storage backend"
	flagDatabaseNameConstant          = "database"
	flagDatabaseDescriptionConstant   = "Badger database directory"
	flagRedisNameConstant             = "redis"
	flagRedisDescriptionConstant      = "Redis server address"
	flagGenerateNameConstant          = "generate"
	flagGenerateDescriptionConstant   = "Issue a new workspace token at start and print it"
	generatedTokenTemplateConstant    = "%s\n"
	storageCloseFailedMessageConstant = "Unable to close storage"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the serve cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	// StorageOpener replaces OpenStorage when set.
	StorageOpener func(CommandConfiguration, *zap.Logger) (KeyValueStore, error)
	// Ready receives the bound address once the server listens.
	Ready chan<- string
}

// Build constructs the serve command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(flagAddressNameConstant, defaults.Address, flagAddressDescriptionConstant)
	command.Flags().String(flagStorageNameConstant, defaults.Storage, flags.FormatChoiceUsage(defaults.Storage, StorageBackendChoices(), flagStorageDescriptionConstant))
	command.Flags().String(flagDatabaseNameConstant, defaults.DatabasePath, flagDatabaseDescriptionConstant)
	command.Flags().String(flagRedisNameConstant, defaults.RedisAddress, flagRedisDescriptionConstant)
	command.Flags().Bool(flagGenerateNameConstant, false, flagGenerateDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	configuration, configurationError := builder.parseConfiguration(command)
	if configurationError != nil {
		return configurationError
	}
	logger := builder.resolveLogger()

	opener := builder.StorageOpener
	if opener == nil {
		opener = OpenStorage
	}
	store, storageError := opener(configuration, logger)
	if storageError != nil {
		return storageError
	}
	defer func() {
		if closeError := store.Close(); closeError != nil {
			logger.Warn(storageCloseFailedMessageConstant, zap.Error(closeError))
		}
	}()

	metrics := NewMetrics()
	cache, cacheError := NewCache(store, configuration.MaxRecordsPerPath, metrics, logger)
	if cacheError != nil {
		return cacheError
	}

	executionContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if generate, _ := command.Flags().GetBool(flagGenerateNameConstant); generate {
		token, issueError := cache.IssueToken(executionContext)
		if issueError != nil {
			return issueError
		}
		if _, printError := fmt.Fprintf(command.OutOrStdout(), generatedTokenTemplateConstant, token); printError != nil {
			return printError
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(cache, metrics, NewTokenLimiter(configuration.TokenRatePerMinute), logger)
	return NewServer(configuration.Address, router, logger).Run(executionContext, builder.Ready)
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	if command.Flags().Changed(flagAddressNameConstant) {
		configuration.Address, _ = command.Flags().GetString(flagAddressNameConstant)
	}
	if command.Flags().Changed(flagStorageNameConstant) {
		configuration.Storage, _ = command.Flags().GetString(flagStorageNameConstant)
	}
	if command.Flags().Changed(flagDatabaseNameConstant) {
		configuration.DatabasePath, _ = command.Flags().GetString(flagDatabaseNameConstant)
	}
	if command.Flags().Changed(flagRedisNameConstant) {
		configuration.RedisAddress, _ = command.Flags().GetString(flagRedisNameConstant)
	}
	configuration = configuration.Sanitize()

	storage, storageError := flags.ParseChoice(configuration.Storage, string(StorageBackendBadger), StorageBackendChoices())
	if storageError != nil {
		return CommandConfiguration{}, storageError
	}
	configuration.Storage = storage
	return configuration, nil
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

