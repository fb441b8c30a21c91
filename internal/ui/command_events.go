package ui

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/execshell"
)

const querySummaryTemplateConstant = "Ran %d git queries (%d failed)"

// QueryTally counts git invocations observed during a command.
type QueryTally struct {
	Started          int
	Failed           int
	ExecutionFailure int
}

// ConsoleCommandEventLogger renders command lifecycle events through a human-readable zap logger.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
	mutex     sync.Mutex
	tally     QueryTally
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{logger: logger, formatter: execshell.CommandMessageFormatter{}}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.mutex.Lock()
	eventLogger.tally.Started++
	eventLogger.mutex.Unlock()
	eventLogger.logger.Debug(eventLogger.formatter.BuildStartedMessage(command))
}

// CommandCompleted implements execshell.CommandEventObserver.
// Non-zero exits stay at debug level because missing paths at old commits are routine.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Debug(eventLogger.formatter.BuildSuccessMessage(command))
		return
	}
	eventLogger.mutex.Lock()
	eventLogger.tally.Failed++
	eventLogger.mutex.Unlock()
	eventLogger.logger.Debug(eventLogger.formatter.BuildFailureMessage(command, result))
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.mutex.Lock()
	eventLogger.tally.ExecutionFailure++
	eventLogger.mutex.Unlock()
	eventLogger.logger.Error(eventLogger.formatter.BuildExecutionFailureMessage(command, failure))
}

// Tally returns a snapshot of the observed counts.
func (eventLogger *ConsoleCommandEventLogger) Tally() QueryTally {
	if eventLogger == nil {
		return QueryTally{}
	}
	eventLogger.mutex.Lock()
	defer eventLogger.mutex.Unlock()
	return eventLogger.tally
}

// LogSummary writes the closing tally at info level.
func (eventLogger *ConsoleCommandEventLogger) LogSummary() {
	if eventLogger == nil {
		return
	}
	tally := eventLogger.Tally()
	eventLogger.logger.Info(fmt.Sprintf(querySummaryTemplateConstant, tally.Started, tally.Failed+tally.ExecutionFailure))
}
