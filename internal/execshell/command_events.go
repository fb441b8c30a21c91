package execshell

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that the process exited and supplies its result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports failures that prevented an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// CommandEventObservers fans notifications out to several observers in registration order.
type CommandEventObservers []CommandEventObserver

// NewCommandEventObservers drops nil entries and returns a no-op observer when nothing remains.
func NewCommandEventObservers(observers ...CommandEventObserver) CommandEventObserver {
	registered := make(CommandEventObservers, 0, len(observers))
	for _, observer := range observers {
		if observer != nil {
			registered = append(registered, observer)
		}
	}
	if len(registered) == 0 {
		return noopCommandEventObserver{}
	}
	return registered
}

// CommandStarted forwards the notification to every observer.
func (observers CommandEventObservers) CommandStarted(command ShellCommand) {
	for _, observer := range observers {
		observer.CommandStarted(command)
	}
}

// CommandCompleted forwards the notification to every observer.
func (observers CommandEventObservers) CommandCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range observers {
		observer.CommandCompleted(command, result)
	}
}

// CommandExecutionFailed forwards the notification to every observer.
func (observers CommandEventObservers) CommandExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range observers {
		observer.CommandExecutionFailed(command, failure)
	}
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
