package execshell

// CommandEventObserver is notified around every command the ShellExecutor runs.
type CommandEventObserver interface {
	// CommandStarted fires before the runner is invoked.
	CommandStarted(command ShellCommand)
	// CommandCompleted fires once the process exited, whatever its exit code.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed fires when no exit code could be obtained.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// CommandEventObservers fans every event out to each observer in order.
type CommandEventObservers []CommandEventObserver

// CommandStarted forwards the start event.
func (observers CommandEventObservers) CommandStarted(command ShellCommand) {
	for _, observer := range observers {
		observer.CommandStarted(command)
	}
}

// CommandCompleted forwards the completion event.
func (observers CommandEventObservers) CommandCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range observers {
		observer.CommandCompleted(command, result)
	}
}

// CommandExecutionFailed forwards the failure event.
func (observers CommandEventObservers) CommandExecutionFailed(command ShellCommand, failure error) {
	for _, observer := range observers {
		observer.CommandExecutionFailed(command, failure)
	}
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}
