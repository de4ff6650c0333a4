package environment

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	executeAllOperationConstant   = "execute all"
	executeAllUnsupportedConstant = "environment does not execute commands"
)

// Command is one entry of a batch passed to ExecuteAll.
type Command struct {
	Name      string
	Arguments []string
	Variables []EnvironmentVariable
}

// ExecuteAll runs the commands without exceeding the environment's advertised ceiling and returns the results in
// input order. The first invocation error cancels the remaining commands.
func ExecuteAll(executionContext context.Context, auditEnvironment AuditEnvironment, commands []Command) ([]ExecutionResult, error) {
	ceiling := auditEnvironment.MaxConcurrentExecutions()
	if ceiling < ConcurrencySerialized {
		return nil, NewUnsupportedOperationError(auditEnvironment.Name(), executeAllOperationConstant, executeAllUnsupportedConstant)
	}
	if ceiling == ConcurrencySerialized {
		ceiling = 1
	}

	results := make([]ExecutionResult, len(commands))
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(ceiling)
	for index, command := range commands {
		group.Go(func() error {
			result, executionError := auditEnvironment.Execute(groupContext, command.Name, command.Arguments, command.Variables...)
			if executionError != nil {
				return executionError
			}
			results[index] = result
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return results, nil
}
