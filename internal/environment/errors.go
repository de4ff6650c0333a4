package environment

import (
	"errors"
	"fmt"
)

const (
	preconditionFailedMessageConstant   = "precondition failed"
	unsupportedOperationMessageConstant = "unsupported operation"
	invocationFailedMessageConstant     = "invocation failed"
	invalidPatternMessageConstant       = "invalid listing pattern"
	operationErrorTemplateConstant      = "%s %s: %s"
	operationErrorCauseTemplateConstant = "%s %s: %s: %v"
)

// ErrorKind classifies failures returned by environment operations.
type ErrorKind int

const (
	// KindPreconditionFailed means the environment is not in a state that allows the operation.
	KindPreconditionFailed ErrorKind = iota + 1
	// KindUnsupportedOperation means the backend cannot perform the operation at all.
	KindUnsupportedOperation
	// KindInvocationFailed means the underlying command or API call could not complete.
	KindInvocationFailed
)

var (
	// ErrPreconditionFailed matches every OperationError of kind KindPreconditionFailed.
	ErrPreconditionFailed = errors.New(preconditionFailedMessageConstant)
	// ErrUnsupportedOperation matches every OperationError of kind KindUnsupportedOperation.
	ErrUnsupportedOperation = errors.New(unsupportedOperationMessageConstant)
	// ErrInvocationFailed matches every OperationError of kind KindInvocationFailed.
	ErrInvocationFailed = errors.New(invocationFailedMessageConstant)
	// ErrInvalidPattern reports a listing glob that cannot be compiled.
	ErrInvalidPattern = errors.New(invalidPatternMessageConstant)
)

// Sentinel returns the sentinel error matching the kind.
func (kind ErrorKind) Sentinel() error {
	switch kind {
	case KindPreconditionFailed:
		return ErrPreconditionFailed
	case KindUnsupportedOperation:
		return ErrUnsupportedOperation
	default:
		return ErrInvocationFailed
	}
}

// String renders the kind using its sentinel message.
func (kind ErrorKind) String() string {
	return kind.Sentinel().Error()
}

// OperationError describes a failed environment operation.
type OperationError struct {
	Kind        ErrorKind
	Environment string
	Operation   string
	Message     string
	Cause       error
}

// Error renders the environment, operation, message and cause.
func (operationError *OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorTemplateConstant, operationError.Environment, operationError.Operation, operationError.Message)
	}
	return fmt.Sprintf(operationErrorCauseTemplateConstant, operationError.Environment, operationError.Operation, operationError.Message, operationError.Cause)
}

// Unwrap exposes the cause.
func (operationError *OperationError) Unwrap() error {
	return operationError.Cause
}

// Is matches the sentinel corresponding to the error kind.
func (operationError *OperationError) Is(target error) bool {
	return target == operationError.Kind.Sentinel()
}

// NewPreconditionFailedError reports an environment that is not ready for the operation.
func NewPreconditionFailedError(environmentName string, operation string, message string) error {
	return &OperationError{Kind: KindPreconditionFailed, Environment: environmentName, Operation: operation, Message: message}
}

// NewUnsupportedOperationError reports an operation the backend cannot perform.
func NewUnsupportedOperationError(environmentName string, operation string, message string) error {
	return &OperationError{Kind: KindUnsupportedOperation, Environment: environmentName, Operation: operation, Message: message}
}

// NewInvocationFailedError reports an operation whose underlying call could not complete.
func NewInvocationFailedError(environmentName string, operation string, message string, cause error) error {
	return &OperationError{Kind: KindInvocationFailed, Environment: environmentName, Operation: operation, Message: message, Cause: cause}
}
