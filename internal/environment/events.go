package environment

import (
	"fmt"
	"time"
)

const (
	severityDebugConstant   = "debug"
	severitySuccessConstant = "success"
	severityErrorConstant   = "error"
)

// Severity tags a diagnostic event.
type Severity int

const (
	// SeverityDebug marks tracing output such as probe timings.
	SeverityDebug Severity = iota
	// SeveritySuccess marks a confirmed positive outcome.
	SeveritySuccess
	// SeverityError marks a failure the caller should see.
	SeverityError
)

// String renders the severity in lower case.
func (severity Severity) String() string {
	switch severity {
	case SeveritySuccess:
		return severitySuccessConstant
	case SeverityError:
		return severityErrorConstant
	default:
		return severityDebugConstant
	}
}

// Event is one diagnostic emitted by an environment.
type Event struct {
	Environment string
	Severity    Severity
	Message     string
	Time        time.Time
}

// MessageHandler receives diagnostics. Environments hold it by reference and never own it.
type MessageHandler func(event Event)

// Reporter formats diagnostics and forwards them to a MessageHandler.
type Reporter struct {
	environmentName string
	messageHandler  MessageHandler
	clock           func() time.Time
}

// NewReporter constructs a reporter for the named environment. A nil handler discards events.
func NewReporter(environmentName string, messageHandler MessageHandler) Reporter {
	return Reporter{environmentName: environmentName, messageHandler: messageHandler, clock: time.Now}
}

// Debug emits a debug diagnostic.
func (reporter Reporter) Debug(format string, arguments ...any) {
	reporter.emit(SeverityDebug, format, arguments)
}

// Success emits a success diagnostic.
func (reporter Reporter) Success(format string, arguments ...any) {
	reporter.emit(SeveritySuccess, format, arguments)
}

// Error emits an error diagnostic.
func (reporter Reporter) Error(format string, arguments ...any) {
	reporter.emit(SeverityError, format, arguments)
}

func (reporter Reporter) emit(severity Severity, format string, arguments []any) {
	if reporter.messageHandler == nil {
		return
	}
	message := format
	if len(arguments) > 0 {
		message = fmt.Sprintf(format, arguments...)
	}
	eventTime := time.Now()
	if reporter.clock != nil {
		eventTime = reporter.clock()
	}
	reporter.messageHandler(Event{
		Environment: reporter.environmentName,
		Severity:    severity,
		Message:     message,
		Time:        eventTime,
	})
}
