package services

import "github.com/google/logger"

// Diagnostic reports a best-effort failure that was absorbed rather than
// returned: a skipped discovery tier, an unparsable event, a missing prize.
type Diagnostic struct {
	Component string
	Subject   string
	Message   string
	Err       error
}

// DiagnosticFunc receives diagnostics. It must be safe for concurrent use.
type DiagnosticFunc func(Diagnostic)

// LogDiagnostics forwards diagnostics to the process logger.
func LogDiagnostics(d Diagnostic) {
	if d.Err != nil {
		logger.Warningf("%s: %s %s: %v", d.Component, d.Message, d.Subject, d.Err)
		return
	}
	logger.Infof("%s: %s %s", d.Component, d.Message, d.Subject)
}

func (f DiagnosticFunc) report(component, subject, message string, err error) {
	if f == nil {
		return
	}
	f(Diagnostic{Component: component, Subject: subject, Message: message, Err: err})
}
