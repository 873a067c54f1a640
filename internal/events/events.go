package events

import "go.uber.org/zap"

// Severity classifies a user-facing notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// Category routes a notification to the right part of the UI.
type Category string

const (
	CategoryRental   Category = "rental"
	CategoryPrinting Category = "printing"
)

// Sink receives user-facing notifications from the engines. Implementations
// must not block; failures are swallowed by Emit.
type Sink interface {
	Notify(message string, severity Severity, category Category)
}

// Emit delivers a notification fire-and-forget. A nil sink is allowed and a
// panicking sink never fails the originating operation.
func Emit(sink Sink, message string, severity Severity, category Category) {
	if sink == nil {
		return
	}
	defer func() { _ = recover() }()
	sink.Notify(message, severity, category)
}

// LogSink forwards notifications to the service log. It stands in for the
// toast layer when no interactive view is attached.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a log-backed sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify writes the notification at a level matching its severity.
func (s *LogSink) Notify(message string, severity Severity, category Category) {
	fields := []zap.Field{
		zap.String("severity", string(severity)),
		zap.String("category", string(category)),
	}
	if severity == SeverityError {
		s.logger.Warn(message, fields...)
		return
	}
	s.logger.Info(message, fields...)
}
