// Package eventlog writes progress events as structured zap log entries.
package eventlog

import (
	"context"
	"fmt"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ contract.EventSink = &Sink{} // Compile-time check

// NewLogger builds a logger writing to stderr. Format is "console" or "json";
// level is one of debug, info, warn, error.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	var lc zap.Config
	switch format {
	case "json":
		lc = zap.NewProductionConfig()
	case "console", "":
		lc = zap.NewDevelopmentConfig()
		lc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format '%s'. must be console or json", format)
	}
	lc.Level = zap.NewAtomicLevelAt(lvl)
	lc.OutputPaths = []string{"stderr"}
	lc.ErrorOutputPaths = []string{"stderr"}
	lc.DisableStacktrace = true
	return lc.Build()
}

// Sink logs every event it receives. Failures are logged at warn level, skips
// at info and everything else at debug.
type Sink struct {
	l *zap.Logger
}

// New returns a sink writing to l. A nil logger discards events.
func New(l *zap.Logger) *Sink {
	if l == nil {
		l = zap.NewNop()
	}
	return &Sink{l: l.Named("events")}
}

// Handle implements contract.EventSink.
func (s *Sink) Handle(_ context.Context, event schema.Event) {
	fields := Fields(event)
	switch {
	case event.Err != nil || event.Action == schema.EventAbortFailed:
		s.l.Warn(string(event.Action), fields...)
	case event.Action == schema.EventSkipped || event.Action == schema.EventCommitCompleted:
		s.l.Info(string(event.Action), fields...)
	default:
		s.l.Debug(string(event.Action), fields...)
	}
}

// Fields converts an event into log fields, leaving out the zero ones.
func Fields(event schema.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("action", string(event.Action)),
		zap.String("path", event.Path),
	}
	if event.Kind != "" {
		fields = append(fields, zap.String("kind", string(event.Kind)))
	}
	if event.Revision > 0 {
		fields = append(fields, zap.Int64("revision", event.Revision))
	}
	if event.TxnID != "" {
		fields = append(fields, zap.String("txn", event.TxnID))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err), zap.String("code", contract.CodeOf(event.Err)))
	}
	return fields
}
