package hermes

import (
	"context"
	"log/slog"
	"os"
)

type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter() *SlogAdapter {
	return &SlogAdapter{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}
}

// NewSlogAdapterWith wraps an existing slog logger, letting callers control
// handler and level.
func NewSlogAdapterWith(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (l *SlogAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	l.logger.InfoContext(ctx, msg, fieldArgs(fields)...)
}

func (l *SlogAdapter) Error(ctx context.Context, msg string, fields map[string]any) {
	l.logger.ErrorContext(ctx, msg, fieldArgs(fields)...)
}

func fieldArgs(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return args
}

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (m *NoopMetrics) IncCounter(name string, value float64, labels ...Label)       {}
func (m *NoopMetrics) ObserveHistogram(name string, value float64, labels ...Label) {}
func (m *NoopMetrics) SetGauge(name string, value float64, labels ...Label)         {}

type NoopLogger struct{}

func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Info(ctx context.Context, msg string, fields map[string]any)  {}
func (l *NoopLogger) Error(ctx context.Context, msg string, fields map[string]any) {}

// LogMetrics writes every metric update as a debug log line. Useful in tests
// and local runs where a real metrics sink is overkill.
type LogMetrics struct {
	logger *slog.Logger
}

func NewLogMetrics() *LogMetrics {
	return &LogMetrics{
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (m *LogMetrics) IncCounter(name string, value float64, labels ...Label) {
	m.log("counter", name, value, labels)
}

func (m *LogMetrics) ObserveHistogram(name string, value float64, labels ...Label) {
	m.log("histogram", name, value, labels)
}

func (m *LogMetrics) SetGauge(name string, value float64, labels ...Label) {
	m.log("gauge", name, value, labels)
}

func (m *LogMetrics) log(kind, name string, value float64, labels []Label) {
	args := []any{"kind", kind, "value", value}
	for _, l := range labels {
		args = append(args, l.Key, l.Value)
	}
	m.logger.Debug(name, args...)
}
