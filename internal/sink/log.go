package sink

import (
	"context"

	"github.com/cloudia/cloudia/internal/logging"
	"go.uber.org/zap"
)

// LogSink logs every decoded epoch at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging to l, or to the global logger when l
// is nil.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = logging.GetLogger()
	}
	return &LogSink{logger: l}
}

// Write logs each epoch of rec.
func (s *LogSink) Write(_ context.Context, rec Record) error {
	for _, e := range rec.Epochs {
		fields := []zap.Field{
			zap.String("device", rec.Name),
			zap.Int("epoch", e.Index),
			zap.Time("t", e.Time),
		}
		for _, smp := range e.Samples {
			fields = append(fields, zap.Float64(smp.Name, smp.Value))
		}
		s.logger.Debug("Epoch decoded", fields...)
	}
	return nil
}
