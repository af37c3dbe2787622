package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/binbuddy/internal/progress"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("events")}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("stage", string(evt.Stage)),
			zap.String("barcode", evt.Barcode),
			zap.Time("ts", evt.TS),
		}
		switch evt.Stage {
		case progress.StageScanRecorded:
			fields = append(fields,
				zap.String("scan_id", evt.ScanID),
				zap.String("category", evt.Category),
				zap.Bool("pfand", evt.Pfand),
			)
		case progress.StageLookupDone:
			fields = append(fields, zap.String("source", evt.Source), zap.Duration("dur", evt.Dur))
		case progress.StageLookupError:
			fields = append(fields, zap.String("kind", evt.ErrorKind), zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("scan event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
