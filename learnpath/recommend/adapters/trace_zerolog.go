package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

type spanLoggerKey struct{}

// ZerologTracer implements service.Tracer by logging span boundaries.
type ZerologTracer struct {
	logger zerolog.Logger
	level  zerolog.Level
}

// NewZerologTracer creates a new zerolog tracer. Spans are logged at Debug.
func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{
		logger: logger,
		level:  zerolog.DebugLevel,
	}
}

// StartSpan starts a new tracing span and returns the context and finish function.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	lc := t.logger.With().Str("span", name)
	for k, v := range attrs {
		lc = lc.Interface(k, v)
	}
	spanLogger := lc.Logger()

	ctx = context.WithValue(ctx, spanLoggerKey{}, spanLogger)
	startTime := time.Now()

	spanLogger.WithLevel(t.level).Str("event", "span_start").Msg("starting span")

	finish := func(err error) {
		event := spanLogger.WithLevel(t.level)
		if err != nil {
			event = spanLogger.Warn().Err(err)
		}
		event.
			Str("event", "span_end").
			Dur("duration", time.Since(startTime)).
			Msg("ending span")
	}

	return ctx, finish
}

// Event logs a tracing event with the current span context.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger)
	if !ok {
		logger = t.logger
	}

	event := logger.WithLevel(t.level)
	for k, v := range attrs {
		event = event.Interface(k, v)
	}
	event.Str("event", name).Msg("tracing event")
}

var _ service.Tracer = (*ZerologTracer)(nil)
