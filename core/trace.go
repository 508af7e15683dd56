// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines the trace callback: a purely observational hook invoked
// with structured context at the entry of major pipeline stages. Tracing
// never affects control flow.
package core

import "log/slog"

// TraceEvent carries the structured context handed to a trace callback.
type TraceEvent struct {
	OpID  string // correlates events of one logical call
	Kind  Kind
	Model Tag
	Stage string // "dispatch", "query", "mutate", "refetch", ...
}

// TraceFunc observes pipeline activity. Implementations must be cheap and
// must not panic; the pipeline calls them synchronously.
type TraceFunc func(event TraceEvent)

// SlogTrace adapts a slog.Logger into a TraceFunc, logging every stage
// entry at debug level with structured attributes.
//
// Example:
//
//	mapper := core.New(exec, core.WithTrace(core.SlogTrace(slog.Default())))
func SlogTrace(logger *slog.Logger) TraceFunc {
	return func(event TraceEvent) {
		logger.Debug("wisp stage",
			slog.String("op_id", event.OpID),
			slog.String("kind", string(event.Kind)),
			slog.String("model", string(event.Model)),
			slog.String("stage", event.Stage),
		)
	}
}
