package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes instrument events to an slog.Logger.
// Useful for development when you want to see instrument traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Warnings and errors use the
// corresponding slog levels, everything else is Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("handle_id", event.HandleID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Instrument != "" {
		attrs = append(attrs, slog.String("instrument", event.Instrument))
	}
	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}

	level := slog.LevelDebug

	// Add type-specific attributes
	switch {
	case event.Exchange != nil:
		attrs = append(attrs,
			slog.String("text", event.Exchange.Text),
			slog.Bool("query", event.Exchange.Query),
		)
	case event.NativeCall != nil:
		attrs = append(attrs, slog.String("function", event.NativeCall.Function))
		if event.NativeCall.Args != "" {
			attrs = append(attrs, slog.String("args", event.NativeCall.Args))
		}
		if event.NativeCall.Code != nil {
			attrs = append(attrs, slog.Int("code", *event.NativeCall.Code))
		}
	case event.Parameter != nil:
		attrs = append(attrs,
			slog.String("parameter", event.Parameter.Name),
			slog.Any("value", event.Parameter.Value),
			slog.Bool("set", event.Parameter.Set),
		)
		if event.Parameter.Unit != "" {
			attrs = append(attrs, slog.String("unit", event.Parameter.Unit))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Warning != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("warning", event.Warning.Message))
		if event.Warning.Context != "" {
			attrs = append(attrs, slog.String("context", event.Warning.Context))
		}
	case event.Error != nil:
		level = slog.LevelError
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "instrument", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
