package observability

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// SlogObserver writes events to a slog.Logger. The event type becomes the
// message and Data keys become attributes in sorted order. Durations are
// logged in milliseconds and errors as their message.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger uses slog.Default
// at emit time, so later slog.SetDefault calls are honored.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	level := event.Level.SlogLevel()
	if !logger.Enabled(ctx, level) {
		return
	}

	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for _, k := range keys {
		switch v := event.Data[k].(type) {
		case time.Duration:
			attrs = append(attrs, slog.Float64(k+"_ms", float64(v)/float64(time.Millisecond)))
		case error:
			attrs = append(attrs, slog.String(k, v.Error()))
		default:
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
