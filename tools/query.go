package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Query is the argument shape shared by lookup tools. Models sometimes name
// the field topic instead of query; both are accepted.
type Query struct {
	Query string `mapstructure:"query"`
	Topic string `mapstructure:"topic"`
}

// Text returns the trimmed query, preferring query over topic.
func (q Query) Text() string {
	if s := strings.TrimSpace(q.Query); s != "" {
		return s
	}
	return strings.TrimSpace(q.Topic)
}

// DecodeQuery extracts a Query from raw tool arguments with weak typing, so
// numbers and booleans are accepted as query text.
func DecodeQuery(args json.RawMessage) (Query, error) {
	var q Query
	if len(args) == 0 {
		return q, ErrEmptyQuery
	}

	var raw map[string]any
	if err := json.Unmarshal(args, &raw); err != nil {
		return q, err
	}
	if err := mapstructure.WeakDecode(raw, &q); err != nil {
		return q, err
	}
	if q.Text() == "" {
		return q, ErrEmptyQuery
	}
	return q, nil
}

// QueryHandler adapts a lookup that takes a query string into a Handler.
// Argument decoding failures become failure results.
func QueryHandler(fn func(ctx context.Context, query string) Result) Handler {
	return func(ctx context.Context, args json.RawMessage) (Result, error) {
		q, err := DecodeQuery(args)
		if err != nil {
			return Failure("invalid arguments: %v", err), nil
		}
		return fn(ctx, q.Text()), nil
	}
}
