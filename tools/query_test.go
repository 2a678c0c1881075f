package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/studyplan/tools"
)

func TestDecodeQuery(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    string
		wantErr bool
	}{
		{name: "query field", args: `{"query":"  photosynthesis "}`, want: "photosynthesis"},
		{name: "topic alias", args: `{"topic":"mitosis"}`, want: "mitosis"},
		{name: "query preferred", args: `{"query":"a","topic":"b"}`, want: "a"},
		{name: "weakly typed", args: `{"query":1984}`, want: "1984"},
		{name: "empty", args: `{"query":""}`, wantErr: true},
		{name: "missing", args: `{}`, wantErr: true},
		{name: "malformed", args: `{query`, wantErr: true},
		{name: "no args", args: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tools.DecodeQuery(json.RawMessage(tt.args))
			if tt.wantErr {
				if err == nil {
					t.Errorf("DecodeQuery() = %+v, want error", q)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeQuery() error = %v", err)
			}
			if q.Text() != tt.want {
				t.Errorf("Text() = %q, want %q", q.Text(), tt.want)
			}
		})
	}
}

func TestDecodeQuery_EmptySentinel(t *testing.T) {
	if _, err := tools.DecodeQuery(json.RawMessage(`{"query":"   "}`)); !errors.Is(err, tools.ErrEmptyQuery) {
		t.Errorf("got %v, want %v", err, tools.ErrEmptyQuery)
	}
}

func TestQueryHandler(t *testing.T) {
	var seen string
	h := tools.QueryHandler(func(_ context.Context, query string) tools.Result {
		seen = query
		return tools.Result{Content: "found " + query}
	})

	res, err := h(context.Background(), json.RawMessage(`{"topic":"genetics"}`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if seen != "genetics" || res.Content != "found genetics" {
		t.Errorf("got query %q, result %+v", seen, res)
	}

	res, err = h(context.Background(), json.RawMessage(`[]`))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.Success() {
		t.Errorf("malformed args: got success %+v", res)
	}
}
