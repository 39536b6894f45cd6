package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestChat_NormalizesResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "nested message",
			body: `{"message":{"content":"hi","model":"gpt-a","tokens_used":7}}`,
		},
		{
			name: "flat content",
			body: `{"content":"hi","model":"gpt-a","tokens_used":7}`,
		},
		{
			name: "text with usage",
			body: `{"text":"hi","model":"gpt-a","usage":{"total_tokens":7}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(http.StatusOK, tc.body))

			got, err := c.Chat(context.Background(), ChatRequest{
				Messages: []Message{{Role: "user", Content: "hello"}},
			})
			if err != nil {
				t.Fatalf("chat: %v", err)
			}
			if got.Content != "hi" || got.Model != "gpt-a" || got.TokensUsed != 7 {
				t.Fatalf("normalize(%s) = %+v", tc.name, got)
			}
		})
	}
}

func TestChat_EmptyCompletionIsError(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{}`))
	if _, err := c.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatalf("expected error on empty completion")
	}
}

func TestChat_NonOKStatus(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusBadRequest, `{"error":"bad model"}`))

	_, err := c.Chat(context.Background(), ChatRequest{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", se.Status)
	}
}

func TestUpstreamStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&StatusError{Status: 404}, 404},
		{&StatusError{Status: 429}, 429},
		{&StatusError{Status: 500}, http.StatusServiceUnavailable},
		{&StatusError{Status: 502}, http.StatusServiceUnavailable},
		{errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := UpstreamStatus(tc.err); got != tc.want {
			t.Fatalf("UpstreamStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestEmbed_TopLevelAndNestedShapes(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"embedding":[0.1,0.2]}`))
	vec, err := c.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("expected 2 dims, got %d", len(vec))
	}

	c = newTestClient(t, jsonHandler(http.StatusOK, `{"data":[{"embedding":[0.3,0.4,0.5]}]}`))
	vec, err = c.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("embed nested: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vec))
	}
}

func TestEmbed_EmptyIsError(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{}`))
	if _, err := c.Embed(context.Background(), "query"); err == nil {
		t.Fatalf("expected error on empty embedding")
	}
}

func TestRunAutomation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/automation/run" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"summary":"done"},"tokens_used":12,"items_processed":3,"model":"gpt-a"}`))
	})

	res, err := c.RunAutomation(context.Background(), "weekly_report", map[string]any{"scope": "sales"}, "t1")
	if err != nil {
		t.Fatalf("run automation: %v", err)
	}
	if res.TokensUsed != 12 || res.ItemsProcessed != 3 || res.Model != "gpt-a" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Result["summary"] != "done" {
		t.Fatalf("unexpected payload: %+v", res.Result)
	}
}
