package kagi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c := NewClient("test-token", WithBaseURL(srv.URL))
	return c, srv
}

const metaJSON = `{"id":"abc-123","node":"us-east","ms":42,"api_balance":4.75}`

func TestGenerate_Success(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/fastgpt" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Fatalf("auth header = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %q", ct)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["query"] != "who invented Go?" {
			t.Fatalf("query = %v", req["query"])
		}
		if cache, _ := req["cache"].(bool); !cache {
			t.Fatalf("cache should default to true, body = %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"meta":` + metaJSON + `,"data":{
			"output":"Robert Griesemer, Rob Pike and Ken Thompson.",
			"tokens":12,
			"references":[
				{"title":"B","snippet":"second","url":"https://example.com/b"},
				{"title":"A","snippet":"first","url":"https://example.com/a"},
				{"title":"C","snippet":"third","url":"https://example.com/c"}
			]}}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	resp, err := client.Generate(context.Background(), "who invented Go?")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Meta.ID != "abc-123" || resp.Meta.Node != "us-east" {
		t.Fatalf("meta = %+v", resp.Meta)
	}
	if resp.Meta.Duration != 42*time.Millisecond {
		t.Fatalf("duration = %v", resp.Meta.Duration)
	}
	if resp.Meta.APIBalance != 4.75 {
		t.Fatalf("balance = %v", resp.Meta.APIBalance)
	}
	if resp.Tokens != 12 {
		t.Fatalf("tokens = %d", resp.Tokens)
	}
	// Reference order must match the wire order exactly.
	if len(resp.References) != 3 {
		t.Fatalf("references = %d", len(resp.References))
	}
	want := []string{"B", "A", "C"}
	for i, ref := range resp.References {
		if ref.Title != want[i] {
			t.Fatalf("references[%d].Title = %q, want %q", i, ref.Title, want[i])
		}
	}
	if resp.References[1].Snippet != "first" || resp.References[1].URL != "https://example.com/a" {
		t.Fatalf("references[1] = %+v", resp.References[1])
	}
}

func TestGenerate_PingPong(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"meta":` + metaJSON + `,"data":{"output":"pong","tokens":0,"references":[]}}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	resp, err := client.Generate(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Output != "pong" {
		t.Fatalf("output = %q", resp.Output)
	}
	if len(resp.References) != 0 {
		t.Fatalf("references = %v", resp.References)
	}
}

func TestGenerate_AuthErrors(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			var calls int32
			handler := func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, "nope", code)
			}
			client, srv := newTestClient(t, handler)
			defer srv.Close()

			_, err := client.Generate(context.Background(), "x")
			if code == http.StatusUnauthorized && !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("want ErrUnauthorized, got %v", err)
			}
			if code == http.StatusForbidden && !errors.Is(err, ErrForbidden) {
				t.Fatalf("want ErrForbidden, got %v", err)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Fatalf("expected exactly 1 request, got %d", n)
			}
		})
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many", http.StatusTooManyRequests)
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	_, err := client.Generate(context.Background(), "x")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("want ErrRateLimited, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly 1 request (no retry), got %d", n)
	}
}

func TestGenerate_MissingOutput(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"meta":` + metaJSON + `,"data":{"tokens":0,"references":[]}}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	_, err := client.Generate(context.Background(), "x")
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("want DecodeError, got %T: %v", err, err)
	}
	if decodeErr.Endpoint != "/v0/fastgpt" {
		t.Fatalf("endpoint = %q", decodeErr.Endpoint)
	}
}

func TestGenerate_APIErrorPayload(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":[{"code":3,"msg":"query too long","ref":null}]}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	_, err := client.Generate(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %T: %v", err, err)
	}
	if apiErr.Status != 422 || apiErr.Code != 3 || apiErr.Message != "query too long" {
		t.Fatalf("unexpected %+v", apiErr)
	}
}

func TestGenerate_EmptyQuery(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	for _, q := range []string{"", "   "} {
		if _, err := client.Generate(context.Background(), q); err == nil {
			t.Fatalf("expected error for query %q", q)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestGenerate_WithoutCache(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if cache, ok := req["cache"].(bool); !ok || cache {
			t.Fatalf("cache = %v, want false", req["cache"])
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"meta":` + metaJSON + `,"data":{"output":"ok","tokens":0,"references":[]}}`))
	}
	client, srv := newTestClient(t, handler)
	defer srv.Close()

	if _, err := client.Generate(context.Background(), "x", WithoutCache()); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
}

func TestClient_DefaultsAndOptions(t *testing.T) {
	c := NewClient("k", WithUserAgent("ua/1.0"), WithBaseURL("http://x/"), WithTimeout(5*time.Second))
	if c.ua != "ua/1.0" {
		t.Fatalf("user agent not applied: %q", c.ua)
	}
	// ensure no trailing slash duplication
	if c.baseURL[len(c.baseURL)-1] == '/' {
		t.Fatalf("baseURL has trailing slash: %q", c.baseURL)
	}
	if c.http.Timeout != 5*time.Second {
		t.Fatalf("timeout not applied: %v", c.http.Timeout)
	}
}

func TestGenerate_MissingToken(t *testing.T) {
	c := NewClient("")
	_, err := c.Generate(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error for empty token")
	}
}
