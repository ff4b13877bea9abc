package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vincar/vinmcp/internal/mcp"
)

// mockServer is an MCP-over-SSE server that records every POST.
type mockServer struct {
	endpoint   string
	toolResult string
	// initStatus and toolStatus override the 200 reply status when set.
	initStatus int
	toolStatus int

	mu    sync.Mutex
	posts []recordedPost
}

type recordedPost struct {
	URL  string
	Body map[string]any
}

func (m *mockServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", m.endpoint)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/msg", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		m.mu.Lock()
		m.posts = append(m.posts, recordedPost{URL: r.URL.String(), Body: body})
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body["method"] == "initialize" {
			if m.initStatus != 0 {
				w.WriteHeader(m.initStatus)
			}
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","result":{"protocolVersion":"2024-11-05","capabilities":{},"serverInfo":{"name":"mock"}}}`)
			return
		}
		if m.toolStatus != 0 {
			w.WriteHeader(m.toolStatus)
		}
		fmt.Fprint(w, m.toolResult)
	})
	return mux
}

func (m *mockServer) recorded() []recordedPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedPost(nil), m.posts...)
}

const toolResult = `{"jsonrpc":"2.0","id":"2","result":{"content":[{"type":"text","text":"{\"make\":\"BMW\",\"year\":2011}"}],"isError":false}}`

func TestRun(t *testing.T) {
	mock := &mockServer{endpoint: "/msg?session=abc", toolResult: toolResult}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	err := Run(context.Background(), Options{BaseURL: srv.URL, HTTPClient: srv.Client()}, &out)
	if err != nil {
		t.Fatalf("Run() error: %v\noutput:\n%s", err, out.String())
	}

	posts := mock.recorded()
	if len(posts) != 2 {
		t.Fatalf("expected 2 POSTs, got %d", len(posts))
	}
	for i, p := range posts {
		if p.URL != "/msg?session=abc" {
			t.Errorf("post[%d] URL = %q, want %q", i, p.URL, "/msg?session=abc")
		}
	}

	wantInit := map[string]any{
		"jsonrpc": "2.0",
		"id":      "1",
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test-client", "version": "1.0.0"},
		},
	}
	if diff := cmp.Diff(wantInit, posts[0].Body); diff != "" {
		t.Errorf("initialize body mismatch (-want +got):\n%s", diff)
	}

	wantCall := map[string]any{
		"jsonrpc": "2.0",
		"id":      "2",
		"method":  "tools/call",
		"params": map[string]any{
			"name":      "audit_vehicle_safety",
			"arguments": map[string]any{"vin": "5UXWX7C50BA"},
		},
	}
	if diff := cmp.Diff(wantCall, posts[1].Body); diff != "" {
		t.Errorf("tools/call body mismatch (-want +got):\n%s", diff)
	}

	got := out.String()
	for _, line := range []string{
		"Connecting to " + srv.URL + "/sse...",
		"Server endpoint received: /msg?session=abc",
		"Sending initialization to " + srv.URL + "/msg?session=abc...",
		"Calling 'audit_vehicle_safety'...",
		"--- Tool Result ---",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("output missing line %q\noutput:\n%s", line, got)
		}
	}

	// The printed result is indented and carries the same values.
	_, printed, _ := strings.Cut(got, "--- Tool Result ---\n")
	if !strings.Contains(printed, "\n  \"jsonrpc\": \"2.0\"") {
		t.Errorf("result is not indented:\n%s", printed)
	}
	var gotResult, wantResult any
	if err := json.Unmarshal([]byte(printed), &gotResult); err != nil {
		t.Fatalf("printed result is not JSON: %v", err)
	}
	_ = json.Unmarshal([]byte(toolResult), &wantResult)
	if diff := cmp.Diff(wantResult, gotResult); diff != "" {
		t.Errorf("printed result mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInitializeErrorStillCallsTool(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: endpoint\ndata: /msg\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/msg", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, fmt.Sprint(body["method"]))
		mu.Unlock()
		if body["method"] == "initialize" {
			// A JSON-RPC level rejection is not inspected by the client.
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":"1","error":{"code":-32602,"message":"unsupported"}}`)
			return
		}
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":"2","result":{}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	if err := Run(context.Background(), Options{BaseURL: srv.URL}, &out); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{"initialize", "tools/call"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInitializeHTTPErrorStillCallsTool(t *testing.T) {
	mock := &mockServer{endpoint: "/msg", toolResult: toolResult, initStatus: http.StatusBadRequest}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	if err := Run(context.Background(), Options{BaseURL: srv.URL}, &out); err != nil {
		t.Fatalf("Run() error: %v\noutput:\n%s", err, out.String())
	}

	var methods []any
	for _, p := range mock.recorded() {
		methods = append(methods, p.Body["method"])
	}
	if diff := cmp.Diff([]any{"initialize", "tools/call"}, methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "--- Tool Result ---\n") {
		t.Errorf("output missing tool result:\n%s", out.String())
	}
}

func TestRunPrintsErrorStatusBody(t *testing.T) {
	const rpcErr = `{"jsonrpc":"2.0","id":"2","error":{"code":-32603,"message":"boom"}}`
	mock := &mockServer{endpoint: "/msg", toolResult: rpcErr, toolStatus: http.StatusInternalServerError}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	if err := Run(context.Background(), Options{BaseURL: srv.URL}, &out); err != nil {
		t.Fatalf("Run() error: %v\noutput:\n%s", err, out.String())
	}

	_, printed, ok := strings.Cut(out.String(), "--- Tool Result ---\n")
	if !ok {
		t.Fatalf("output missing tool result:\n%s", out.String())
	}
	want, _ := Indent([]byte(rpcErr))
	if strings.TrimSpace(printed) != want {
		t.Errorf("printed result = %q, want %q", printed, want)
	}
	if !strings.Contains(printed, `"message": "boom"`) {
		t.Errorf("printed result not indented:\n%s", printed)
	}
}

func TestRunEmptyErrorStatus(t *testing.T) {
	mock := &mockServer{endpoint: "/msg", toolStatus: http.StatusServiceUnavailable}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	err := Run(context.Background(), Options{BaseURL: srv.URL}, &out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := err.Error(); got != "tools/call: http status 503 with empty body" {
		t.Errorf("error = %q, want %q", got, "tools/call: http status 503 with empty body")
	}
}

func TestRunTrimsTrailingSlash(t *testing.T) {
	mock := &mockServer{endpoint: "/msg", toolResult: toolResult}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	if err := Run(context.Background(), Options{BaseURL: srv.URL + "/"}, &out); err != nil {
		t.Fatalf("Run() error: %v\noutput:\n%s", err, out.String())
	}

	got := out.String()
	for _, line := range []string{
		"Connecting to " + srv.URL + "/sse...",
		"Sending initialization to " + srv.URL + "/msg...",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("output missing line %q\noutput:\n%s", line, got)
		}
	}
	if strings.Contains(got, "//sse") {
		t.Errorf("output has doubled slash:\n%s", got)
	}
}

func TestRunNoEndpoint(t *testing.T) {
	var (
		mu    sync.Mutex
		posts int
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": connected\n\nevent: message\ndata: hi\n\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			posts++
			mu.Unlock()
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	err := Run(context.Background(), Options{BaseURL: srv.URL}, &out)
	if !errors.Is(err, mcp.ErrNoEndpoint) {
		t.Fatalf("Run() error = %v, want ErrNoEndpoint", err)
	}
	mu.Lock()
	if posts != 0 {
		t.Errorf("expected no POSTs, got %d", posts)
	}
	mu.Unlock()

	var report bytes.Buffer
	Report(&report, err)
	if got := report.String(); got != "Failed to get endpoint from server\n" {
		t.Errorf("report = %q", got)
	}
}

func TestRunConnectionReset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	err := Run(context.Background(), Options{BaseURL: srv.URL}, &out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, mcp.ErrNoEndpoint) {
		t.Fatalf("reset connection reported as missing endpoint: %v", err)
	}

	var report bytes.Buffer
	Report(&report, err)
	got := report.String()
	if !strings.HasPrefix(got, "Error: connect sse: ") {
		t.Errorf("report = %q, want Error: prefix", got)
	}
	if !strings.HasSuffix(got, Hint+"\n") {
		t.Errorf("report = %q, want hint suffix", got)
	}
}

func TestRunNonJSONResult(t *testing.T) {
	mock := &mockServer{endpoint: "/msg", toolResult: "<html>oops</html>"}
	srv := httptest.NewServer(mock.handler())
	defer srv.Close()

	var out bytes.Buffer
	err := Run(context.Background(), Options{BaseURL: srv.URL}, &out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.HasPrefix(err.Error(), "tools/call: response is not valid JSON") {
		t.Errorf("error = %q", err)
	}
	if strings.Contains(out.String(), "--- Tool Result ---") {
		t.Error("result header printed for a failed call")
	}
}

func TestIndent(t *testing.T) {
	got, err := Indent([]byte(`{"b":1.50,"a":[1,2],"c":{"d":null}}` + "\n"))
	if err != nil {
		t.Fatalf("Indent() error: %v", err)
	}
	want := `{
  "b": 1.50,
  "a": [
    1,
    2
  ],
  "c": {
    "d": null
  }
}`
	if got != want {
		t.Errorf("Indent() =\n%s\nwant\n%s", got, want)
	}

	if _, err := Indent([]byte("")); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestReportNil(t *testing.T) {
	var out bytes.Buffer
	Report(&out, nil)
	if out.Len() != 0 {
		t.Errorf("Report(nil) wrote %q", out.String())
	}
}
