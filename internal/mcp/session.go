package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoEndpoint is returned by Dial when the SSE stream ends before the
// server sends an endpoint event.
var ErrNoEndpoint = errors.New("no endpoint event received from server")

// Session is an MCP session over the legacy HTTP+SSE transport. The server
// announces a session-scoped POST endpoint as the first "endpoint" event on
// the stream; requests are POSTed there and responses arrive either in the
// POST body or as "message" events on the stream.
type Session struct {
	// BaseURL is the server address the endpoint path is resolved against.
	BaseURL string
	// Endpoint is the raw data of the endpoint event.
	Endpoint string

	httpClient *http.Client
	stream     io.ReadCloser
	events     *EventReader
}

// Dial opens the SSE stream at baseURL+"/sse" and blocks until the endpoint
// event arrives. The stream stays open until Close is called; on any error it
// is closed before Dial returns.
func Dial(ctx context.Context, httpClient *http.Client, baseURL string) (*Session, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/sse", nil)
	if err != nil {
		return nil, fmt.Errorf("create sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect sse: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("connect sse: http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s := &Session{
		BaseURL:    baseURL,
		httpClient: httpClient,
		stream:     resp.Body,
		events:     NewEventReader(resp.Body),
	}

	endpoint, err := s.awaitEndpoint()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Endpoint = endpoint
	return s, nil
}

func (s *Session) awaitEndpoint() (string, error) {
	for {
		ev, err := s.events.Next()
		if errors.Is(err, io.EOF) {
			return "", ErrNoEndpoint
		}
		if err != nil {
			return "", fmt.Errorf("read sse stream: %w", err)
		}
		if ev.Type == "endpoint" {
			return strings.TrimSpace(ev.Data), nil
		}
	}
}

// URL returns the POST target for this session.
func (s *Session) URL() string {
	return EndpointURL(s.BaseURL, s.Endpoint)
}

// EndpointURL joins the server base address and an endpoint path by plain
// concatenation. Endpoints that are already absolute URLs are returned as-is.
func EndpointURL(baseURL, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return baseURL + endpoint
}

// Response is the HTTP reply to a POSTed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Post sends req to the session endpoint and returns the raw reply whatever
// its status. Only transport failures are errors. The body may be empty when
// the server answers on the stream instead.
func (s *Session) Post(ctx context.Context, req *JSONRPCRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Call posts req and returns its response body. A non-empty body is returned
// whatever the status, since servers report JSON-RPC errors with 4xx/5xx
// replies. An empty 2xx body means the response arrives on the stream as the
// message event carrying req.ID; an empty non-2xx body is an error.
func (s *Session) Call(ctx context.Context, req *JSONRPCRequest) ([]byte, error) {
	resp, err := s.Post(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		return resp.Body, nil
	}
	if !resp.OK() {
		return nil, fmt.Errorf("http status %d with empty body", resp.StatusCode)
	}
	return s.awaitResponse(req.ID)
}

func (s *Session) awaitResponse(id string) ([]byte, error) {
	for {
		ev, err := s.events.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("sse stream closed before response to request %s", id)
		}
		if err != nil {
			return nil, fmt.Errorf("read sse stream: %w", err)
		}
		if ev.Type != "message" {
			continue
		}

		var resp JSONRPCResponse
		if err := json.Unmarshal([]byte(ev.Data), &resp); err != nil {
			// Skip events that aren't JSON-RPC.
			continue
		}
		if matchesID(resp.ID, id) {
			return []byte(ev.Data), nil
		}
	}
}

// Close releases the SSE stream. It is safe to call more than once.
func (s *Session) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}
