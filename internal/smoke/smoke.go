// Package smoke runs the end-to-end check against an MCP server over SSE:
// connect, initialize, call one tool, print the result.
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/vincar/vinmcp/internal/mcp"
)

const (
	// DefaultBaseURL is where the smoke test expects the server.
	DefaultBaseURL = "http://localhost:8080"

	ClientName    = "test-client"
	ClientVersion = "1.0.0"

	ToolName = "audit_vehicle_safety"
	// TestVIN is a partial BMW VIN the vPIC decoder still resolves.
	TestVIN = "5UXWX7C50BA"
)

// Hint is printed after any failure.
const Hint = "Make sure the MCP server is running (try 'vinmcp serve')"

// Options configures a smoke run.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Verbose, if set, receives extra progress lines.
	Verbose func(format string, args ...interface{})
}

// Run performs the smoke test, writing progress and the tool result to out.
// It returns mcp.ErrNoEndpoint (wrapped) when the server never announced a
// session endpoint; in that case nothing was POSTed.
func Run(ctx context.Context, opts Options, out io.Writer) error {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	verbose := opts.Verbose
	if verbose == nil {
		verbose = func(string, ...interface{}) {}
	}

	fmt.Fprintf(out, "Connecting to %s/sse...\n", baseURL)
	session, err := mcp.Dial(ctx, opts.HTTPClient, baseURL)
	if err != nil {
		return err
	}
	defer session.Close()

	fmt.Fprintf(out, "Server endpoint received: %s\n", session.Endpoint)

	target := session.URL()
	fmt.Fprintf(out, "Sending initialization to %s...\n", target)

	// The initialize reply is not inspected, not even its status; only
	// transport failures abort.
	initReq := mcp.NewInitializeRequest("1", ClientName, ClientVersion)
	initResp, err := session.Post(ctx, initReq)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	verbose("Initialize answered with HTTP %d", initResp.StatusCode)

	fmt.Fprintf(out, "Calling '%s'...\n", ToolName)
	callReq := mcp.NewToolCallRequest("2", ToolName, map[string]any{"vin": TestVIN})
	body, err := session.Call(ctx, callReq)
	if err != nil {
		return fmt.Errorf("tools/call: %w", err)
	}
	verbose("Received %d byte response", len(body))

	pretty, err := Indent(body)
	if err != nil {
		return fmt.Errorf("tools/call: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Tool Result ---")
	fmt.Fprintln(out, pretty)
	return nil
}

// Indent pretty-prints a JSON document with two-space indentation, keeping
// key order and values exactly as received.
func Indent(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return "", fmt.Errorf("response is not valid JSON: %q", truncate(body, 200))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return "", fmt.Errorf("indent response: %w", err)
	}
	return buf.String(), nil
}

// Report prints the outcome of a failed run. A missing endpoint gets its own
// message; everything else is printed as an error with the startup hint.
func Report(out io.Writer, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, mcp.ErrNoEndpoint) {
		fmt.Fprintln(out, "Failed to get endpoint from server")
		return
	}
	fmt.Fprintf(out, "Error: %s\n", err)
	fmt.Fprintf(out, "\n%s\n", Hint)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
