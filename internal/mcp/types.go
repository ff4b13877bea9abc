package mcp

import "encoding/json"

// ProtocolVersion is the MCP protocol revision sent in initialize requests.
const ProtocolVersion = "2024-11-05"

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// JSONRPCResponse holds the only field of a JSON-RPC 2.0 response the
// transport reads: the id used to route stream messages. The body itself is
// handed to callers untouched.
type JSONRPCResponse struct {
	ID json.RawMessage `json:"id"`
}

// InitializeParams holds the parameters for the MCP initialize request.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies the MCP client.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallToolParams holds the parameters for a tools/call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewInitializeRequest builds an initialize request advertising no client
// capabilities.
func NewInitializeRequest(id, clientName, clientVersion string) *JSONRPCRequest {
	return &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "initialize",
		Params: InitializeParams{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{},
			ClientInfo: ClientInfo{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}
}

// NewToolCallRequest builds a tools/call request for the named tool.
func NewToolCallRequest(id, tool string, args map[string]any) *JSONRPCRequest {
	if args == nil {
		args = map[string]any{}
	}
	return &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params: CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	}
}

// matchesID reports whether a raw JSON-RPC id equals want. Servers may echo
// a string id back as a number, so both encodings are accepted.
func matchesID(raw json.RawMessage, want string) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == want
	}
	return string(raw) == want
}
