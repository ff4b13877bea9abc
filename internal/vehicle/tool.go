package vehicle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolName is the MCP tool exposed by the server.
const ToolName = "audit_vehicle_safety"

// Tool returns the audit_vehicle_safety tool definition.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Audits a US vehicle VIN for specs and active vehicle recalls"),
		mcp.WithString("vin",
			mcp.Required(),
			mcp.Description("The VIN of the vehicle to audit"),
		),
	)
}

// Handler serves audit_vehicle_safety calls. Failures are returned as tool
// error results so the client sees them in the tools/call response.
func (c *Client) Handler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vin, err := req.RequireString("vin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	specs, err := c.Audit(ctx, vin)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
