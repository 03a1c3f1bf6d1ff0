package agentdef

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentloom/loom"
)

// ToolSource lists tool descriptors from an MCP server so they can
// populate a Definition's tool list. It exposes descriptors only; invoking
// the tools is the remote agent's job, not this runtime's.
type ToolSource struct {
	client *client.Client
}

// NewStdioToolSource connects to an MCP server subprocess over stdio.
// The command is the path to the server executable, and args are passed
// through to it.
func NewStdioToolSource(ctx context.Context, command string, env []string, args ...string) (*ToolSource, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}
	return newToolSource(ctx, c)
}

// NewSSEToolSource connects to an MCP server over SSE at baseURL.
func NewSSEToolSource(ctx context.Context, baseURL string) (*ToolSource, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE MCP client: %w", err)
	}
	return newToolSource(ctx, c)
}

func newToolSource(ctx context.Context, c *client.Client) (*ToolSource, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "loom-agentdef",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}

	return &ToolSource{client: c}, nil
}

// Close closes the connection to the MCP server.
func (s *ToolSource) Close() error {
	return s.client.Close()
}

// Tools fetches the server's current tool list as descriptors suitable for
// a Definition.
func (s *ToolSource) Tools(ctx context.Context) ([]loom.Tool, error) {
	result, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	tools := make([]loom.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, fromMCPTool(t))
	}
	return tools, nil
}

// fromMCPTool extracts the JSON parameter schema from either RawInputSchema
// or the structured InputSchema.
func fromMCPTool(t mcp.Tool) loom.Tool {
	var schema json.RawMessage
	if len(t.RawInputSchema) > 0 {
		schema = t.RawInputSchema
	} else if data, err := json.Marshal(t.InputSchema); err == nil {
		schema = data
	}

	return loom.Tool{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schema,
	}
}
