package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

// ToolServerConfig describes an MCP tool server binary launched over stdio.
type ToolServerConfig struct {
	Binary  string            `mapstructure:"binary"`
	Env     map[string]string `mapstructure:"env"`
	Enabled bool              `mapstructure:"enabled"`
}

// MCPConnection wraps an mcp-go stdio client for a single tool server.
type MCPConnection struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// NewMCPConnection launches an MCP server subprocess, initializes the session
// and discovers its tools.
func NewMCPConnection(name, binary string, env []string) (*MCPConnection, error) {
	c, err := client.NewStdioMCPClient(binary, env)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %s (%s): %w", name, binary, err)
	}

	ctx := context.Background()

	_, err = c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "gemmalab",
				Version: "0.1.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing MCP server %s: %w", name, err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("listing tools from %s: %w", name, err)
	}

	return &MCPConnection{
		name:   name,
		client: c,
		tools:  result.Tools,
	}, nil
}

// ToolSpecs converts the server's input schemas to llm.ToolSpec. Property
// types and descriptions are carried over; nested schemas are not.
func (mc *MCPConnection) ToolSpecs() []llm.ToolSpec {
	var specs []llm.ToolSpec
	for _, t := range mc.tools {
		schema := llm.Schema{
			Type:       t.InputSchema.Type,
			Properties: make(map[string]llm.Property, len(t.InputSchema.Properties)),
			Required:   t.InputSchema.Required,
		}
		for name, raw := range t.InputSchema.Properties {
			prop, _ := raw.(map[string]any)
			typ, _ := prop["type"].(string)
			desc, _ := prop["description"].(string)
			schema.Properties[name] = llm.Property{Type: typ, Description: desc}
		}
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return specs
}

// CallTool invokes a tool on this server and returns its text result. A result
// flagged as an error by the server is returned as a Go error.
func (mc *MCPConnection) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := mc.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("calling tool %s on %s: %w", name, mc.name, err)
	}

	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	text := strings.Join(parts, "\n")
	if result.IsError {
		return "", fmt.Errorf("tool %s on %s: %s", name, mc.name, text)
	}
	return text, nil
}

// ToolNames returns the names of all tools on this server.
func (mc *MCPConnection) ToolNames() []string {
	names := make([]string, len(mc.tools))
	for i, t := range mc.tools {
		names[i] = t.Name
	}
	return names
}

// Close shuts down the MCP server subprocess.
func (mc *MCPConnection) Close() {
	mc.client.Close()
}
