// Command gemmalab-tool-city-info serves the builtin city tools over MCP stdio,
// so they can be registered as an external tool server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dj707chen/FunctionGemmaLab/internal/tools"
)

func main() {
	s := server.NewMCPServer("gemmalab-city-info", "0.1.0")

	for _, b := range tools.Builtins {
		spec := b.Spec()
		props := make(map[string]any, len(spec.Parameters.Properties))
		for name, p := range spec.Parameters.Properties {
			props[name] = map[string]any{
				"type":        p.Type,
				"description": p.Description,
			}
		}
		s.AddTool(mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: mcp.ToolInputSchema{
				Type:       spec.Parameters.Type,
				Properties: props,
				Required:   spec.Parameters.Required,
			},
		}, handler(b))
	}

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handler(b tools.Builtin) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, _ := request.Params.Arguments.(map[string]any)
		args, err := tools.DecodeCityArgs(raw)
		if err != nil {
			return errResult(err.Error()), nil
		}
		return textResult(b.Execute(args)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
