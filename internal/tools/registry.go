package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

var (
	// ErrUnknownTool is returned when no builtin or MCP server provides a tool.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when a tool call's arguments do not match its schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Registry holds the enabled builtins and any MCP tool server connections.
type Registry struct {
	builtins    []Builtin
	connections map[string]*MCPConnection // server name → connection
	toolIndex   map[string]string         // tool name → server name
}

// NewRegistry creates a registry with every builtin enabled and no MCP servers.
func NewRegistry() *Registry {
	return &Registry{
		builtins:    append([]Builtin(nil), Builtins...),
		connections: make(map[string]*MCPConnection),
		toolIndex:   make(map[string]string),
	}
}

// Restrict keeps only the named builtins enabled. An empty list is a no-op.
func (r *Registry) Restrict(names []string) error {
	if len(names) == 0 {
		return nil
	}
	allowed := make(map[Builtin]bool, len(names))
	for _, n := range names {
		b := ParseBuiltin(n)
		if b == BuiltinUnknown {
			return fmt.Errorf("%w: %s", ErrUnknownTool, n)
		}
		allowed[b] = true
	}
	var kept []Builtin
	for _, b := range Builtins {
		if allowed[b] {
			kept = append(kept, b)
		}
	}
	r.builtins = kept
	return nil
}

// Register launches an MCP tool server and adds its tools to the registry.
func (r *Registry) Register(name string, cfg ToolServerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	var env []string
	env = append(env, os.Environ()...)
	for k, v := range cfg.Env {
		// Expand environment variable references like ${VAR}
		if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
			v = os.Getenv(v[2 : len(v)-1])
		}
		env = append(env, k+"="+v)
	}

	conn, err := NewMCPConnection(name, cfg.Binary, env)
	if err != nil {
		return err
	}

	r.connections[name] = conn
	for _, toolName := range conn.ToolNames() {
		r.toolIndex[toolName] = name
	}
	return nil
}

// AllTools returns the enabled builtin specs followed by MCP tools, ordered by
// server name.
func (r *Registry) AllTools() []llm.ToolSpec {
	var all []llm.ToolSpec
	for _, b := range r.builtins {
		all = append(all, b.Spec())
	}

	names := make([]string, 0, len(r.connections))
	for name := range r.connections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, spec := range r.connections[name].ToolSpecs() {
			if r.enabledBuiltin(spec.Name) != BuiltinUnknown {
				continue
			}
			all = append(all, spec)
		}
	}
	return all
}

// Execute runs the tool named by call and returns its JSON result. Enabled
// builtins take precedence over MCP tools with the same name.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	name := call.Function.Name

	if b := r.enabledBuiltin(name); b != BuiltinUnknown {
		args, err := DecodeCityArgs(call.Function.Arguments)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		return b.Execute(args), nil
	}

	serverName, ok := r.toolIndex[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return r.connections[serverName].CallTool(ctx, name, call.Function.Arguments)
}

func (r *Registry) enabledBuiltin(name string) Builtin {
	b := ParseBuiltin(name)
	for _, enabled := range r.builtins {
		if enabled == b {
			return b
		}
	}
	return BuiltinUnknown
}

// HasServers returns true if any MCP server is connected.
func (r *Registry) HasServers() bool {
	return len(r.connections) > 0
}

// Close shuts down all MCP server connections.
func (r *Registry) Close() {
	for _, conn := range r.connections {
		conn.Close()
	}
}
