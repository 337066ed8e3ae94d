package llm

import (
	"fmt"
	"time"
)

// Role represents a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is a single message in a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // OpenAI-compatible transport only
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its arguments as a JSON object.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolSpec describes a tool the model can call.
type ToolSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Parameters  Schema `json:"parameters" yaml:"parameters"`
}

// Schema is the subset of JSON Schema used for tool parameters.
type Schema struct {
	Type       string              `json:"type" yaml:"type"`
	Properties map[string]Property `json:"properties" yaml:"properties"`
	Required   []string            `json:"required" yaml:"required"`
}

// Property is a single parameter in a Schema.
type Property struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// Map renders the schema as a generic JSON object, for transports that take one.
func (s Schema) Map() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       s.Type,
		"properties": props,
		"required":   required,
	}
}

// ToolParam is the wire wrapper Ollama expects around a ToolSpec.
type ToolParam struct {
	Type     string   `json:"type"`
	Function ToolSpec `json:"function"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string      `json:"model"`
	Messages []Message   `json:"messages"`
	Tools    []ToolParam `json:"tools,omitempty"`
	Stream   bool        `json:"stream"`
}

// ChatResponse is the result of one chat exchange.
type ChatResponse struct {
	Model      string    `json:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	Message    *Message  `json:"message"`
	Done       bool      `json:"done,omitempty"`
	DoneReason string    `json:"done_reason,omitempty"`
}

// Validate checks the structural contract the orchestrator relies on.
func (r *ChatResponse) Validate() error {
	if r.Message == nil {
		return fmt.Errorf("%w: missing message", ErrMalformedResponse)
	}
	if !r.Message.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrMalformedResponse, r.Message.Role)
	}
	for i, tc := range r.Message.ToolCalls {
		if tc.Function.Name == "" {
			return fmt.Errorf("%w: tool call %d has no function name", ErrMalformedResponse, i)
		}
	}
	return nil
}

// ModelInfo describes a model available on the server.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// Helper constructors

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

func toolParams(tools []ToolSpec) []ToolParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]ToolParam, len(tools))
	for i, t := range tools {
		out[i] = ToolParam{Type: "function", Function: t}
	}
	return out
}
