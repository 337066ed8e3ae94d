package llm_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
	"github.com/dj707chen/FunctionGemmaLab/internal/llm/llmtest"
)

const completionWithToolCall = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "functiongemma",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "get_weather", "arguments": "{\"city\":\"Paris\"}"}
      }]
    }
  }]
}`

func TestOpenAICompatToolCall(t *testing.T) {
	srv := llmtest.NewServer(t, llmtest.Reply{Body: completionWithToolCall})
	c := llm.NewOpenAICompatClient(srv.URL+"/v1/", "ollama", "functiongemma")

	resp, err := c.Chat(context.Background(), []llm.Message{llm.UserMessage("weather in Paris?")}, []llm.ToolSpec{newsSpec})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "get_weather" {
		t.Errorf("tool call = %+v", tc)
	}
	if tc.Function.Arguments["city"] != "Paris" {
		t.Errorf("city = %v", tc.Function.Arguments["city"])
	}

	raw := srv.RawRequests()
	if len(raw) != 1 {
		t.Fatalf("got %d requests, want 1", len(raw))
	}
	if got := gjson.GetBytes(raw[0], "tools.0.function.name").String(); got != "get_news" {
		t.Errorf("tools.0.function.name = %q", got)
	}
}

func TestOpenAICompatTransportError(t *testing.T) {
	srv := llmtest.NewServer(t, llmtest.ErrorReply(http.StatusInternalServerError, `{"error":{"message":"boom"}}`))
	c := llm.NewOpenAICompatClient(srv.URL+"/v1/", "ollama", "functiongemma")

	_, err := c.Chat(context.Background(), []llm.Message{llm.UserMessage("hi")}, nil)
	var te *llm.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", te.StatusCode)
	}

	if n := len(srv.RawRequests()); n != 1 {
		t.Errorf("got %d requests, want exactly 1 (no retries)", n)
	}
}
