package agent

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
	"github.com/dj707chen/FunctionGemmaLab/internal/llm/llmtest"
	"github.com/dj707chen/FunctionGemmaLab/internal/tools"
)

// scriptedClient replays responses and records a copy of every conversation.
type scriptedClient struct {
	replies []any // *llm.ChatResponse or error
	calls   [][]llm.Message
	tools   [][]llm.ToolSpec
}

func (c *scriptedClient) Chat(_ context.Context, messages []llm.Message, specs []llm.ToolSpec) (*llm.ChatResponse, error) {
	c.calls = append(c.calls, append([]llm.Message(nil), messages...))
	c.tools = append(c.tools, specs)
	if len(c.replies) == 0 {
		return nil, errors.New("unexpected chat call")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return next.(*llm.ChatResponse), nil
}

func reply(msg llm.Message) *llm.ChatResponse {
	return &llm.ChatResponse{Message: &msg}
}

func toolCallMessage(content, name string, args map[string]any) llm.Message {
	return llm.Message{
		Role:    llm.RoleAssistant,
		Content: content,
		ToolCalls: []llm.ToolCall{{
			Function: llm.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestRunDirectAnswer(t *testing.T) {
	client := &scriptedClient{replies: []any{reply(llm.AssistantMessage("It is sunny in Beijing."))}}
	a := New(client, tools.NewRegistry(), nil)

	res, err := a.Run(context.Background(), "What is the weather of Beijing?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.calls) != 1 || res.Calls != 1 {
		t.Fatalf("chat calls = %d (result says %d), want 1", len(client.calls), res.Calls)
	}
	if res.Answer != "It is sunny in Beijing." {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.ToolCall != nil {
		t.Errorf("tool call = %+v, want nil", res.ToolCall)
	}
	want := []State{StateAwaitingFirstResponse, StateDirectAnswer}
	if !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v, want %v", res.Trace, want)
	}
	if got := client.calls[0]; len(got) != 1 || !reflect.DeepEqual(got[0], llm.UserMessage("What is the weather of Beijing?")) {
		t.Errorf("first conversation = %+v", got)
	}
	if len(client.tools[0]) != 2 {
		t.Errorf("tools sent = %d, want 2", len(client.tools[0]))
	}
}

func TestRunToolRoundTrip(t *testing.T) {
	assistant := toolCallMessage("", "get_weather", map[string]any{"city": "Paris"})
	client := &scriptedClient{replies: []any{
		reply(assistant),
		reply(llm.AssistantMessage("22 degrees and sunny.")),
	}}
	a := New(client, tools.NewRegistry(), nil)

	var seenCall, seenResult string
	a.OnToolCall = func(call llm.ToolCall) { seenCall = FormatToolCall(call) }
	a.OnToolResult = func(name, result string) { seenResult = result }

	res, err := a.Run(context.Background(), "What is the weather of Paris?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.calls) != 2 || res.Calls != 2 {
		t.Fatalf("chat calls = %d, want 2", len(client.calls))
	}

	first, second := client.calls[0], client.calls[1]
	if len(second) != len(first)+2 {
		t.Fatalf("second conversation has %d messages, want %d", len(second), len(first)+2)
	}
	if !reflect.DeepEqual(second[:len(first)], first) {
		t.Errorf("second conversation does not start with the first: %+v", second)
	}
	if !reflect.DeepEqual(second[len(first)], assistant) {
		t.Errorf("appended assistant message changed: %+v", second[len(first)])
	}
	toolMsg := second[len(first)+1]
	if toolMsg.Role != llm.RoleTool {
		t.Errorf("last role = %q, want tool", toolMsg.Role)
	}
	if toolMsg.Content != tools.BuiltinWeather.Execute(tools.CityArgs{City: "Paris"}) {
		t.Errorf("tool content = %q", toolMsg.Content)
	}

	if res.Answer != "22 degrees and sunny." {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.ToolResult != toolMsg.Content || seenResult != toolMsg.Content {
		t.Errorf("tool result = %q, hook saw %q", res.ToolResult, seenResult)
	}
	if seenCall != `get_weather(city="Paris")` {
		t.Errorf("OnToolCall saw %q", seenCall)
	}
	want := []State{StateAwaitingFirstResponse, StateToolRequested, StateAwaitingFinalResponse, StateDone}
	if !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v, want %v", res.Trace, want)
	}
	if len(res.History) != 4 {
		t.Errorf("history = %d messages, want 4", len(res.History))
	}
}

func TestRunUnknownTool(t *testing.T) {
	client := &scriptedClient{replies: []any{
		reply(toolCallMessage("Let me check stocks.", "get_stock_price", map[string]any{"city": "Beijing"})),
	}}
	a := New(client, tools.NewRegistry(), nil)

	res, err := a.Run(context.Background(), "What is the stock price of Beijing?")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, ErrUnsatisfiedToolCall) {
		t.Fatalf("expected ErrUnsatisfiedToolCall, got %v", err)
	}
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("expected wrapped ErrUnknownTool, got %v", err)
	}
	var ue *UnsatisfiedToolCallError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnsatisfiedToolCallError, got %T", err)
	}
	if ue.Tool != "get_stock_price" || ue.Content != "Let me check stocks." {
		t.Errorf("error = %+v", ue)
	}
	if len(client.calls) != 1 {
		t.Errorf("chat calls = %d, want 1", len(client.calls))
	}
}

type emptyExecutor struct{}

func (emptyExecutor) AllTools() []llm.ToolSpec { return nil }
func (emptyExecutor) Execute(context.Context, llm.ToolCall) (string, error) {
	return "", nil
}

func TestRunEmptyToolResult(t *testing.T) {
	client := &scriptedClient{replies: []any{
		reply(toolCallMessage("", "get_news", map[string]any{"city": "Beijing"})),
	}}
	a := New(client, emptyExecutor{}, nil)

	_, err := a.Run(context.Background(), "What is the news of Beijing?")
	var ue *UnsatisfiedToolCallError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnsatisfiedToolCallError, got %v", err)
	}
	if ue.Err != nil {
		t.Errorf("wrapped error = %v, want nil", ue.Err)
	}
	if len(client.calls) != 1 {
		t.Errorf("chat calls = %d, want 1", len(client.calls))
	}
}

func TestRunOnlyFirstToolCall(t *testing.T) {
	msg := toolCallMessage("", "get_news", map[string]any{"city": "Beijing"})
	msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
		Function: llm.FunctionCall{Name: "get_weather", Arguments: map[string]any{"city": "Beijing"}},
	})
	client := &scriptedClient{replies: []any{reply(msg), reply(llm.AssistantMessage("done"))}}
	a := New(client, tools.NewRegistry(), nil)

	res, err := a.Run(context.Background(), "What is the news of Beijing?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ToolCall.Function.Name != "get_news" {
		t.Errorf("executed %q, want get_news", res.ToolCall.Function.Name)
	}
	second := client.calls[1]
	if n := len(second); n != 3 {
		t.Fatalf("second conversation = %d messages, want 3", n)
	}
	if gjson.Get(second[2].Content, "headline").String() == "" {
		t.Errorf("tool message should carry the news result, got %q", second[2].Content)
	}
}

func TestRunTransportErrors(t *testing.T) {
	transport := &llm.TransportError{StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}

	t.Run("first call", func(t *testing.T) {
		client := &scriptedClient{replies: []any{transport}}
		_, err := New(client, tools.NewRegistry(), nil).Run(context.Background(), "hi")
		var te *llm.TransportError
		if !errors.As(err, &te) || te.StatusCode != 503 || te.Body != "overloaded" {
			t.Fatalf("expected TransportError 503, got %v", err)
		}
		if len(client.calls) != 1 {
			t.Errorf("chat calls = %d, want 1", len(client.calls))
		}
	})

	t.Run("second call", func(t *testing.T) {
		client := &scriptedClient{replies: []any{
			reply(toolCallMessage("", "get_news", map[string]any{"city": "Beijing"})),
			transport,
		}}
		_, err := New(client, tools.NewRegistry(), nil).Run(context.Background(), "hi")
		var te *llm.TransportError
		if !errors.As(err, &te) || te.StatusCode != 503 {
			t.Fatalf("expected TransportError 503, got %v", err)
		}
		if len(client.calls) != 2 {
			t.Errorf("chat calls = %d, want 2", len(client.calls))
		}
	})
}

// TestBeijingNewsOverHTTP runs the full exchange against a fake Ollama server,
// with a system prompt so the final request carries four messages.
func TestBeijingNewsOverHTTP(t *testing.T) {
	srv := llmtest.NewServer(t,
		llmtest.MessageReply(toolCallMessage("", "get_news", map[string]any{"city": "Beijing"})),
		llmtest.MessageReply(llm.AssistantMessage("Breaking news in Beijing today.")),
	)
	a := New(llm.NewClient(srv.URL, "functiongemma"), tools.NewRegistry(), nil)
	a.SetSystemPrompt("You are a model that can do function calling with the following functions")

	prompt := Prompt("", "Beijing", "news")
	if prompt != "What is the news of Beijing?" {
		t.Fatalf("prompt = %q", prompt)
	}

	res, err := a.Run(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := gjson.Get(res.ToolResult, "city").String(); got != "Beijing-Normal IL" {
		t.Errorf("city = %q", got)
	}
	if got := gjson.Get(res.ToolResult, "headline").String(); !strings.Contains(got, "Beijing") {
		t.Errorf("headline = %q", got)
	}

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if n := len(reqs[1].Messages); n != 4 {
		t.Fatalf("second request has %d messages, want 4", n)
	}
	last := reqs[1].Messages[3]
	if last.Role != llm.RoleTool || last.Content != res.ToolResult {
		t.Errorf("last message = %+v", last)
	}
	if reqs[1].Messages[2].ToolCalls[0].Function.Name != "get_news" {
		t.Errorf("assistant tool call not echoed: %+v", reqs[1].Messages[2])
	}
	if reqs[0].Stream || reqs[1].Stream {
		t.Error("stream must be false")
	}
	if res.Answer != "Breaking news in Beijing today." {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestFormatToolCall(t *testing.T) {
	call := llm.ToolCall{Function: llm.FunctionCall{
		Name:      "get_weather",
		Arguments: map[string]any{"unit": "celsius", "city": "Beijing"},
	}}
	if got := FormatToolCall(call); got != `get_weather(city="Beijing", unit="celsius")` {
		t.Errorf("FormatToolCall = %q", got)
	}
}

func TestPromptFormat(t *testing.T) {
	if got := Prompt("Tell me the %[2]s for %[1]s.", "Normal", "weather"); got != "Tell me the weather for Normal." {
		t.Errorf("Prompt = %q", got)
	}
}
