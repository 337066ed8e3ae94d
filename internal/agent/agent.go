package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
	"github.com/dj707chen/FunctionGemmaLab/internal/logging"
	"github.com/dj707chen/FunctionGemmaLab/internal/tools"
)

// DefaultPromptFormat builds "What is the <topic> of <city>?".
const DefaultPromptFormat = "What is the %[2]s of %[1]s?"

// ErrUnsatisfiedToolCall is matched by every UnsatisfiedToolCallError.
var ErrUnsatisfiedToolCall = errors.New("no result from tool")

// UnsatisfiedToolCallError reports that the model requested a tool that could
// not produce a result. Content is the model's own text from that response.
type UnsatisfiedToolCallError struct {
	Tool    string
	Content string
	Err     error
}

func (e *UnsatisfiedToolCallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no result from tool: %s: %v", e.Tool, e.Err)
	}
	return "no result from tool: " + e.Tool
}

func (e *UnsatisfiedToolCallError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnsatisfiedToolCall}
	}
	return []error{ErrUnsatisfiedToolCall, e.Err}
}

// Executor runs a single tool call. *tools.Registry implements it.
type Executor interface {
	AllTools() []llm.ToolSpec
	Execute(ctx context.Context, call llm.ToolCall) (string, error)
}

var _ Executor = (*tools.Registry)(nil)

// Agent drives one prompt through at most two chat calls: the first may
// request a tool, the second turns the tool result into an answer.
type Agent struct {
	llm          llm.Client
	executor     Executor
	logger       *slog.Logger
	systemPrompt string

	OnToolCall   func(call llm.ToolCall)
	OnToolResult func(name string, result string)
}

// Result describes a finished run.
type Result struct {
	RunID      string
	Answer     string
	ToolCall   *llm.ToolCall // nil on the direct-answer path
	ToolResult string
	Calls      int
	History    []llm.Message // every message sent or received, in order
	Trace      []State
}

// New creates an Agent. A nil logger discards log output.
func New(client llm.Client, executor Executor, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Agent{
		llm:      client,
		executor: executor,
		logger:   logging.Component(logger, "agent"),
	}
}

// SetSystemPrompt prepends a system message to every conversation. An empty
// prompt removes it.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.systemPrompt = prompt
}

// Run sends prompt as a one-message conversation (two with a system prompt)
// and returns the final answer. Only the first requested tool call is
// executed. If the tool is unknown or yields nothing, Run stops with an
// *UnsatisfiedToolCallError and makes no second call.
func (a *Agent) Run(ctx context.Context, prompt string) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := a.logger.With(slog.String("run_id", res.RunID))
	step := func(s State) {
		res.Trace = append(res.Trace, s)
		log.Debug("state", slog.String("state", s.String()))
	}

	specs := a.executor.AllTools()
	var history []llm.Message
	if a.systemPrompt != "" {
		history = append(history, llm.SystemMessage(a.systemPrompt))
	}
	history = append(history, llm.UserMessage(prompt))

	step(StateAwaitingFirstResponse)
	resp, err := a.llm.Chat(ctx, history, specs)
	res.Calls++
	if err != nil {
		return nil, fmt.Errorf("first chat call: %w", err)
	}
	history = append(history, *resp.Message)

	if len(resp.Message.ToolCalls) == 0 {
		step(StateDirectAnswer)
		res.Answer = resp.Message.Content
		res.History = history
		return res, nil
	}

	step(StateToolRequested)
	call := resp.Message.ToolCalls[0]
	if n := len(resp.Message.ToolCalls); n > 1 {
		log.Warn("ignoring additional tool calls", slog.Int("requested", n))
	}
	res.ToolCall = &call

	if a.OnToolCall != nil {
		a.OnToolCall(call)
	}
	log.Info("tool call", slog.String("tool", call.Function.Name), slog.Any("arguments", call.Function.Arguments))

	result, err := a.executor.Execute(ctx, call)
	if err != nil || result == "" {
		log.Error("tool call unsatisfied", slog.String("tool", call.Function.Name), slog.Any("error", err))
		return nil, &UnsatisfiedToolCallError{
			Tool:    call.Function.Name,
			Content: resp.Message.Content,
			Err:     err,
		}
	}
	res.ToolResult = result

	if a.OnToolResult != nil {
		a.OnToolResult(call.Function.Name, result)
	}

	history = append(history, llm.ToolResultMessage(call.ID, result))

	step(StateAwaitingFinalResponse)
	final, err := a.llm.Chat(ctx, history, specs)
	res.Calls++
	if err != nil {
		return nil, fmt.Errorf("final chat call: %w", err)
	}
	history = append(history, *final.Message)

	step(StateDone)
	res.Answer = final.Message.Content
	res.History = history
	return res, nil
}

// Prompt renders format with city and topic. An empty format uses
// DefaultPromptFormat.
func Prompt(format, city, topic string) string {
	if format == "" {
		format = DefaultPromptFormat
	}
	return fmt.Sprintf(format, city, topic)
}

// FormatToolCall returns a human-readable string for a tool call, with
// arguments in a stable order.
func FormatToolCall(call llm.ToolCall) string {
	keys := make([]string, 0, len(call.Function.Arguments))
	for k := range call.Function.Arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v, _ := json.Marshal(call.Function.Arguments[k])
		parts[i] = fmt.Sprintf("%s=%s", k, v)
	}
	return fmt.Sprintf("%s(%s)", call.Function.Name, strings.Join(parts, ", "))
}

// HistoryJSON returns a conversation as formatted JSON (for debugging).
func HistoryJSON(history []llm.Message) string {
	data, _ := json.MarshalIndent(history, "", "  ")
	return string(data)
}
