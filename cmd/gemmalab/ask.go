package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dj707chen/FunctionGemmaLab/internal/agent"
	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

var (
	cityFlag        string
	topicFlag       string
	interactiveFlag bool
	historyFlag     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one prompt and let the model call a tool",
	Long: `Send a single prompt to the model. If the model asks for a tool, the tool is
run locally and its result is sent back for a final answer.

Without a prompt argument the question is built from --city and --topic.

Examples:
  gemmalab ask
  gemmalab ask --city Paris --topic weather
  gemmalab ask "Is it raining in Normal?"
  gemmalab ask -i --profile weather`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&cityFlag, "city", "", "City to ask about (default Beijing)")
	askCmd.Flags().StringVar(&topicFlag, "topic", "", "Topic to ask about, e.g. news or weather (default news)")
	askCmd.Flags().BoolVarP(&interactiveFlag, "interactive", "i", false, "Read the prompt from the terminal")
	askCmd.Flags().BoolVar(&historyFlag, "history", false, "Print the full conversation as JSON when done")
	rootCmd.AddCommand(askCmd)
}

var (
	label     = color.New(color.Bold)
	faint     = color.New(color.Faint)
	callColor = color.New(color.FgYellow)
)

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	prompt, err := resolvePrompt(a, args)
	if err != nil {
		return err
	}

	registry, err := a.registry()
	if err != nil {
		return err
	}
	defer registry.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", label.Sprint("Prompt:"), prompt)
	faint.Fprintf(out, "model %s via %s (%s)\n", a.cfg.Agent.Model, a.cfg.Ollama.Host, a.cfg.Ollama.API)

	ag := agent.New(a.chatClient(), registry, a.logger)
	if a.profile != nil {
		ag.SetSystemPrompt(a.profile.SystemPrompt)
	}
	ag.OnToolCall = func(call llm.ToolCall) {
		fmt.Fprintf(out, "%s %s\n", label.Sprint("Calling:"), callColor.Sprint(agent.FormatToolCall(call)))
	}
	ag.OnToolResult = func(name, result string) {
		fmt.Fprintln(out, label.Sprint("Function Result:"))
		for _, line := range strings.Split(prettyResult(result), "\n") {
			faint.Fprintf(out, "  │ %s\n", line)
		}
	}

	res, err := ag.Run(cmd.Context(), prompt)
	if err != nil {
		var unsatisfied *agent.UnsatisfiedToolCallError
		if errors.As(err, &unsatisfied) && unsatisfied.Content != "" {
			fmt.Fprintf(out, "%s %s\n", label.Sprint("Response:"), unsatisfied.Content)
		}
		return err
	}

	fmt.Fprintf(out, "%s %s\n", label.Sprint("Response:"), res.Answer)
	if historyFlag {
		fmt.Fprintln(out, agent.HistoryJSON(res.History))
	}
	return nil
}

// resolvePrompt picks the prompt from, in order: arguments, the terminal (-i),
// or the city/topic template.
func resolvePrompt(a *app, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if interactiveFlag {
		return readPrompt()
	}

	city, topic := "Beijing", "news"
	if a.profile != nil {
		if a.profile.City != "" {
			city = a.profile.City
		}
		if a.profile.Topic != "" {
			topic = a.profile.Topic
		}
	}
	if cityFlag != "" {
		city = cityFlag
	}
	if topicFlag != "" {
		topic = topicFlag
	}
	return agent.Prompt(a.cfg.Agent.PromptFormat, city, topic), nil
}

func readPrompt() (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.CyanString("you> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return "", fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return "", errors.New("no prompt given")
		}
		if err != nil {
			return "", err
		}
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
}

// prettyResult indents a JSON tool result; anything else is returned as is.
func prettyResult(result string) string {
	if !gjson.Valid(result) {
		return result
	}
	return strings.TrimSpace(gjson.Get(result, "@pretty").String())
}
