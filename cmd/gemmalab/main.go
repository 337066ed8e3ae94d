package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFlag    string
	hostFlag      string
	modelFlag     string
	apiFlag       string
	profileFlag   string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "gemmalab",
	Short: "GemmaLab - single-shot tool calling against a local Ollama model",
	Long: `GemmaLab sends one prompt to a local Ollama model, runs the tool the model
asks for (get_weather or get_news), and sends the result back for a final answer.

The server is taken from OLLAMA_HOST (default http://localhost:11434).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./gemmalab.yaml or ~/.gemmalab/gemmalab.yaml)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "Ollama host URL (overrides OLLAMA_HOST and config)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "Model to use (overrides profile and config)")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Chat API: native or openai")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Profile name in the profiles dir, or a path to a YAML file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: text or json")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", err))
		stop()
		os.Exit(1)
	}
}
