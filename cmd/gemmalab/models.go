package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available on the Ollama server",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	client := llm.NewClient(a.cfg.Ollama.Host, a.cfg.Agent.Model)
	models, err := client.ListModels(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(models) == 0 {
		fmt.Fprintln(out, "No models found.")
		return nil
	}

	fmt.Fprintf(out, "%-40s %-10s %s\n", "NAME", "SIZE", "MODIFIED")
	fmt.Fprintln(out, strings.Repeat("─", 72))
	for _, m := range models {
		name := fmt.Sprintf("%-40s", m.Name)
		if strings.SplitN(m.Name, ":", 2)[0] == strings.SplitN(a.cfg.Agent.Model, ":", 2)[0] {
			name = label.Sprint(name)
		}
		fmt.Fprintf(out, "%s %-10s %s\n", name, humanize.Bytes(uint64(m.Size)), m.ModifiedAt)
	}
	return nil
}
