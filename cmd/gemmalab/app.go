package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dj707chen/FunctionGemmaLab/internal/agent"
	"github.com/dj707chen/FunctionGemmaLab/internal/config"
	"github.com/dj707chen/FunctionGemmaLab/internal/llm"
	"github.com/dj707chen/FunctionGemmaLab/internal/logging"
	"github.com/dj707chen/FunctionGemmaLab/internal/tools"
)

// app is the resolved configuration shared by every subcommand.
type app struct {
	cfg     *config.Config
	profile *agent.Profile
	logger  *slog.Logger
}

// loadApp merges config file, environment, profile and flags, in increasing
// order of precedence.
func loadApp() (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var profile *agent.Profile
	if profileFlag != "" {
		profile, err = agent.ResolveProfile(cfg.Agent.ProfilesDir, profileFlag)
		if err != nil {
			return nil, fmt.Errorf("loading profile: %w", err)
		}
		if profile.Model != "" {
			cfg.Agent.Model = profile.Model
		}
		if profile.PromptFormat != "" {
			cfg.Agent.PromptFormat = profile.PromptFormat
		}
		if len(profile.Tools) > 0 {
			cfg.Tools.Enabled = profile.Tools
		}
	}

	if hostFlag != "" {
		cfg.Ollama.Host = hostFlag
	}
	if modelFlag != "" {
		cfg.Agent.Model = modelFlag
	}
	if apiFlag != "" {
		cfg.Ollama.API = apiFlag
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Log.Format = logFormatFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, profile: profile, logger: logger}, nil
}

// chatClient builds the chat client selected by ollama.api.
func (a *app) chatClient() llm.Client {
	if a.cfg.Ollama.API == config.APIOpenAI {
		return llm.NewOpenAICompatClient(a.cfg.Ollama.OpenAIBaseURL(), a.cfg.Ollama.APIKey, a.cfg.Agent.Model)
	}
	return llm.NewClient(a.cfg.Ollama.Host, a.cfg.Agent.Model)
}

// registry builds the tool registry: enabled builtins plus configured MCP
// servers. A server that fails to start is logged and skipped.
func (a *app) registry() (*tools.Registry, error) {
	registry := tools.NewRegistry()
	if err := registry.Restrict(a.cfg.Tools.Enabled); err != nil {
		return nil, fmt.Errorf("tools.enabled: %w", err)
	}

	log := logging.Component(a.logger, "tools")
	for name, srv := range a.cfg.Tools.Servers {
		if err := registry.Register(name, srv); err != nil {
			log.Warn("failed to start tool server", slog.String("server", name), slog.Any("error", err))
			continue
		}
		if srv.Enabled {
			log.Info("tool server started", slog.String("server", name))
		}
	}
	return registry, nil
}
