package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/dj707chen/FunctionGemmaLab/internal/tools"
)

const (
	APINative = "native"
	APIOpenAI = "openai"
)

type OllamaConfig struct {
	Host   string `mapstructure:"host"`
	API    string `mapstructure:"api"`
	APIKey string `mapstructure:"api_key"`
}

type AgentConfig struct {
	Model        string `mapstructure:"model"`
	ProfilesDir  string `mapstructure:"profiles_dir"`
	PromptFormat string `mapstructure:"prompt_format"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ToolsConfig struct {
	Enabled []string                          `mapstructure:"enabled"`
	Servers map[string]tools.ToolServerConfig `mapstructure:"servers"`
}

type Config struct {
	Ollama OllamaConfig `mapstructure:"ollama"`
	Agent  AgentConfig  `mapstructure:"agent"`
	Log    LogConfig    `mapstructure:"log"`
	Tools  ToolsConfig  `mapstructure:"tools"`
}

// Load reads gemmalab.yaml from path, or from . and $HOME/.gemmalab when path
// is empty. A missing file is not an error when searching; defaults and the
// environment still apply. OLLAMA_HOST overrides ollama.host, and any key can
// be set as GEMMALAB_<SECTION>_<KEY>.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gemmalab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gemmalab")
	}

	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.api", APINative)
	v.SetDefault("ollama.api_key", "ollama")
	v.SetDefault("agent.model", "functiongemma")
	v.SetDefault("agent.profiles_dir", filepath.Join(os.Getenv("HOME"), ".gemmalab", "profiles"))
	v.SetDefault("agent.prompt_format", "What is the %[2]s of %[1]s?")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix("gemmalab")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ollama.host", "OLLAMA_HOST", "GEMMALAB_OLLAMA_HOST"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Ollama.APIKey = expandEnv(cfg.Ollama.APIKey)
	return &cfg, nil
}

// expandEnv resolves a value of the form ${VAR}; other values are returned as is.
func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}

// Validate checks the values the chat client is constructed from.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Ollama.Host)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid ollama.host %q: must be an http(s) URL", c.Ollama.Host)
	}
	switch c.Ollama.API {
	case APINative, APIOpenAI:
	default:
		return fmt.Errorf("invalid ollama.api %q: must be %q or %q", c.Ollama.API, APINative, APIOpenAI)
	}
	if c.Agent.Model == "" {
		return errors.New("agent.model must not be empty")
	}
	return nil
}

// OpenAIBaseURL returns the OpenAI-compatible endpoint of the configured host.
func (o OllamaConfig) OpenAIBaseURL() string {
	return strings.TrimRight(o.Host, "/") + "/v1/"
}
