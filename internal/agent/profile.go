package agent

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile captures one variant of the demo: which model to ask, which builtin
// tools to offer and how to phrase the prompt.
type Profile struct {
	Name         string   `yaml:"name"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	PromptFormat string   `yaml:"prompt_format"`
	Tools        []string `yaml:"tools"`
	City         string   `yaml:"city"`
	Topic        string   `yaml:"topic"`
}

// LoadProfile reads an agent profile from a YAML file. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	defer f.Close()

	var p Profile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &p, nil
}

// ResolveProfile finds a profile by name in dir, or treats name as a path when
// it ends in .yaml or .yml.
func ResolveProfile(dir, name string) (*Profile, error) {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return LoadProfile(name)
	}
	return LoadProfile(filepath.Join(dir, name+".yaml"))
}
