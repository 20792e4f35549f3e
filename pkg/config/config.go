// Package config loads the chat client configuration. The configuration is
// read once at startup and shared read-only by every backend.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding field is unset.
const (
	DefaultMaxTokens   uint32 = 64
	DefaultScriptPath         = "./llm_interface.py"
	DefaultInterpreter        = "python"
)

// Config selects the inference backend and carries its parameters. It is
// immutable after Load.
// Optional fields carry omitempty so marshaled configs (e.g. wizard output)
// match the documented document shape instead of spelling out every unset
// field.
type Config struct {
	ModelName        string  `json:"model_name" yaml:"model_name"`
	Endpoint         string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	UseLocalModel    bool    `json:"use_local_model" yaml:"use_local_model"`
	LocalFramework   string  `json:"local_framework,omitempty" yaml:"local_framework,omitempty"`
	OpenAICompatible bool    `json:"openai_compatible" yaml:"openai_compatible"`
	MaxTokens        *uint32 `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	APIKey           string  `json:"api_key,omitempty" yaml:"api_key,omitempty"` //nolint:gosec // configuration field, not a hardcoded secret
	ScriptPath       string  `json:"script_path,omitempty" yaml:"script_path,omitempty"`
	Interpreter      string  `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
}

// defaultDocument is written when the config file does not exist yet.
const defaultDocument = `{
  "model_name": "rinna/nekomata-7b",
  "endpoint": null,
  "use_local_model": true,
  "local_framework": "python",
  "openai_compatible": false,
  "max_tokens": 128,
  "api_key": null
}
`

// Load reads a config file and returns a Config. If the file does not exist
// a default document is written first, so a fresh checkout starts with a
// working local setup.
//
// Files ending in .yaml or .yml are parsed as YAML; everything else is parsed
// as JSON. Environment variables referenced as ${VAR} or $VAR are expanded
// before parsing, so API keys can be kept in environment variables (e.g.
// loaded from a .env file) rather than committed in the config.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := WriteDefault(path); err != nil {
			return Config{}, err
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	return cfg, nil
}

// WriteDefault writes the default config document to path.
func WriteDefault(path string) error {
	if err := os.WriteFile(path, []byte(defaultDocument), 0o644); err != nil { //nolint:gosec // config file, not a secret
		return fmt.Errorf("config: write default %s: %w", path, err)
	}

	return nil
}

// Validate checks that the configuration can drive the selected backend.
// Online mode requires an endpoint; the Ollama backend falls back to its
// default endpoint, so the asymmetry is deliberate.
func (c Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("config: model_name is required")
	}

	if !c.UseLocalModel && c.Endpoint == "" {
		return fmt.Errorf("config: endpoint is required for online inference")
	}

	return nil
}

// MaxTokensOrDefault returns max_tokens or DefaultMaxTokens when unset.
func (c Config) MaxTokensOrDefault() uint32 {
	if c.MaxTokens == nil {
		return DefaultMaxTokens
	}

	return *c.MaxTokens
}

// ScriptPathOrDefault returns the subprocess helper path or its default.
func (c Config) ScriptPathOrDefault() string {
	if c.ScriptPath == "" {
		return DefaultScriptPath
	}

	return c.ScriptPath
}

// InterpreterOrDefault returns the subprocess interpreter or its default.
func (c Config) InterpreterOrDefault() string {
	if c.Interpreter == "" {
		return DefaultInterpreter
	}

	return c.Interpreter
}
