package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/soratani/nekochat/pkg/backends/ollama"
	"github.com/soratani/nekochat/pkg/config"
	"github.com/soratani/nekochat/pkg/dispatch"
)

// wizardAnswers collects the init form fields before they are shaped into a
// Config. Numeric fields stay strings so empty means "use the default".
type wizardAnswers struct {
	Backend    string
	ModelName  string
	MaxTokens  string
	Endpoint   string
	APIKey     string //nolint:gosec // env var reference, not a secret
	Compatible bool
	ScriptPath string
}

const backendOnline = "online"

// runInit walks the user through a short form and writes the resulting
// config file.
func runInit(path string) error {
	if _, err := os.Stat(path); err == nil {
		var overwrite bool
		if err := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().Title(fmt.Sprintf("%s already exists. Overwrite?", path)).Value(&overwrite),
		)).Run(); err != nil {
			return err
		}

		if !overwrite {
			return nil
		}
	}

	a := wizardAnswers{
		ModelName: "rinna/nekomata-7b",
		MaxTokens: "128",
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Backend").
			Options(
				huh.NewOption("Local python helper", dispatch.FrameworkPython),
				huh.NewOption("Local Ollama server", dispatch.FrameworkOllama),
				huh.NewOption("Online endpoint", backendOnline),
			).
			Value(&a.Backend),
	), huh.NewGroup(
		huh.NewInput().Title("Model name").Value(&a.ModelName).Validate(validateRequired),
		huh.NewInput().Title("Max tokens (empty = default)").Value(&a.MaxTokens).Validate(validateOptionalNonNegativeInt),
	)).Run(); err != nil {
		return err
	}

	switch a.Backend {
	case backendOnline:
		a.APIKey = "${NEKOCHAT_API_KEY}"
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Endpoint URL").Value(&a.Endpoint).Validate(validateRequired),
			huh.NewInput().Title("API key env var").Value(&a.APIKey),
			huh.NewConfirm().Title("OpenAI-compatible schema?").Value(&a.Compatible),
		)).Run(); err != nil {
			return err
		}
	case dispatch.FrameworkOllama:
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Endpoint (empty = %s)", ollama.DefaultEndpoint)).
				Value(&a.Endpoint),
		)).Run(); err != nil {
			return err
		}
	case dispatch.FrameworkPython:
		a.ScriptPath = config.DefaultScriptPath
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Helper script path").Value(&a.ScriptPath).Validate(validateRequired),
		)).Run(); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(buildWizardConfig(a), "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // config file, not a secret
		return err
	}

	fmt.Printf("Wrote %s\n", path)

	return nil
}

func buildWizardConfig(a wizardAnswers) config.Config {
	cfg := config.Config{
		ModelName:        a.ModelName,
		Endpoint:         a.Endpoint,
		UseLocalModel:    a.Backend != backendOnline,
		OpenAICompatible: a.Compatible,
		APIKey:           a.APIKey,
		ScriptPath:       a.ScriptPath,
	}

	if cfg.UseLocalModel {
		cfg.LocalFramework = a.Backend
	}

	if a.MaxTokens != "" {
		if n, err := strconv.ParseUint(a.MaxTokens, 10, 32); err == nil {
			v := uint32(n)
			cfg.MaxTokens = &v
		}
	}

	return cfg
}

func validateRequired(s string) error {
	if s == "" {
		return fmt.Errorf("required")
	}

	return nil
}

func validateOptionalNonNegativeInt(s string) error {
	if s == "" {
		return nil
	}

	if _, err := strconv.ParseUint(s, 10, 32); err != nil {
		return fmt.Errorf("must be a non-negative integer")
	}

	return nil
}
