package main

import (
	"encoding/json"
	"testing"

	"github.com/soratani/nekochat/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWizardConfig_Online(t *testing.T) {
	cfg := buildWizardConfig(wizardAnswers{
		Backend:    backendOnline,
		ModelName:  "gpt-4o-mini",
		MaxTokens:  "256",
		Endpoint:   "https://api.example.test/v1/completions",
		APIKey:     "${NEKOCHAT_API_KEY}",
		Compatible: true,
	})

	assert.False(t, cfg.UseLocalModel)
	assert.Empty(t, cfg.LocalFramework)
	assert.True(t, cfg.OpenAICompatible)
	assert.Equal(t, "https://api.example.test/v1/completions", cfg.Endpoint)
	require.NotNil(t, cfg.MaxTokens)
	assert.Equal(t, uint32(256), *cfg.MaxTokens)
	assert.NoError(t, cfg.Validate())
}

func TestBuildWizardConfig_Ollama(t *testing.T) {
	cfg := buildWizardConfig(wizardAnswers{
		Backend:   "ollama",
		ModelName: "nekomata",
	})

	assert.True(t, cfg.UseLocalModel)
	assert.Equal(t, "ollama", cfg.LocalFramework)
	assert.Nil(t, cfg.MaxTokens)
	assert.NoError(t, cfg.Validate())
}

func TestBuildWizardConfig_Python(t *testing.T) {
	cfg := buildWizardConfig(wizardAnswers{
		Backend:    "python",
		ModelName:  "rinna/nekomata-7b",
		ScriptPath: config.DefaultScriptPath,
	})

	assert.True(t, cfg.UseLocalModel)
	assert.Equal(t, "python", cfg.LocalFramework)
	assert.Equal(t, config.DefaultScriptPath, cfg.ScriptPath)
	assert.NoError(t, cfg.Validate())
}

func TestBuildWizardConfig_MarshalsWithoutNoiseFields(t *testing.T) {
	data, err := json.Marshal(buildWizardConfig(wizardAnswers{
		Backend:   "ollama",
		ModelName: "nekomata",
	}))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	// Unset optional fields stay out of the generated document.
	assert.NotContains(t, doc, "endpoint")
	assert.NotContains(t, doc, "api_key")
	assert.NotContains(t, doc, "script_path")
	assert.NotContains(t, doc, "interpreter")
	assert.NotContains(t, doc, "max_tokens")

	assert.Equal(t, "nekomata", doc["model_name"])
	assert.Equal(t, "ollama", doc["local_framework"])
}

func TestValidateOptionalNonNegativeInt(t *testing.T) {
	assert.NoError(t, validateOptionalNonNegativeInt(""))
	assert.NoError(t, validateOptionalNonNegativeInt("0"))
	assert.NoError(t, validateOptionalNonNegativeInt("128"))
	assert.Error(t, validateOptionalNonNegativeInt("-1"))
	assert.Error(t, validateOptionalNonNegativeInt("many"))
	assert.Error(t, validateOptionalNonNegativeInt("4294967296")) // does not fit uint32
}

func TestValidateRequired(t *testing.T) {
	assert.Error(t, validateRequired(""))
	assert.NoError(t, validateRequired("x"))
}
