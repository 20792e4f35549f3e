package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	err := loadDotEnv(filepath.Join(t.TempDir(), "no-such.env"))
	assert.NoError(t, err)
}

func TestLoadDotEnv_LoadsVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NEKOCHAT_DOTENV_TEST=loaded\n"), 0o600))

	t.Setenv("NEKOCHAT_DOTENV_TEST", "")
	os.Unsetenv("NEKOCHAT_DOTENV_TEST")

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("NEKOCHAT_DOTENV_TEST"))
}
