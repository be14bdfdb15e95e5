package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"HTTP_PORT", "LLM_PROVIDER", "GEMINI_API_KEY", "API_KEY", "GEMINI_MODEL", "LLM_TIMEOUT_MS", "HISTORY_LIMIT"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 0, cfg.HistoryLimit)
	assert.Equal(t, int64(20<<20), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LLM_TIMEOUT_MS", "1500")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("HISTORY_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.LLMTimeout)
	assert.Equal(t, "legacy-key", cfg.GeminiAPIKey)
	assert.Equal(t, 0, cfg.HistoryLimit)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_MODEL=from-dotenv\nLOG_LEVEL=debug\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("OPENAI_MODEL", "")
	os.Unsetenv("OPENAI_MODEL")

	cfg := Load()

	assert.Equal(t, "from-dotenv", cfg.OpenAIModel)
	assert.Equal(t, "warn", cfg.LogLevel)
}
