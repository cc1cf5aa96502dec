// config_test.go
package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `model: llama-3.3-70b-versatile
max_attempts: 5
max_time: 60
prompt_file: prompt.txt
source_file: generated.py
print_output: yes
print_code: no
print_runtime_error_messages: yes
interpreter: python3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_AllKeys(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Model)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 60.0, cfg.MaxTime)
	assert.Equal(t, "prompt.txt", cfg.PromptFile)
	assert.Equal(t, "generated.py", cfg.SourceFile)
	assert.Equal(t, "python3", cfg.Interpreter)
	assert.True(t, cfg.PrintOutput)
	assert.False(t, cfg.PrintCode)
	assert.True(t, cfg.PrintRuntimeErrors)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.Provider)
	assert.Equal(t, "groq_key.txt", cfg.KeyFile)
	assert.False(t, cfg.CopyCode)
}

func TestLoadConfig_OptionalKeys(t *testing.T) {
	content := validConfig + "provider: openrouter\nkey_file: my_key.txt\ncopy_code: yes\n"
	cfg, err := LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Provider)
	assert.Equal(t, "my_key.txt", cfg.KeyFile)
	assert.True(t, cfg.CopyCode)
}

func TestLoadConfig_ValueKeepsColons(t *testing.T) {
	// Значение делится только по первому ": ", теги моделей с двоеточием выживают
	content := strings.Replace(validConfig, "model: llama-3.3-70b-versatile", "model: qwen2.5-coder:32b", 1)
	cfg, err := LoadConfig(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-coder:32b", cfg.Model)

	content = strings.Replace(validConfig, "model: llama-3.3-70b-versatile", "model: weird: name", 1)
	cfg, err = LoadConfig(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, "weird: name", cfg.Model)
}

func TestLoadConfig_SkipsBlankLinesAndUnknownKeys(t *testing.T) {
	content := "\n" + validConfig + "\n\nsome_future_key: whatever\n\n"
	cfg, err := LoadConfig(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Model)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedLine(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, validConfig+"no separator here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no separator here")
}

func TestLoadConfig_MissingRequiredKey(t *testing.T) {
	content := strings.Replace(validConfig, "interpreter: python3\n", "", 1)
	_, err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interpreter")
}

func TestLoadConfig_InvalidLimits(t *testing.T) {
	t.Run("max_attempts not a number", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_attempts: 5", "max_attempts: many", 1)
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err)
	})

	t.Run("max_attempts zero", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_attempts: 5", "max_attempts: 0", 1)
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err)
	})

	t.Run("max_time not a number", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_time: 60", "max_time: soon", 1)
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err)
	})

	t.Run("max_time negative", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_time: 60", "max_time: -1", 1)
		_, err := LoadConfig(writeConfig(t, content))
		assert.Error(t, err)
	})

	t.Run("max_time fractional", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_time: 60", "max_time: 1.5", 1)
		cfg, err := LoadConfig(writeConfig(t, content))
		require.NoError(t, err)
		assert.Equal(t, 1.5, cfg.MaxTime)
	})

	t.Run("max_time zero", func(t *testing.T) {
		content := strings.Replace(validConfig, "max_time: 60", "max_time: 0", 1)
		cfg, err := LoadConfig(writeConfig(t, content))
		require.NoError(t, err)
		assert.Equal(t, 0.0, cfg.MaxTime)
	})
}

func TestParseBoolValue(t *testing.T) {
	for _, v := range []string{"yes", "Yes", "TRUE", "on", "1", " yes "} {
		assert.True(t, parseBoolValue(v), v)
	}
	for _, v := range []string{"no", "off", "0", "false", "", "da"} {
		assert.False(t, parseBoolValue(v), v)
	}
}

func TestConfig_ArchiveNames(t *testing.T) {
	cfg := &Config{SourceFile: "generated.py", Interpreter: "python3"}

	assert.Equal(t, "generated", cfg.BaseName())
	assert.Equal(t, "generated1.py", cfg.ArchiveName(1))
	assert.Equal(t, "generated2.py", cfg.ArchiveName(2))
	assert.Equal(t, "python3 generated.py", cfg.RunCommand())
}

func TestConfig_ArchiveNameWithoutExtension(t *testing.T) {
	cfg := &Config{SourceFile: "candidate"}
	assert.Equal(t, "candidate1", cfg.ArchiveName(1))
}

func TestConfig_ArchiveNameWithPath(t *testing.T) {
	cfg := &Config{SourceFile: filepath.Join("work", "generated.py")}
	assert.Equal(t, filepath.Join("work", "generated2.py"), cfg.ArchiveName(2))
}
