// coderunner_test.go
package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Вместо python в тестах используется sh, механика раннера от языка не зависит
func newShellRunner(t *testing.T) (*CodeRunner, *Config) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("требуется POSIX shell")
	}
	cfg := &Config{
		SourceFile:  filepath.Join(t.TempDir(), "candidate.sh"),
		Interpreter: "sh",
	}
	return NewCodeRunner(cfg), cfg
}

func TestCodeRunner_Success(t *testing.T) {
	runner, cfg := newShellRunner(t)

	res, err := runner.Run("echo hello", 1)
	require.NoError(t, err)

	assert.True(t, res.Succeeded)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Empty(t, res.Stderr)

	written, err := os.ReadFile(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "echo hello", string(written))
}

func TestCodeRunner_NonZeroExitIsNotAnError(t *testing.T) {
	runner, _ := newShellRunner(t)

	res, err := runner.Run("echo boom >&2\nexit 3", 1)
	require.NoError(t, err)

	assert.False(t, res.Succeeded)
	assert.Contains(t, res.Stderr, "boom")
}

func TestCodeRunner_FeedsFixedStdin(t *testing.T) {
	runner, _ := newShellRunner(t)

	res, err := runner.Run("read x\necho got:$x", 1)
	require.NoError(t, err)

	assert.True(t, res.Succeeded)
	assert.Equal(t, "got:5\n", res.Stdout)
}

func TestCodeRunner_FirstAttemptLeavesNoArchive(t *testing.T) {
	runner, cfg := newShellRunner(t)

	_, err := runner.Run("echo one", 1)
	require.NoError(t, err)

	_, err = os.Stat(cfg.ArchiveName(1))
	assert.True(t, os.IsNotExist(err))
}

func TestCodeRunner_ArchivesPreviousAttempts(t *testing.T) {
	runner, cfg := newShellRunner(t)

	_, err := runner.Run("echo one", 1)
	require.NoError(t, err)
	_, err = runner.Run("echo two", 2)
	require.NoError(t, err)
	_, err = runner.Run("echo three", 3)
	require.NoError(t, err)

	// Каждая попытка уходит в архив под своим номером и больше не трогается
	first, err := os.ReadFile(cfg.ArchiveName(1))
	require.NoError(t, err)
	assert.Equal(t, "echo one", string(first))

	second, err := os.ReadFile(cfg.ArchiveName(2))
	require.NoError(t, err)
	assert.Equal(t, "echo two", string(second))

	current, err := os.ReadFile(cfg.SourceFile)
	require.NoError(t, err)
	assert.Equal(t, "echo three", string(current))
}

func TestCodeRunner_MissingPreviousVersionIsFatal(t *testing.T) {
	runner, _ := newShellRunner(t)

	res, err := runner.Run("echo two", 2)
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestCodeRunner_MissingInterpreterIsFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("требуется POSIX shell")
	}
	cfg := &Config{
		SourceFile:  filepath.Join(t.TempDir(), "candidate.sh"),
		Interpreter: "definitely-not-an-interpreter",
	}
	runner := NewCodeRunner(cfg)

	res, err := runner.Run("echo hi", 1)
	assert.Error(t, err)
	assert.Nil(t, res)
}
