// codeparser_test.go
package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *CodeParser {
	return NewCodeParser(&Config{PromptFile: "prompt.txt", Model: "test-model"})
}

// stripHeader отрезает четыре строки шапки метаданных от результата Sanitize
func stripHeader(t *testing.T, code string) string {
	t.Helper()
	lines := strings.Split(code, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	return strings.Join(lines[4:], "\n")
}

func TestSanitize_ExtractsFencedBlock(t *testing.T) {
	raw := "Here is your program:\n```python\nprint(1)\n```\nHope it helps!"
	code, loc := newTestParser().Sanitize(raw, 1500*time.Millisecond)

	assert.Equal(t, "print(1)", stripHeader(t, code))
	assert.Equal(t, 1, loc)
	assert.NotContains(t, code, "Here is your program")
	assert.NotContains(t, code, "Hope it helps")
	assert.NotContains(t, code, "```")
}

func TestSanitize_Header(t *testing.T) {
	code, _ := newTestParser().Sanitize("```python\nprint(1)\n```", 1500*time.Millisecond)

	lines := strings.Split(code, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "# Generated from prompt file: prompt.txt", lines[0])
	assert.Equal(t, "# Model used: test-model", lines[1])
	assert.Regexp(t, `^# Time generated: \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`, lines[2])
	assert.Equal(t, "# Generation time: 1.500 seconds", lines[3])
	assert.Equal(t, "print(1)", lines[4])
}

func TestSanitize_HeaderNotCountedInLOC(t *testing.T) {
	_, loc := newTestParser().Sanitize("```python\nx = 1\ny = 2\n```", time.Second)
	assert.Equal(t, 2, loc)
}

func TestSanitize_StopsAtClosingFence(t *testing.T) {
	raw := "```python\nprint(1)\n```\nprint(2)\n```python\nprint(3)\n```"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "print(1)", stripHeader(t, code))
	assert.Equal(t, 1, loc)
}

func TestSanitize_NoClosingFence(t *testing.T) {
	raw := "```python\nprint(1)\nprint(2)"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "print(1)\nprint(2)", stripHeader(t, code))
	assert.Equal(t, 2, loc)
}

func TestSanitize_IndentedFenceMarkers(t *testing.T) {
	raw := "  ```python  \nprint(1)\n   ```"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "print(1)", stripHeader(t, code))
	assert.Equal(t, 1, loc)
}

func TestSanitize_NoFenceNeutralizesEverything(t *testing.T) {
	raw := "print(1)\n# comment\n\nx = 2"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "#print(1)\n# comment\n#\n#x = 2", stripHeader(t, code))
	assert.Equal(t, 4, loc)
}

func TestSanitize_TrailingNewlineNotCounted(t *testing.T) {
	_, loc := newTestParser().Sanitize("hello\n", time.Second)
	assert.Equal(t, 1, loc)
}

func TestSanitize_CommentsOutBacktickLines(t *testing.T) {
	raw := "```python\n`leftover = 1\nprint(2)\n```"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "#`leftover = 1\nprint(2)", stripHeader(t, code))
	assert.Equal(t, 2, loc)
}

func TestSanitize_EmptyResponse(t *testing.T) {
	code, loc := newTestParser().Sanitize("", time.Second)

	assert.Equal(t, "", stripHeader(t, code))
	assert.Equal(t, 0, loc)
}

func TestSanitize_WhitespaceOnlyLinesNotCounted(t *testing.T) {
	raw := "```python\nx = 1\n   \ny = 2\n```"
	code, loc := newTestParser().Sanitize(raw, time.Second)

	assert.Equal(t, "x = 1\n   \ny = 2", stripHeader(t, code))
	assert.Equal(t, 2, loc)
}
