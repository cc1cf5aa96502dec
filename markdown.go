// markdown.go
package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown рендерит Markdown в красивый ANSI-текст для терминала.
// Используется для показа сгенерированного кода (print_code: yes).
func RenderMarkdown(content string) (string, error) {
	// Используем автоматическое определение темы терминала
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Автоматически выбирает светлую/тёмную тему
		glamour.WithWordWrap(115),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	return rendered, nil
}
