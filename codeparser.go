// codeparser.go
// Извлечение исполняемого кода из свободного ответа LLM: поиск блока
// ```python, отбрасывание преамбулы, нейтрализация мусорных строк

package main

import (
	"fmt"
	"strings"
	"time"
)

// Маркеры блока кода в ответе модели
const (
	codeFenceOpen  = "```python"
	codeFenceClose = "```"
)

// CodeParser превращает сырой ответ модели в готовый к запуску код
type CodeParser struct {
	promptFile string
	model      string
}

// NewCodeParser создает новый парсер ответов
func NewCodeParser(config *Config) *CodeParser {
	return &CodeParser{
		promptFile: config.PromptFile,
		model:      config.Model,
	}
}

// Sanitize очищает ответ модели и возвращает код с шапкой метаданных
// плюс количество непустых строк тела (шапка не учитывается).
// Ошибок не бывает: ответ без блока кода превращается в полностью
// закомментированный текст, который выполняется как пустая программа.
func (cp *CodeParser) Sanitize(raw string, genTime time.Duration) (string, int) {
	body := extractCodeBody(raw)
	loc := countCodeLines(body)

	header := fmt.Sprintf(
		"# Generated from prompt file: %s\n"+
			"# Model used: %s\n"+
			"# Time generated: %s\n"+
			"# Generation time: %.3f seconds\n",
		cp.promptFile, cp.model,
		time.Now().Format("2006-01-02 15:04:05"), genTime.Seconds())

	return header + body, loc
}

// extractCodeBody выделяет тело кандидата из ответа модели
func extractCodeBody(raw string) string {
	lines := splitLines(raw)

	// Ищем первую строку, открывающую блок кода
	fenceIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == codeFenceOpen {
			fenceIdx = i
			break
		}
	}

	var body []string
	if fenceIdx != -1 {
		// Все до маркера включительно — преамбула, в код не попадает.
		// Тело идет после маркера до закрывающего ``` или конца ответа.
		for _, line := range lines[fenceIdx+1:] {
			if strings.TrimSpace(line) == codeFenceClose {
				break
			}
			body = append(body, line)
		}
	} else {
		// Блок кода не найден: комментируем весь ответ и используем как есть
		for _, line := range lines {
			body = append(body, neutralizeLine(line))
		}
	}

	// Строки, начинающиеся с бэктика, невалидны в Python
	for i, line := range body {
		if strings.HasPrefix(strings.TrimSpace(line), "`") {
			body[i] = "#" + line
		}
	}

	return strings.Join(body, "\n")
}

// neutralizeLine превращает строку в комментарий, если она им еще не является
func neutralizeLine(line string) string {
	if strings.HasPrefix(line, "#") {
		return line
	}
	return "#" + line
}

// splitLines делит текст на строки без пустого хвоста после завершающего \n
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// countCodeLines считает непустые строки тела
func countCodeLines(body string) int {
	count := 0
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
