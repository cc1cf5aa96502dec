// config.go
// Загрузка и проверка конфигурации запуска из текстового файла "ключ: значение"

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config хранит все параметры одного запуска. Заполняется один раз при
// старте и дальше передается по ссылке, без глобального состояния.
type Config struct {
	Provider string
	Model    string

	MaxAttempts int
	MaxTime     float64 // суммарный бюджет генерации, секунды

	PromptFile string
	SourceFile string
	KeyFile    string

	Interpreter string

	PrintOutput        bool
	PrintCode          bool
	PrintRuntimeErrors bool
	CopyCode           bool
}

// Обязательные ключи config.txt
var requiredKeys = []string{
	"model",
	"max_attempts",
	"max_time",
	"prompt_file",
	"source_file",
	"print_output",
	"print_code",
	"print_runtime_error_messages",
	"interpreter",
}

// LoadConfig читает файл конфигурации. Формат: одна настройка на строку,
// "ключ: значение", пустые строки пропускаются, неизвестные ключи игнорируются.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации: %w", err)
	}

	settings := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Делим только по первому ": " — значение может содержать двоеточия
		parts := strings.SplitN(line, ": ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("некорректная строка конфигурации: %q", line)
		}
		settings[parts[0]] = parts[1]
	}

	for _, key := range requiredKeys {
		if _, ok := settings[key]; !ok {
			return nil, fmt.Errorf("в конфигурации отсутствует обязательный ключ: %s", key)
		}
	}

	maxAttempts, err := strconv.Atoi(settings["max_attempts"])
	if err != nil {
		return nil, fmt.Errorf("недопустимое значение max_attempts '%s': ожидается число", settings["max_attempts"])
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("значение max_attempts должно быть положительным числом")
	}

	maxTime, err := strconv.ParseFloat(settings["max_time"], 64)
	if err != nil {
		return nil, fmt.Errorf("недопустимое значение max_time '%s': ожидается число секунд", settings["max_time"])
	}
	if maxTime < 0 {
		return nil, fmt.Errorf("значение max_time не может быть отрицательным")
	}

	cfg := &Config{
		Provider:           "groq",
		KeyFile:            "groq_key.txt",
		Model:              settings["model"],
		MaxAttempts:        maxAttempts,
		MaxTime:            maxTime,
		PromptFile:         settings["prompt_file"],
		SourceFile:         settings["source_file"],
		Interpreter:        settings["interpreter"],
		PrintOutput:        parseBoolValue(settings["print_output"]),
		PrintCode:          parseBoolValue(settings["print_code"]),
		PrintRuntimeErrors: parseBoolValue(settings["print_runtime_error_messages"]),
	}

	if v, ok := settings["provider"]; ok {
		cfg.Provider = v
	}
	if v, ok := settings["key_file"]; ok {
		cfg.KeyFile = v
	}
	if v, ok := settings["copy_code"]; ok {
		cfg.CopyCode = parseBoolValue(v)
	}

	return cfg, nil
}

// parseBoolValue унифицирует обработку булевых значений
func parseBoolValue(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	return v == "yes" || v == "true" || v == "on" || v == "1"
}

// BaseName возвращает имя исходного файла без расширения
func (c *Config) BaseName() string {
	return strings.TrimSuffix(c.SourceFile, filepath.Ext(c.SourceFile))
}

// ArchiveName возвращает имя архивной копии с числовым суффиксом
func (c *Config) ArchiveName(index int) string {
	return c.BaseName() + strconv.Itoa(index) + filepath.Ext(c.SourceFile)
}

// RunCommand возвращает команду запуска текущего кандидата
func (c *Config) RunCommand() string {
	return c.Interpreter + " " + c.SourceFile
}
