// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const Version = "1.0.0"

func main() {
	// ИНИЦИАЛИЗИРУЕМ ПЕРЕМЕННЫЕ ДО ПАРСИНГА АРГУМЕНТОВ
	configPath := "config.txt"
	providerFlag := ""
	modelFlag := ""
	keyFlag := ""
	interactive := false
	args := os.Args[1:]

	// СНАЧАЛА ПАРСИМ ВСЕ АРГУМЕНТЫ
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-c":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--provider", "-p":
			if i+1 < len(args) {
				providerFlag = args[i+1]
				i++
			}
		case "--model", "-m":
			if i+1 < len(args) {
				modelFlag = args[i+1]
				i++
			}
		case "--key", "-k":
			if i+1 < len(args) {
				keyFlag = args[i+1]
				i++
			}
		case "--interactive", "-i":
			interactive = true
		case "--help", "-h":
			fmt.Printf("Refinator v%s\n", Version)
			fmt.Println()
			fmt.Println("Генерирует Python-программу по текстовому заданию, запускает её и")
			fmt.Println("при ошибках отправляет их модели для исправления, пока программа не")
			fmt.Println("заработает или не исчерпаются попытки / лимит времени генерации.")
			fmt.Println()
			fmt.Println("Использование:")
			fmt.Println("  refinator [КОНФИГ]")
			fmt.Println("  refinator [ОПЦИИ]")
			fmt.Println()
			fmt.Println("Позиционные аргументы:")
			fmt.Println("  КОНФИГ              Файл конфигурации (по умолчанию: config.txt)")
			fmt.Println()
			fmt.Println("Опции:")
			fmt.Println("  -c, --config ФАЙЛ   Файл конфигурации")
			fmt.Println("  -p, --provider ИМЯ  Провайдер LLM (groq, openrouter, ollama, pollinations, phind или URL)")
			fmt.Println("  -m, --model МОДЕЛЬ  Модель LLM (help - список моделей провайдера)")
			fmt.Println("  -k, --key КЛЮЧ      API-ключ (иначе key_file или переменная окружения)")
			fmt.Println("  -i, --interactive   Ввести задание с клавиатуры вместо prompt_file")
			fmt.Println("  -v, --version       Показать версию")
			fmt.Println("  -h, --help          Показать эту справку")
			fmt.Println()
			fmt.Println("Примеры:")
			fmt.Println("  refinator                   # config.txt из текущего каталога")
			fmt.Println("  refinator myproject.txt")
			fmt.Println("  refinator -p openrouter -m qwen/qwen-2.5-coder-32b-instruct:free")
			fmt.Println("  refinator -m help           # список моделей текущего провайдера")
			return
		case "--version", "-v", "version":
			fmt.Printf("Refinator v%s\n", Version)
			return
		default:
			// Позиционный аргумент - путь к файлу конфигурации
			if !strings.HasPrefix(args[i], "-") {
				configPath = args[i]
			}
		}
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		LogColor("31", fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	// Аргументы командной строки важнее значений из файла
	if providerFlag != "" {
		config.Provider = providerFlag
	}
	if modelFlag != "" && modelFlag != "help" {
		config.Model = modelFlag
	}

	if modelFlag == "help" {
		if err := ShowAvailableModels(config.Provider); err != nil {
			fmt.Printf("❌ %v: %s\n\n", err, config.Provider)
			ShowAvailableProviders()
			os.Exit(1)
		}
		return
	}

	if !IsSupportedProvider(config.Provider) {
		fmt.Printf("❌ Неподдерживаемый провайдер: %s\n\n", config.Provider)
		ShowAvailableProviders()
		os.Exit(1)
	}

	apiKey, err := resolveAPIKey(config, keyFlag)
	if err != nil {
		LogColor("31", fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	rawPrompt, err := readTask(config, interactive)
	if err != nil {
		LogColor("31", fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}
	prompt := rawPrompt + promptInstruction

	fmt.Printf("🤖 Запуск Refinator v%s\n", Version)

	reporter := NewReporter(config)
	reporter.ShowSetup(prompt)

	stats := NewStatistics()
	generator := NewLLMGenerator(config, apiKey)
	runner := NewCodeRunner(config)
	loop := NewRefineLoop(config, generator, runner, reporter, stats)

	state, err := loop.Run(context.Background(), prompt)
	if err != nil {
		LogColor("31", fmt.Sprintf("❌ %v", err))
		os.Exit(1)
	}

	stats.Display()

	if state.Phase == PhaseSucceeded && config.CopyCode {
		if !CheckClipboardSupport() {
			fmt.Println("⚠️  Буфер обмена не доступен - установите xclip или xsel")
		} else if err := WriteClipboard(state.LastCandidate.Code); err != nil {
			fmt.Printf("⚠️  %v\n", err)
		} else {
			fmt.Println("📋 Код скопирован в буфер обмена")
		}
	}

	reporter.RunCommand()
}

// readTask возвращает текст задания: из prompt_file или интерактивно
func readTask(config *Config, interactive bool) (string, error) {
	if interactive {
		reader := NewTerminalReader("Задание> ", 100)
		defer reader.Close()

		input, err := reader.ReadLine()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(input) == "" {
			return "", fmt.Errorf("задание не может быть пустым")
		}
		return strings.TrimSpace(input) + "\n", nil
	}

	content, err := os.ReadFile(config.PromptFile)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать файл промпта %s: %w", config.PromptFile, err)
	}
	return string(content), nil
}

// resolveAPIKey ищет ключ: аргумент --key, затем key_file, затем переменная окружения
func resolveAPIKey(config *Config, flagKey string) (string, error) {
	if flagKey != "" {
		return flagKey, nil
	}
	if data, err := os.ReadFile(config.KeyFile); err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}
	if envName := KeyEnvVar(config.Provider); envName != "" {
		if key := os.Getenv(envName); key != "" {
			return key, nil
		}
	}
	if RequiresKey(config.Provider) {
		return "", fmt.Errorf("не найден API-ключ: создайте файл %s или задайте переменную %s", config.KeyFile, KeyEnvVar(config.Provider))
	}
	return "", nil
}
