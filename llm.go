// llm.go
// Назначение: обращение к LLM-провайдерам за генерацией кода.
// Поддерживаются groq (по умолчанию), openrouter, ollama, pollinations,
// phind и произвольный OpenAI-совместимый URL. Здесь же живет извлечение
// текста из ответов разной формы и замер времени генерации.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// Список поддерживаемых провайдеров LLM
var supportedProviders = []string{
	"groq",
	"openrouter",
	"ollama",
	"pollinations",
	"phind",
}

// Константы для провайдеров
const (
	groqEndpoint  = "https://api.groq.com/openai/v1"
	phindEndpoint = "https://https.extension.phind.com/agent/"

	// Потолок размера ответа генерации, токенов
	maxCompletionTokens = 4096
)

// Параметры сэмплирования для чатовых провайдеров
var chatDefaults = map[string]interface{}{
	"temperature": 0.2,
	"top_p":       1.0,
}

// Переменные окружения с API-ключами по провайдерам
var keyEnvVars = map[string]string{
	"groq":         "GROQ_API_KEY",
	"openrouter":   "OPENROUTER_API_KEY",
	"pollinations": "POLLINATIONS_API_KEY",
	"phind":        "PHIND_API_KEY",
}

// KeyEnvVar возвращает имя переменной окружения с ключом провайдера
func KeyEnvVar(provider string) string {
	return keyEnvVars[provider]
}

// RequiresKey сообщает, обязателен ли API-ключ для провайдера
func RequiresKey(provider string) bool {
	return provider == "groq" || provider == "openrouter"
}

func isURLLLM(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LLMGenerator генерирует код через SendMessageToLLM и замеряет время
type LLMGenerator struct {
	provider string
	model    string
	apiKey   string
}

// NewLLMGenerator создает генератор для настроенного провайдера
func NewLLMGenerator(config *Config, apiKey string) *LLMGenerator {
	return &LLMGenerator{
		provider: config.Provider,
		model:    config.Model,
		apiKey:   apiKey,
	}
}

// Generate запрашивает у модели код и возвращает сырой ответ вместе
// с длительностью обращения
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, time.Duration, error) {
	start := time.Now()
	response, err := SendMessageToLLM(ctx, prompt, g.provider, g.model, g.apiKey)
	elapsed := time.Since(start)
	if err != nil {
		return "", elapsed, err
	}
	return response, elapsed, nil
}

// SendMessageToLLM отправляет промпт выбранному провайдеру и возвращает
// текст ответа модели
func SendMessageToLLM(ctx context.Context, message, provider, model, apiKey string) (string, error) {
	if isURLLLM(provider) {
		result, err := sendOpenAICompatible(ctx, provider, model, message, apiKey, 240*time.Second, chatDefaults)
		if err != nil {
			return "", fmt.Errorf("URL provider error: %w", err)
		}
		return result, nil
	}

	switch provider {
	case "groq":
		result, err := sendGroq(ctx, model, message, apiKey)
		if err != nil {
			return "", fmt.Errorf("Groq error: %w", err)
		}
		return result, nil
	case "openrouter":
		result, err := sendOpenRouter(ctx, model, message, apiKey)
		if err != nil {
			return "", fmt.Errorf("OpenRouter error: %w", err)
		}
		return result, nil
	case "ollama":
		result, err := sendOllama(ctx, model, message)
		if err != nil {
			return "", fmt.Errorf("Ollama error: %w", err)
		}
		return result, nil
	case "pollinations":
		result, err := sendPollinations(ctx, model, message, apiKey)
		if err != nil {
			return "", fmt.Errorf("Pollinations error: %w", err)
		}
		return result, nil
	case "phind":
		result, err := sendPhind(ctx, apiKey, message, model)
		if err != nil {
			return "", fmt.Errorf("Phind error: %w", err)
		}
		return result, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// sendGroq обращается к провайдеру по умолчанию. Протокол chat/completions,
// размер ответа ограничен maxCompletionTokens.
func sendGroq(ctx context.Context, model, message, apiKey string) (string, error) {
	baseURL := os.Getenv("GROQ_BASE_URL")
	if baseURL == "" {
		baseURL = groqEndpoint
	}
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	extra := map[string]interface{}{"max_tokens": maxCompletionTokens}
	result, err := sendOpenAICompatible(ctx, baseURL+"/chat/completions", model, message, apiKey, 240*time.Second, extra)
	if err != nil {
		return "", fmt.Errorf("groq: %w", err)
	}
	return result, nil
}

func sendOpenRouter(ctx context.Context, model, message, apiKey string) (string, error) {
	baseURL := os.Getenv("OPENROUTER_BASE_URL")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	return sendOpenAICompatible(ctx, baseURL+"/chat/completions", model, message, apiKey, 240*time.Second, chatDefaults)
}

// Ollama работает локально и отвечает медленнее облачных провайдеров,
// поэтому таймаут длиннее
func sendOllama(ctx context.Context, model, message string) (string, error) {
	return sendOpenAICompatible(ctx, "http://localhost:11434/v1/chat/completions", model, message, "", 480*time.Second, chatDefaults)
}

// sendOpenAICompatible реализует общий транспорт формата chat/completions для
// groq, openrouter, ollama и прямых URL
func sendOpenAICompatible(ctx context.Context, endpoint, model, message, apiKey string, timeout time.Duration, extra map[string]interface{}) (string, error) {
	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": message},
		},
	}
	for k, v := range extra {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	if apiKey != "" {
		// Ключи с префиксом "sn-" отправляются без схемы Bearer
		if strings.HasPrefix(apiKey, "sn-") {
			req.Header.Set("Authorization", apiKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	ctxReq, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(ctxReq)

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readWithContext(ctx, resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("LLM returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return extractContentFromLLMResponse(respBody)
}

func sendPollinations(ctx context.Context, model, message, apiKey string) (string, error) {
	if apiKey == "" {
		apiKey = os.Getenv("POLLINATIONS_API_KEY")
	}
	endpoint := "https://text.pollinations.ai/openai"

	type pollinationsMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody := struct {
		Model    string                `json:"model"`
		Messages []pollinationsMessage `json:"messages"`
		Seed     int                   `json:"seed"`
	}{
		Model: model,
		Messages: []pollinationsMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: message},
		},
		Seed: 42,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("pollinations: failed to construct the request body: %w", err)
	}

	req, err := http.NewRequest("POST", endpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("pollinations: failed to create the request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	ctxReq, cancel := context.WithTimeout(ctx, 240*time.Second)
	defer cancel()
	req = req.WithContext(ctxReq)

	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pollinations: error net: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readWithContext(ctx, resp.Body)
	if err != nil {
		return "", fmt.Errorf("pollinations: failed to read the response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pollinations: status %d: %s", resp.StatusCode, string(respBody))
	}

	parsed, err := parsePollinationsResponse(respBody)
	if err != nil {
		return "", fmt.Errorf("pollinations: failed to parse the response: %w", err)
	}
	return parsed, nil
}

func parsePollinationsResponse(body []byte) (string, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return "", fmt.Errorf("pollinations: invalid JSON: %w", err)
	}
	if t, ok := m["text"].(string); ok && t != "" {
		return t, nil
	}
	if c, ok := m["content"].(string); ok && c != "" {
		return c, nil
	}
	if choices, ok := m["choices"].([]interface{}); ok && len(choices) > 0 {
		if first, ok := choices[0].(map[string]interface{}); ok {
			if t, ok := first["text"].(string); ok && t != "" {
				return t, nil
			}
			if msg, ok := first["message"].(map[string]interface{}); ok {
				if t, ok := msg["content"].(string); ok && t != "" {
					return t, nil
				}
			}
		}
	}
	if out, ok := m["output"].(string); ok && out != "" {
		return out, nil
	}
	return "", errors.New("pollinations: could not recognize the response text")
}

func sendPhind(ctx context.Context, apiKeyArg, message, model string) (string, error) {
	// Phind не требует API ключ, но поддерживает если передан
	apiKey := apiKeyArg
	if apiKey == "" {
		apiKey = os.Getenv("PHIND_API_KEY")
	}

	// Первым сообщением должен идти system prompt
	messageHistory := []interface{}{
		map[string]interface{}{
			"role":    "system",
			"content": "You are a helpful assistant.",
		},
		map[string]interface{}{
			"role":    "user",
			"content": message,
		},
	}

	requestBody := map[string]interface{}{
		"additional_extension_context": "",
		"allow_magic_buttons":          true,
		"is_vscode_extension":          true,
		"requested_model":              model,
		"user_input":                   message,
		"message_history":              messageHistory,
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("phind: failed to marshal request body: %w", err)
	}
	req, err := fhttp.NewRequest("POST", phindEndpoint, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("phind: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "") // Важно: пустой User-Agent
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	ctxReq, cancel := context.WithTimeout(ctx, 240*time.Second)
	defer cancel()
	req = req.WithContext(ctxReq)

	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(),
		tls_client.WithTimeoutSeconds(240),
		tls_client.WithClientProfile(profiles.Firefox_102),
	)
	if err != nil {
		return "", fmt.Errorf("phind: failed to create TLS client: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("phind: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("phind: status %d: %s", resp.StatusCode, string(respBody))
	}

	// Phind отвечает потоком Server-Sent Events, собираем строки "data: {...}"
	scanner := bufio.NewScanner(resp.Body)
	var fullContent strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		jsonStr := strings.TrimPrefix(line, "data: ")
		if jsonStr == "[DONE]" {
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
			continue
		}

		if choices, ok := data["choices"].([]interface{}); ok && len(choices) > 0 {
			choice, ok := choices[0].(map[string]interface{})
			if !ok {
				continue
			}

			if finishReason, ok := choice["finish_reason"].(string); ok && finishReason == "stop" {
				break
			}

			if delta, ok := choice["delta"].(map[string]interface{}); ok {
				if content, ok := delta["content"].(string); ok && content != "" {
					fullContent.WriteString(content)
				}
			}
			if message, ok := choice["message"].(map[string]interface{}); ok {
				if content, ok := message["content"].(string); ok && content != "" {
					fullContent.WriteString(content)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("phind: error reading response: %w", err)
	}

	return fullContent.String(), nil
}

// extractContentFromLLMResponse универсально распознаёт текст или JSON-ответ
// LLM и извлекает текстовое содержимое ("content", "text" и т.д.)
func extractContentFromLLMResponse(body []byte) (string, error) {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "", errors.New("empty LLM response body")
	}

	if content, err := extractContentFromPossibleJSON(raw); err == nil && content != "" {
		return content, nil
	}

	type aiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Content string `json:"content"`
			Text    string `json:"text"`
			Delta   struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
		Text   string `json:"text"`
		Output string `json:"output"`
	}

	var r aiResp
	if err := json.Unmarshal(body, &r); err == nil {
		if len(r.Choices) > 0 {
			choice := r.Choices[0]
			if choice.Message.Content != "" {
				return choice.Message.Content, nil
			}
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
			if choice.Content != "" {
				return choice.Content, nil
			}
			if choice.Text != "" {
				return choice.Text, nil
			}
		}
		if r.Text != "" {
			return r.Text, nil
		}
		if r.Output != "" {
			return r.Output, nil
		}
	}

	// Не похоже на JSON — считаем, что провайдер вернул чистый текст
	return raw, nil
}

// extractContentFromPossibleJSON распознаёт вложенный JSON, в том числе
// завернутый в блок ```json
func extractContentFromPossibleJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty response")
	}

	reFenced := regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	if m := reFenced.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}

	var obj interface{}
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		if content, ok := findContentRecursive(obj); ok {
			content = strings.TrimSpace(content)
			if content != "" {
				return content, nil
			}
		}
	}

	first := strings.IndexAny(s, "{[")
	lastBrace := strings.LastIndex(s, "}")
	lastBracket := strings.LastIndex(s, "]")
	last := lastBrace
	if lastBracket > last {
		last = lastBracket
	}

	if first != -1 && last > first {
		jsonStr := s[first : last+1]
		var innerObj interface{}
		if err := json.Unmarshal([]byte(jsonStr), &innerObj); err == nil {
			if content, ok := findContentRecursive(innerObj); ok {
				content = strings.TrimSpace(content)
				if content != "" {
					return content, nil
				}
			}
		}
	}

	return "", errors.New("no JSON content found")
}

// findContentRecursive ищет первое строковое поле "content"/"text" рекурсивно
func findContentRecursive(v interface{}) (string, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		priorityFields := []string{"content", "text", "message", "result", "output", "data"}
		for _, field := range priorityFields {
			if val, exists := t[field]; exists {
				if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
					return s, true
				}
			}
		}

		// OpenAI-совместимый формат choices
		if choices, exists := t["choices"]; exists {
			if choicesSlice, ok := choices.([]interface{}); ok && len(choicesSlice) > 0 {
				if firstChoice, ok := choicesSlice[0].(map[string]interface{}); ok {
					if message, exists := firstChoice["message"]; exists {
						if messageMap, ok := message.(map[string]interface{}); ok {
							if content, exists := messageMap["content"]; exists {
								if s, ok := content.(string); ok && strings.TrimSpace(s) != "" {
									return s, true
								}
							}
						}
					}
					if delta, exists := firstChoice["delta"]; exists {
						if deltaMap, ok := delta.(map[string]interface{}); ok {
							if content, exists := deltaMap["content"]; exists {
								if s, ok := content.(string); ok && strings.TrimSpace(s) != "" {
									return s, true
								}
							}
						}
					}
					if text, exists := firstChoice["text"]; exists {
						if s, ok := text.(string); ok && strings.TrimSpace(s) != "" {
							return s, true
						}
					}
					if content, exists := firstChoice["content"]; exists {
						if s, ok := content.(string); ok && strings.TrimSpace(s) != "" {
							return s, true
						}
					}
				}
			}
		}

		for _, val := range t {
			if s, ok := findContentRecursive(val); ok {
				return s, true
			}
		}

	case []interface{}:
		for _, item := range t {
			if s, ok := findContentRecursive(item); ok {
				return s, true
			}
		}

	case string:
		str := strings.TrimSpace(t)
		// Строка сама может оказаться сериализованным JSON
		if (strings.HasPrefix(str, "{") && strings.HasSuffix(str, "}")) ||
			(strings.HasPrefix(str, "[") && strings.HasSuffix(str, "]")) {
			var inner interface{}
			if err := json.Unmarshal([]byte(str), &inner); err == nil {
				if s, ok := findContentRecursive(inner); ok {
					return s, true
				}
			}
		}
	}

	return "", false
}

func nameModelPollinations() {
	resp, err := http.Get("https://text.pollinations.ai/models")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println(err)
		return
	}

	var models []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &models); err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("Pollinations models:\n")
	for _, model := range models {
		fmt.Printf(" %-40s  %s\n", model.Name, model.Description)
	}
}

func nameModelOpenRouter() {
	req, err := http.NewRequest("GET", "https://openrouter.ai/api/v1/models", nil)
	if err != nil {
		fmt.Println(err)
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer resp.Body.Close()

	body, err := readWithContext(context.Background(), resp.Body)
	if err != nil {
		fmt.Println(err)
		return
	}

	type apiModel struct {
		ID            string `json:"id"`
		ContextLength int    `json:"context_length"`
	}
	var dw struct {
		Data []apiModel `json:"data"`
	}
	if err := json.Unmarshal(body, &dw); err != nil {
		fmt.Println("Failed to parse the answer:", err)
		return
	}
	if len(dw.Data) == 0 {
		fmt.Println("No data of models")
		return
	}

	fmt.Printf("OpenRouter models:\n")
	for _, m := range dw.Data {
		fmt.Printf(" %-40s context=%d\n", m.ID, m.ContextLength)
	}
}

// ShowAvailableModels печатает список моделей провайдера
func ShowAvailableModels(provider string) error {
	switch provider {
	case "groq":
		fmt.Println("ℹ️  Список моделей groq: https://console.groq.com/docs/models")
	case "pollinations":
		nameModelPollinations()
	case "openrouter":
		nameModelOpenRouter()
	case "ollama":
		fmt.Println("ℹ️  Используйте `ollama list` для просмотра локальных моделей")
	case "phind":
		fmt.Println("ℹ️  Available models: Phind-70B, Phind-34B, Phind-CodeLlama-34B")
	default:
		return fmt.Errorf("неподдерживаемый провайдер")
	}
	return nil
}

// ShowAvailableProviders выводит список поддерживаемых провайдеров
func ShowAvailableProviders() {
	fmt.Println("🤖 Поддерживаемые провайдеры LLM:")
	for _, p := range supportedProviders {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Println("\nДля прямого подключения укажите OpenAI-совместимый URL вместо имени провайдера")
}

// IsSupportedProvider проверяет, поддерживается ли провайдер
func IsSupportedProvider(name string) bool {
	for _, p := range supportedProviders {
		if p == name {
			return true
		}
	}
	return isURLLLM(name)
}

func readWithContext(ctx context.Context, r io.Reader) ([]byte, error) {
	ch := make(chan []byte, 1)
	errCh := make(chan error, 1)
	go func() {
		b, err := io.ReadAll(r)
		if err != nil {
			errCh <- err
			return
		}
		ch <- b
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case data := <-ch:
		return data, nil
	}
}
