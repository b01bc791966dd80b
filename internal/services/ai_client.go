package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/vitacoach/coach-backend/internal/config"
)

// ErrAIUnavailable signals that no provider is configured or the call failed;
// callers fall back to their deterministic content.
var ErrAIUnavailable = errors.New("ai provider unavailable")

// AIClient talks to an OpenAI-compatible chat-completions endpoint
// (Gemini's compatibility endpoint by default).
type AIClient struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewAIClient(cfg *config.Config) *AIClient {
	return &AIClient{
		apiKey:     cfg.AIAPIKey,
		apiURL:     cfg.AIAPIURL,
		model:      cfg.AIModel,
		httpClient: &http.Client{Timeout: cfg.AITimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs one prompt through the model and returns the raw text reply.
func (c *AIClient) Generate(prompt, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", ErrAIUnavailable
	}

	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAIUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrAIUnavailable)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerateJSON prompts for a structured reply and parses it, tolerating
// markdown code fences around the model's JSON.
func (c *AIClient) GenerateJSON(prompt, systemPrompt string, temperature float64, maxTokens int) (gjson.Result, error) {
	content, err := c.Generate(prompt, systemPrompt, temperature, maxTokens)
	if err != nil {
		return gjson.Result{}, err
	}

	content = stripFences(content)
	if !gjson.Valid(content) {
		return gjson.Result{}, fmt.Errorf("%w: malformed JSON reply", ErrAIUnavailable)
	}
	return gjson.Parse(content), nil
}

// compactJSON renders a document as a single JSON line for prompts.
func compactJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return strings.TrimSpace(content)
}
