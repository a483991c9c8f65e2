package stories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"project-management-api/internal/config"
)

// Prompt builds the generation prompt for a project description.
func Prompt(description string) string {
	return fmt.Sprintf(`Generate detailed user stories for the following project description.
Each user story should follow the format: "As a [role], I want to [action], so that [benefit]."

Project Description: %s

Please provide 5-10 user stories that cover the main functionality and user types for this project.
Return only the user stories, one per line, without numbering or additional formatting.`, description)
}

// Client talks to an OpenAI compatible chat completions endpoint. Groq is
// the default upstream.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewClient returns a client for cfg. A nil httpClient uses
// http.DefaultClient.
func NewClient(httpClient *http.Client, cfg config.AIConfig) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends prompt as a single user message and returns the
// non-empty lines of the reply.
func (c *Client) Generate(ctx context.Context, prompt string) ([]string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("stories/groq: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("stories/groq: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stories/groq: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("stories/groq: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("stories/groq: decoding response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("stories/groq: response has no choices")
	}
	return SplitLines(decoded.Choices[0].Message.Content), nil
}
