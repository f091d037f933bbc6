// Package problemsource fetches generated problems from an external
// chat-completions endpoint. The source is best effort: any failure yields a
// nil problem so callers can fall back to the stored problem pool.
package problemsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codearena/internal/match/model"
	"codearena/pkg/logger"

	"go.uber.org/zap"
)

// Config points the client at a chat-completions compatible endpoint.
type Config struct {
	BaseURL string        `yaml:"baseURL"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Source produces a problem for a topic and difficulty. A nil problem with a
// nil error means the source had nothing to offer.
type Source interface {
	Fetch(ctx context.Context, topic, difficulty string) (*model.Problem, error)
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type generatedProblem struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	InitialCode string           `json:"initial_code"`
	EntryPoint  model.EntryPoint `json:"entry_point"`
	TestCases   []model.TestCase `json:"test_cases"`
}

const systemPrompt = `You are a competitive programming problem setter. Produce one original problem as a JSON object with fields: title (string), description (string, markdown), initial_code (string, a Lua skeleton declaring a Solution table with one stub method), entry_point (object with method string and params array of parameter names), test_cases (array of at least 5 objects with input and output strings). Inputs use name=value assignments matching the entry point parameters. Outputs are the exact expected return value rendered as text. Respond with the JSON object only.`

// Fetch asks the endpoint for one problem. Transport errors, bad status
// codes and malformed payloads all log and return nil so the caller can
// fall back.
func (c *Client) Fetch(ctx context.Context, topic, difficulty string) (*model.Problem, error) {
	if c.cfg.BaseURL == "" || c.cfg.APIKey == "" {
		return nil, nil
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(topic, difficulty)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn(ctx, "problem source request failed", zap.Error(err))
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Warn(ctx, "problem source returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, nil
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		logger.Warn(ctx, "problem source response unreadable", zap.Error(err))
		return nil, nil
	}
	if len(chat.Choices) == 0 {
		return nil, nil
	}

	var generated generatedProblem
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &generated); err != nil {
		logger.Warn(ctx, "problem source payload malformed", zap.Error(err))
		return nil, nil
	}
	if generated.Title == "" || len(generated.TestCases) == 0 {
		logger.Warn(ctx, "problem source payload incomplete", zap.String("title", generated.Title))
		return nil, nil
	}

	return &model.Problem{
		Title:       generated.Title,
		Description: generated.Description,
		Difficulty:  difficulty,
		Topic:       topic,
		InitialCode: generated.InitialCode,
		Entry:       generated.EntryPoint,
		TestCases:   generated.TestCases,
	}, nil
}

func userPrompt(topic, difficulty string) string {
	if topic == "" || topic == model.TopicRandom {
		return fmt.Sprintf("Generate a %s difficulty problem on any common algorithmic topic.", difficulty)
	}
	return fmt.Sprintf("Generate a %s difficulty problem on the topic %q.", difficulty, topic)
}
