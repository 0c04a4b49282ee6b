package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"plume/internal/config"
	"plume/internal/metrics"
)

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client  *resty.Client
	model   string
	limiter *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAIClient builds a client from provider config. The request timeout
// bounds every call; a timeout surfaces as an ordinary transport error.
func NewOpenAIClient(cfg config.ProviderConfig) *OpenAIClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	return &OpenAIClient{
		client: resty.New().
			SetBaseURL(base).
			SetTimeout(timeout).
			SetAuthToken(cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *OpenAIClient) ModelID() string { return c.model }

// Complete performs one chat completion and returns the raw text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	msgs := make([]chatMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	if req.ImageURL != "" {
		msgs = append(msgs, chatMessage{Role: "user", Content: []contentBlock{
			{Type: "text", Text: req.User},
			{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
		}})
	} else {
		msgs = append(msgs, chatMessage{Role: "user", Content: req.User})
	}
	body := chatRequest{Model: c.model, Messages: msgs, Temperature: req.Temperature, MaxTokens: req.MaxTokens}

	start := time.Now()
	var out chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	metrics.ObserveProviderDuration(start)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("provider status %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("provider status %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
