// File: internal/llmclient/mistral_client.go
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xKony/x-automate/api/schemas"
	"github.com/xKony/x-automate/internal/config"
)

const defaultMistralEndpoint = "https://api.mistral.ai/v1/chat/completions"

// MistralClient generates content through the Mistral chat-completions API.
type MistralClient struct {
	apiKey       string
	endpoint     string
	systemPrompt string
	httpClient   *http.Client
	logger       *zap.Logger
	cfg          config.LLMConfig
}

// -- Mistral API request/response structures (internal to this file) --

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	Temperature float32          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type mistralResponse struct {
	Choices []struct {
		Message      mistralMessage `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewMistralClient initializes the client.
func NewMistralClient(cfg config.LLMConfig, systemPrompt string, logger *zap.Logger) (*MistralClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultMistralEndpoint
	}
	return &MistralClient{
		apiKey:       cfg.APIKey,
		endpoint:     endpoint,
		systemPrompt: systemPrompt,
		cfg:          cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llm_client.mistral"),
	}, nil
}

// Generate sends the request to the Mistral API and returns the generated
// text, retrying transient failures with exponential backoff.
func (c *MistralClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	payload := mistralRequest{
		Model: c.cfg.Model,
		Messages: []mistralMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 90 * time.Second
	b.MaxInterval = 20 * time.Second

	var content string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return classifyHTTPError(c.logger, resp.StatusCode, respBody)
		}

		var parsed mistralResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("mistral API returned no choices"))
		}

		text := strings.TrimSpace(parsed.Choices[0].Message.Content)
		if text == "" {
			return fmt.Errorf("mistral API returned empty content (finish_reason: %s)", parsed.Choices[0].FinishReason)
		}

		c.logger.Info("LLM generation complete (Mistral)",
			zap.Duration("duration", time.Since(start)),
			zap.String("intent", string(req.Intent)),
			zap.Int("prompt_tokens", parsed.Usage.PromptTokens),
			zap.Int("completion_tokens", parsed.Usage.CompletionTokens))

		content = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// classifyHTTPError maps API status codes to retryable or permanent errors.
// Rate limiting and server-side hiccups are worth retrying; everything else
// is permanent.
func classifyHTTPError(logger *zap.Logger, statusCode int, body []byte) error {
	logger.Error("LLM API returned error status",
		zap.Int("status", statusCode),
		zap.String("response", string(body)))
	err := fmt.Errorf("LLM API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err
	default:
		return backoff.Permanent(err)
	}
}
