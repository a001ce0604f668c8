package yandexgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultCompletionURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"
	DefaultModel         = "yandexgpt/latest"
	DefaultMaxTokens     = 700
	DefaultTemperature   = 0.2

	// DiagnosticPrefix starts the text returned when a completion has an unexpected shape.
	DiagnosticPrefix = "Ошибка ответа модели: "
)

// TokenSource supplies a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	tokens      TokenSource
	folderID    string
	model       string
	url         string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

func NewClient(tokens TokenSource, folderID, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		tokens:      tokens,
		folderID:    folderID,
		model:       model,
		url:         DefaultCompletionURL,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		client:      &http.Client{Timeout: 120 * time.Second},
		logger:      logger,
	}
}

// SetEndpoint overrides the completion URL.
func (c *Client) SetEndpoint(url string) {
	if url != "" {
		c.url = url
	}
}

// ModelURI is the model reference sent with each request, e.g. gpt://<folder>/yandexgpt/latest.
func (c *Client) ModelURI() string {
	return fmt.Sprintf("gpt://%s/%s", c.folderID, c.model)
}

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type request struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []Message         `json:"messages"`
}

type response struct {
	Result *struct {
		Alternatives []struct {
			Message *struct {
				Role string  `json:"role"`
				Text *string `json:"text"`
			} `json:"message"`
			Status string `json:"status"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  string `json:"inputTextTokens"`
			CompletionTokens string `json:"completionTokens"`
			TotalTokens      string `json:"totalTokens"`
		} `json:"usage"`
		ModelVersion string `json:"modelVersion"`
	} `json:"result"`
}

// RequestError reports a completion call that failed in transport or was
// rejected by the API.
type RequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("completion request: status %d: %v", e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("completion request: %v", e.Err)
	default:
		return fmt.Sprintf("completion request: status %d: %s", e.StatusCode, e.Body)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Complete sends the conversation and returns the first alternative's text.
// A successful response without that text yields a diagnostic string that
// embeds the raw body, with a nil error, so callers always have something to show.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("get iam token: %w", err)
	}

	reqBody := request{
		ModelURI: c.ModelURI(),
		CompletionOptions: completionOptions{
			Stream:      false,
			MaxTokens:   c.maxTokens,
			Temperature: c.temperature,
		},
		Messages: messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.folderID != "" {
		req.Header.Set("x-folder-id", c.folderID)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &RequestError{Err: fmt.Errorf("api call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil || !apiResp.hasText() {
		c.logger.Warn("unexpected completion response", "status", resp.StatusCode, "body", string(respBody))
		return DiagnosticPrefix + string(respBody), nil
	}

	c.logger.Info("completion received",
		"model", c.ModelURI(),
		"latency_ms", time.Since(start).Milliseconds(),
		"input_tokens", apiResp.Result.Usage.InputTextTokens,
		"completion_tokens", apiResp.Result.Usage.CompletionTokens,
	)
	return *apiResp.Result.Alternatives[0].Message.Text, nil
}

// hasText reports whether the first alternative carries a message text.
func (r *response) hasText() bool {
	if r.Result == nil || len(r.Result.Alternatives) == 0 {
		return false
	}
	msg := r.Result.Alternatives[0].Message
	return msg != nil && msg.Text != nil
}
