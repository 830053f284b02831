// Chat completion client for OpenAI compatible APIs
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/shared"
)

// CompletionClient implements [Completer].
type CompletionClient struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *log.Logger
}

// CompletionOption customizes a [CompletionClient].
type CompletionOption func(*CompletionClient)

// WithCompletionHTTPClient sets the base client the bearer transport wraps.
func WithCompletionHTTPClient(c *http.Client) CompletionOption {
	return func(cc *CompletionClient) { cc.httpClient = c }
}

// WithCompletionLogger sets the logger.
func WithCompletionLogger(l *log.Logger) CompletionOption {
	return func(cc *CompletionClient) { cc.logger = l }
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message models.ChatMessage `json:"message"`
	} `json:"choices"`
}

// NewCompletionClient creates a client that authenticates with cfg.APIKey as a bearer token.
func NewCompletionClient(cfg shared.CompletionConfig, opts ...CompletionOption) *CompletionClient {
	c := &CompletionClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout()},
		logger:      shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.APIKey != "" {
		base := c.httpClient
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
		c.httpClient = oauth2.NewClient(ctx, src)
		c.httpClient.Timeout = base.Timeout
	}
	return c
}

// Complete posts the transcript and returns the first choice's content.
func (c *CompletionClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: empty transcript", shared.ErrInvalidInput)
	}

	body := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var resp completionResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/chat/completions", body, &resp); err != nil {
		c.logger.Error("completion request failed", "model", c.model, "error", err)
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no completion choices", shared.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
