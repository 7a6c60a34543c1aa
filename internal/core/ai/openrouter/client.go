package openrouter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catering-planner/internal/core/ai/provider"
	"catering-planner/internal/infrastructure/config"
	"catering-planner/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second
)

// Client OpenRouter API 客戶端
type Client struct {
	client    *resty.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// chatRequest 表示 API 請求
type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature"`
	Stop        []string           `json:"stop,omitempty"`
}

// chatResponse OpenRouter 響應結構
type chatResponse struct {
	ID      string         `json:"id"`
	Choices []choice       `json:"choices"`
	Usage   provider.Usage `json:"usage"`
}

type choice struct {
	Message provider.Message `json:"message"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg config.OpenRouterConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", "https://catering-planner.local").
		SetHeader("X-Title", "Catering Planner")

	return &Client{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   timeout,
	}
}

// Generate 生成回應
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, common.NewValidationError("request has no messages")
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = c.maxTokens
	}

	common.LogDebug("Sending request to OpenRouter",
		zap.String("model", c.model),
		zap.Int("messages", len(req.Messages)),
	)

	var out chatResponse
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		common.LogError("Failed to send request to AI service",
			zap.Error(err),
			zap.String("model", c.model),
		)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = truncate(resp.String(), 300)
		}
		common.LogError("AI service returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", c.model),
			zap.String("message", msg),
		)
		return nil, fmt.Errorf("AI service error (status %d): %s", resp.StatusCode(), msg)
	}

	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in response")
	}
	content := strings.TrimSpace(out.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	common.LogDebug("Successfully generated response from AI service",
		zap.String("model", c.model),
		zap.Int("content_length", len(content)),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)

	return &provider.Response{
		Content: content,
		Usage:   out.Usage,
	}, nil
}

// GetModel 獲取模型名稱
func (c *Client) GetModel() string {
	return c.model
}

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ provider.Provider = (*Client)(nil)
