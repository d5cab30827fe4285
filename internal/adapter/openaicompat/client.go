package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"template-scout/internal/adapter/llm"
	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL Groq 的 OpenAI 兼容接口
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	// DefaultModel 未配置 OPENAI_COMPAT_MODEL 时使用
	DefaultModel = "llama-3.3-70b-versatile"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 2048
)

// Converter 调用 OpenAI 兼容的 chat completions 接口，实现了 port.ConversionStrategy
type Converter struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
	log     *zap.Logger
}

// Option 配置 Converter
type Option func(*Converter)

// WithBaseURL 形如 https://host/v1，会自动拼上 /chat/completions
func WithBaseURL(raw string) Option {
	return func(c *Converter) {
		if raw = strings.TrimRight(strings.TrimSpace(raw), "/"); raw != "" {
			c.baseURL = raw
		}
	}
}

// WithModel 模型名
func WithModel(model string) Option {
	return func(c *Converter) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Converter) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger 注入日志器
func WithLogger(l *zap.Logger) Option {
	return func(c *Converter) {
		c.log = logger.OrNop(l)
	}
}

// NewConverter apiKey 为空时返回 INVALID_INPUT，调用方据此跳过该策略
func NewConverter(apiKey string, opts ...Option) (*Converter, error) {
	if apiKey == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "OPENAI_COMPAT_API_KEY 未配置")
	}
	c := &Converter{
		http:    &http.Client{Timeout: defaultTimeout},
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name 策略名
func (c *Converter) Name() string { return "openai-compatible" }

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Convert 发送 system + user 两条消息，要求返回 json_object
func (c *Converter) Convert(ctx context.Context, cc *domain.ConversionContext) (*domain.ConversionPlan, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: llm.SystemPrompt},
			{Role: "user", Content: llm.BuildUserPrompt(cc)},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "请求序列化失败", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "构造请求失败", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "调用 "+c.model+" 失败", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code := common.ErrCodeAIProcessing
		if resp.StatusCode == http.StatusTooManyRequests {
			code = common.ErrCodeRateLimited
		}
		return nil, common.WrapError(code, fmt.Sprintf("%s 返回 %s", c.model, resp.Status), fmt.Errorf("%s", raw))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "响应解析失败", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, common.NewError(common.ErrCodeAIProcessing, c.model+" 返回内容为空")
	}

	content := out.Choices[0].Message.Content
	plan, err := llm.ParsePlan(content)
	if err != nil {
		c.log.Debug("模型回复无法解析", zap.String("model", c.model), zap.String("raw", content))
		return nil, err
	}
	return plan, nil
}
