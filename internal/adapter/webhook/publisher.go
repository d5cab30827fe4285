package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"

	"go.uber.org/zap"
)

// Format 推送的消息格式
type Format string

const (
	// FormatJSON 直接推送 ConversionResult
	FormatJSON Format = "json"
	// FormatFeishu 飞书卡片消息 (Schema 2.0)
	FormatFeishu Format = "feishu"
)

// Publisher 把转换结果 POST 到外部 Webhook，实现了 port.ResultPublisher
type Publisher struct {
	url      string
	format   Format
	client   *http.Client
	attempts int
	delay    time.Duration
	log      *zap.Logger
}

// Option 配置 Publisher
type Option func(*Publisher)

// WithFormat 默认 json
func WithFormat(f Format) Option {
	return func(p *Publisher) {
		if f == FormatFeishu || f == FormatJSON {
			p.format = f
		}
	}
}

// WithRetry 总尝试次数和基础退避
func WithRetry(attempts int, delay time.Duration) Option {
	return func(p *Publisher) {
		if attempts > 0 {
			p.attempts = attempts
		}
		if delay > 0 {
			p.delay = delay
		}
	}
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithLogger 注入日志器
func WithLogger(l *zap.Logger) Option {
	return func(p *Publisher) {
		p.log = logger.OrNop(l)
	}
}

func NewPublisher(url string, opts ...Option) *Publisher {
	p := &Publisher{
		url:      url,
		format:   FormatJSON,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 4,
		delay:    500 * time.Millisecond,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if url == "" {
		p.log.Warn("结果 Webhook 为空，推送功能将无法工作")
	}
	return p
}

// statusError 非 2xx 响应
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Webhook 返回状态码 %d", e.code)
}

// 4xx 除 429 外不重试
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

// Publish 发送转换结果 (带重试机制)
func (p *Publisher) Publish(ctx context.Context, result *domain.ConversionResult) error {
	if p.url == "" {
		return common.NewError(common.ErrCodeNotification, "Webhook URL 为空")
	}
	if result == nil {
		return common.NewError(common.ErrCodeInvalidInput, "转换结果为空")
	}

	var payload any = result
	if p.format == FormatFeishu {
		payload = feishuCard(result)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "消息序列化失败", err)
	}

	err = common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := p.client.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &statusError{code: resp.StatusCode}
		}
		return nil
	},
		common.WithMaxAttempts(p.attempts),
		common.WithInitialDelay(p.delay),
		common.WithRetryIf(retryable),
	)
	if err != nil {
		return common.WrapError(common.ErrCodeNotification, "发送请求失败", err)
	}

	p.log.Debug("转换结果已推送",
		zap.String("template", result.TemplateName),
		zap.String("format", string(p.format)),
	)
	return nil
}
