package gemini

import (
	"context"
	"strings"

	"template-scout/internal/adapter/llm"
	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel 未配置 GEMINI_MODEL 时使用
const DefaultModel = "gemini-2.5-flash-lite"

// generator 对 *genai.GenerativeModel 的最小抽象，方便测试替换
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Converter 基于 Gemini 的转换策略，实现了 port.ConversionStrategy
type Converter struct {
	client *genai.Client
	model  generator
	log    *zap.Logger
}

// NewConverter 初始化 Gemini 客户端
func NewConverter(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*Converter, error) {
	if apiKey == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "GEMINI_API_KEY 未配置")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "Gemini 客户端初始化失败", err)
	}

	if modelName == "" {
		modelName = DefaultModel
	}
	model := client.GenerativeModel(modelName)
	// 强制要求返回 JSON，降低解析错误的概率
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.SystemPrompt)},
	}

	return &Converter{client: client, model: model, log: logger.OrNop(log)}, nil
}

// Name 策略名
func (c *Converter) Name() string { return "gemini" }

// Convert 调用 Gemini 生成五段式转换方案
func (c *Converter) Convert(ctx context.Context, cc *domain.ConversionContext) (*domain.ConversionPlan, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(llm.BuildUserPrompt(cc)))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeAIProcessing, "Gemini 调用失败", err)
	}

	text := firstText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, common.NewError(common.ErrCodeAIProcessing, "Gemini 返回内容为空")
	}

	plan, err := llm.ParsePlan(text)
	if err != nil {
		c.log.Debug("Gemini 回复无法解析", zap.String("raw", text))
		return nil, err
	}
	return plan, nil
}

// Close 释放底层连接
func (c *Converter) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
