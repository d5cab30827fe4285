package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"template-scout/internal/common"
	"template-scout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWebhookServer 创建模拟的 Webhook 服务器，statuses 依次返回，最后一个重复使用
func mockWebhookServer(t *testing.T, calls *int32, validatePayload func(*testing.T, map[string]interface{}), statuses ...int) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var payload map[string]interface{}
		assert.NoError(t, json.Unmarshal(body, &payload))
		if validatePayload != nil {
			validatePayload(t, payload)
		}

		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		w.WriteHeader(statuses[idx])
	}))
	t.Cleanup(server.Close)
	return server
}

func testResult() *domain.ConversionResult {
	return &domain.ConversionResult{
		Plan: domain.ConversionPlan{
			ConversionSteps:     []string{"1. Clone widget"},
			FilesToModify:       []string{"package.json"},
			CustomizationPoints: []string{"Branding"},
			SetupCommands:       []string{"npm install", "npm run dev"},
			ExpectedOutcome:     "A dashboard.",
		},
		TemplateName:  "widget - Internal Dashboard",
		TechStack:     []string{"TypeScript", "Tailwind CSS"},
		SourceRepo:    "acme/widget",
		SourceRepoURL: "https://github.com/acme/widget",
		Strategy:      "rules",
	}
}

func fastRetry(attempts int) Option {
	return WithRetry(attempts, time.Millisecond)
}

func TestPublisher_PublishJSON(t *testing.T) {
	var calls int32
	server := mockWebhookServer(t, &calls, func(t *testing.T, payload map[string]interface{}) {
		assert.Equal(t, "widget - Internal Dashboard", payload["template_name"])
		assert.Equal(t, "rules", payload["strategy"])
		plan := payload["plan"].(map[string]interface{})
		assert.Equal(t, "A dashboard.", plan["expected_outcome"])
	}, http.StatusOK)

	err := NewPublisher(server.URL).Publish(context.Background(), testResult())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestPublisher_PublishFeishuCard(t *testing.T) {
	var calls int32
	server := mockWebhookServer(t, &calls, func(t *testing.T, payload map[string]interface{}) {
		assert.Equal(t, "interactive", payload["msg_type"])

		card := payload["card"].(map[string]interface{})
		assert.Equal(t, "2.0", card["schema"])

		title := card["header"].(map[string]interface{})["title"].(map[string]interface{})
		assert.Contains(t, title["content"], "widget - Internal Dashboard")

		elements := card["body"].(map[string]interface{})["elements"].([]interface{})
		require.Len(t, elements, 2)
		content := elements[0].(map[string]interface{})["content"].(string)
		assert.Contains(t, content, "acme/widget")
		assert.Contains(t, content, "Tailwind CSS")
		assert.Contains(t, content, "npm install && npm run dev")

		behaviors := elements[1].(map[string]interface{})["behaviors"].([]interface{})
		assert.Equal(t, "https://github.com/acme/widget", behaviors[0].(map[string]interface{})["default_url"])
	}, http.StatusOK)

	err := NewPublisher(server.URL, WithFormat(FormatFeishu)).Publish(context.Background(), testResult())
	require.NoError(t, err)
}

func TestPublisher_Retry(t *testing.T) {
	tests := []struct {
		name        string
		statuses    []int
		expectError bool
		wantCalls   int32
	}{
		{name: "5xx 后恢复", statuses: []int{500, 502, 200}, wantCalls: 3},
		{name: "429 重试", statuses: []int{429, 200}, wantCalls: 2},
		{name: "持续 5xx 用尽次数", statuses: []int{500}, expectError: true, wantCalls: 3},
		{name: "400 不重试", statuses: []int{400}, expectError: true, wantCalls: 1},
		{name: "403 不重试", statuses: []int{403}, expectError: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := mockWebhookServer(t, &calls, nil, tt.statuses...)

			err := NewPublisher(server.URL, fastRetry(3)).Publish(context.Background(), testResult())
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, common.HasCode(err, common.ErrCodeNotification))
				assert.Contains(t, err.Error(), "发送请求失败")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestPublisher_ErrorCases(t *testing.T) {
	err := NewPublisher("").Publish(context.Background(), testResult())
	assert.True(t, common.HasCode(err, common.ErrCodeNotification))
	assert.Contains(t, err.Error(), "Webhook URL 为空")

	err = NewPublisher("http://example.invalid").Publish(context.Background(), nil)
	assert.True(t, common.HasCode(err, common.ErrCodeInvalidInput))

	err = NewPublisher("http://127.0.0.1:1", fastRetry(2)).Publish(context.Background(), testResult())
	assert.Error(t, err)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	slowServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer slowServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewPublisher(slowServer.URL, fastRetry(3)).Publish(ctx, testResult())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
