package webhook

import (
	"fmt"
	"strings"

	"template-scout/internal/domain"
)

// feishuCard 构造飞书 Schema 2.0 卡片
func feishuCard(result *domain.ConversionResult) map[string]interface{} {
	title := fmt.Sprintf("🧩 新模板: %s", result.TemplateName)

	var steps strings.Builder
	for _, s := range result.Plan.ConversionSteps {
		steps.WriteString("- " + s + "\n")
	}

	mdContent := fmt.Sprintf(`**📦 来源仓库:** %s  |  **策略:** %s
**🛠 技术栈:** %s

**📝 改造步骤:**
%s
**🚀 启动命令:**
%s

**🎯 预期效果:**
%s
`,
		result.SourceRepo, result.Strategy,
		strings.Join(result.TechStack, ", "),
		steps.String(),
		"`"+strings.Join(result.Plan.SetupCommands, " && ")+"`",
		result.Plan.ExpectedOutcome)

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"schema": "2.0",
			"config": map[string]interface{}{
				"update_multi": true,
			},
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": title,
				},
				"template": "blue",
			},
			"body": map[string]interface{}{
				"direction": "vertical",
				"elements": []map[string]interface{}{
					{
						"tag":       "markdown",
						"content":   mdContent,
						"text_size": "normal",
					},
					{
						"tag": "button",
						"text": map[string]interface{}{
							"tag":     "plain_text",
							"content": "🔗 查看源码",
						},
						"type": "primary",
						"behaviors": []map[string]interface{}{
							{
								"type":        "open_url",
								"default_url": result.SourceRepoURL,
							},
						},
					},
				},
			},
		},
	}
}
