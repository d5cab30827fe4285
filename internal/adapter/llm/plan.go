package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"template-scout/internal/common"
	"template-scout/internal/domain"
)

// ErrInvalidPlan 模型回复不是合法的五字段方案
var ErrInvalidPlan = errors.New("invalid conversion plan")

var requiredKeys = []string{
	"conversion_steps",
	"files_to_modify",
	"customization_points",
	"setup_commands",
	"expected_outcome",
}

// ExtractJSON 抠出第一个 { 到最后一个 } 之间的内容，兼容 ```json 代码块
func ExtractJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// ParsePlan 解析并校验模型回复，只能有五个字段且全部有内容
// 失败时返回 AI_PROCESSING_ERROR，错误链上带 ErrInvalidPlan
func ParsePlan(raw string) (*domain.ConversionPlan, error) {
	clean, ok := ExtractJSON(raw)
	if !ok {
		return nil, invalid("回复中没有 JSON 对象")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return nil, invalid("JSON 解析失败: " + err.Error())
	}
	for _, key := range requiredKeys {
		if _, ok := fields[key]; !ok {
			return nil, invalid(fmt.Sprintf("缺少字段 %q", key))
		}
	}
	if len(fields) != len(requiredKeys) {
		for key := range fields {
			if !slices.Contains(requiredKeys, key) {
				return nil, invalid(fmt.Sprintf("多余字段 %q", key))
			}
		}
	}

	var plan domain.ConversionPlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return nil, invalid("JSON 解析失败: " + err.Error())
	}

	plan.ConversionSteps = compact(plan.ConversionSteps)
	plan.FilesToModify = compact(plan.FilesToModify)
	plan.CustomizationPoints = compact(plan.CustomizationPoints)
	plan.SetupCommands = compact(plan.SetupCommands)
	plan.ExpectedOutcome = strings.TrimSpace(plan.ExpectedOutcome)

	if !plan.Complete() {
		return nil, invalid("存在空字段")
	}
	return &plan, nil
}

func invalid(msg string) error {
	return common.WrapError(common.ErrCodeAIProcessing, msg, ErrInvalidPlan)
}

func compact(items []string) []string {
	out := items[:0]
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
