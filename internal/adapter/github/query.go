package github

import (
	"fmt"
	"strings"
	"time"

	"template-scout/internal/domain"
)

// 固定的质量限定条件
const qualityQualifiers = "is:public archived:false"

// BuildQuery 将自然语言描述和过滤条件拼成 GitHub 搜索语句
// now 由调用方注入，相同输入在同一天内得到相同结果
func BuildQuery(description string, filters domain.SearchFilters, now time.Time) string {
	parts := make([]string, 0, 5)

	if terms := strings.Join(strings.Fields(description), " "); terms != "" {
		parts = append(parts, terms)
	}
	if lang := strings.TrimSpace(filters.Language); lang != "" {
		if strings.ContainsAny(lang, " \t") {
			lang = `"` + lang + `"`
		}
		parts = append(parts, "language:"+lang)
	}
	if filters.MinStars != nil {
		parts = append(parts, fmt.Sprintf("stars:>=%d", *filters.MinStars))
	}
	if filters.MaxAgeDays != nil {
		cutoff := now.UTC().AddDate(0, 0, -*filters.MaxAgeDays).Format("2006-01-02")
		parts = append(parts, "pushed:>="+cutoff)
	}
	parts = append(parts, qualityQualifiers)

	return strings.Join(parts, " ")
}
