package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateName(t *testing.T) {
	tests := []struct {
		name        string
		repo        string
		description string
		projectName string
		expected    string
	}{
		{name: "项目名优先", repo: "widget", description: "internal dashboard", projectName: "ShopAdmin", expected: "ShopAdmin (from widget)"},
		{name: "描述关键词", repo: "widget", description: "internal dashboard", expected: "widget - Internal Dashboard"},
		{name: "最多三个关键词并去掉停用词", repo: "todo", description: "I want a simple todo list for my team with reminders", expected: "todo - Todo List Team"},
		{name: "关键词去重", repo: "blog", description: "Blog blog BLOG engine", expected: "blog - Blog Engine"},
		{name: "只有停用词", repo: "widget", description: "a simple one for me", expected: "widget - One"},
		{name: "没有关键词", repo: "widget", description: "   ", expected: "widget Template"},
		{name: "标点被忽略", repo: "shop", description: "storefront, checkout!", expected: "shop - Storefront Checkout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TemplateName(tt.repo, tt.description, tt.projectName))
		})
	}
}
