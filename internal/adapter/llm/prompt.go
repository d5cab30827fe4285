package llm

import (
	"fmt"
	"strings"

	"template-scout/internal/domain"
)

// SystemPrompt 约束模型只输出五个字段的 JSON
const SystemPrompt = `You are a senior software engineer who turns open-source repositories into reusable, personalized project templates.
Reply with a single JSON object and nothing else. The object must contain exactly these keys:
- "conversion_steps": array of strings, ordered steps to convert the repository into the template
- "files_to_modify": array of strings, repository paths that must be changed
- "customization_points": array of strings, places the user will want to personalize
- "setup_commands": array of strings, shell commands to install and run the template
- "expected_outcome": string, one or two sentences describing the finished template
Every array must be non-empty and every string must be non-empty. Do not wrap the JSON in Markdown.`

// promptFileLimit prompt 中列出的文件数
const promptFileLimit = domain.MaxContextFiles

// BuildUserPrompt 仓库元数据 + 文件列表 + 用户需求
func BuildUserPrompt(cc *domain.ConversionContext) string {
	var b strings.Builder
	repo := cc.Repo

	b.WriteString("Repository information:\n")
	fmt.Fprintf(&b, "- Name: %s\n", nonEmpty(repo.FullName, repo.Name))
	fmt.Fprintf(&b, "- URL: %s\n", repo.URL)
	fmt.Fprintf(&b, "- Description: %s\n", nonEmpty(repo.Description, "(none)"))
	fmt.Fprintf(&b, "- Primary language: %s\n", nonEmpty(repo.Language, "(unknown)"))
	if len(repo.Topics) > 0 {
		fmt.Fprintf(&b, "- Topics: %s\n", strings.Join(repo.Topics, ", "))
	}
	if repo.License != "" {
		fmt.Fprintf(&b, "- License: %s\n", repo.License)
	}

	files := cc.Files
	if len(files) > promptFileLimit {
		files = files[:promptFileLimit]
	}
	b.WriteString("\nTop-level files:\n")
	if len(files) == 0 {
		b.WriteString("- (listing unavailable)\n")
	}
	for _, f := range files {
		b.WriteString("- " + f + "\n")
	}

	b.WriteString("\nUser requirements:\n")
	fmt.Fprintf(&b, "- Template description: %s\n", cc.UserDescription)
	if uc := cc.UserContext; uc != nil {
		writeField(&b, "Project name", uc.ProjectName)
		writeField(&b, "Preferred style", uc.PreferredStyle)
		writeField(&b, "Deployment preference", uc.DeploymentPreference)
		writeField(&b, "Target audience", uc.TargetAudience)
		if len(uc.AdditionalFeatures) > 0 {
			writeField(&b, "Additional features", strings.Join(uc.AdditionalFeatures, ", "))
		}
	}

	b.WriteString("\nReturn the JSON object now.")
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func nonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
