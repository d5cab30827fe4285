package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"template-scout/internal/domain"
)

// ecosystem 一种构建体系：识别它的清单文件和对应的安装、启动命令
type ecosystem struct {
	tech      string
	manifests []string
	install   string
	run       string
	extra     string
}

// 顺序即输出顺序
var ecosystems = []ecosystem{
	{tech: "Node.js", manifests: []string{"package.json"}, install: "npm install", run: "npm run dev", extra: "Update React/Vue components and pages"},
	{tech: "Python", manifests: []string{"requirements.txt"}, install: "pip install -r requirements.txt", run: "python app.py", extra: "Modify Flask/Django settings"},
	{tech: "Python", manifests: []string{"pyproject.toml"}, install: "pip install -e .", extra: "Rename the package in pyproject.toml"},
	{tech: "Python", manifests: []string{"Pipfile"}, install: "pipenv install", extra: "Modify Flask/Django settings"},
	{tech: "Ruby", manifests: []string{"Gemfile"}, install: "bundle install", run: "bundle exec rails server", extra: "Update Rails configuration"},
	{tech: "Go", manifests: []string{"go.mod"}, install: "go mod download", run: "go run .", extra: "Change the module path in go.mod"},
	{tech: "Rust", manifests: []string{"Cargo.toml"}, install: "cargo build", run: "cargo run", extra: "Rename the crate in Cargo.toml"},
	{tech: "PHP", manifests: []string{"composer.json"}, install: "composer install", run: "php -S localhost:8000", extra: "Update the composer package name"},
	{tech: "Maven", manifests: []string{"pom.xml"}, install: "mvn install", run: "mvn package", extra: "Update groupId and artifactId in pom.xml"},
	{tech: "Gradle", manifests: []string{"build.gradle", "build.gradle.kts"}, install: "./gradlew build", run: "./gradlew run", extra: "Update the Gradle project group and name"},
	{tech: "Docker", manifests: []string{"Dockerfile"}, install: "docker build -t app .", extra: "Review container ports and environment"},
	{tech: "Docker", manifests: []string{"docker-compose.yml", "docker-compose.yaml", "compose.yaml", "compose.yml"}, run: "docker compose up", extra: "Review container ports and environment"},
}

// configFile 需要改动的配置文件，前缀匹配
type configFile struct {
	prefix string
	tech   string
	extra  string
}

var configFiles = []configFile{
	{prefix: "tailwind.config.", tech: "Tailwind CSS", extra: "Adjust the theme in the Tailwind config"},
	{prefix: "next.config.", tech: "Next.js", extra: "Review routes and settings in the Next.js config"},
	{prefix: "vite.config.", tech: "Vite", extra: "Review the Vite build settings"},
	{prefix: ".env.example", extra: "Copy .env.example to .env and fill in your own values"},
}

var genericPoints = []string{
	"Update project name and description",
	"Modify color scheme and styling",
	"Replace placeholder content with your own",
	"Configure environment variables",
}

// Engine 不依赖任何外部服务的规则引擎，总能给出方案
type Engine struct{}

// NewEngine 创建规则引擎
func NewEngine() *Engine { return &Engine{} }

// Name 策略名
func (e *Engine) Name() string { return "rules" }

// Convert 根据根目录文件推断安装和启动命令，不会失败
func (e *Engine) Convert(_ context.Context, cc *domain.ConversionContext) (*domain.ConversionPlan, error) {
	idx := indexFiles(cc.Files)
	matched := matchEcosystems(idx)
	configs := matchConfigs(cc.Files)
	uc := cc.UserContext
	if uc == nil {
		uc = &domain.UserContext{}
	}

	repoName := nonEmpty(cc.Repo.Name, shortName(cc.Repo.FullName), "template")
	dir := slug(nonEmpty(uc.ProjectName, repoName))

	plan := &domain.ConversionPlan{
		FilesToModify:       filesToModify(idx, matched, configs),
		SetupCommands:       setupCommands(cc.Repo.URL, dir, matched),
		CustomizationPoints: customizationPoints(matched, configs, uc),
		ConversionSteps:     conversionSteps(cc, repoName, matched, configs, uc),
		ExpectedOutcome:     expectedOutcome(cc, repoName, uc),
	}
	return plan, nil
}

// ManifestStack 从文件列表推断的技术栈，按识别顺序去重
func ManifestStack(files []string) []string {
	idx := indexFiles(files)
	var out []string
	seen := map[string]bool{}
	add := func(tech string) {
		if tech != "" && !seen[tech] {
			seen[tech] = true
			out = append(out, tech)
		}
	}
	for _, m := range matchEcosystems(idx) {
		add(m.tech)
	}
	for _, c := range matchConfigs(files) {
		add(c.tech)
	}
	return out
}

type matchedEcosystem struct {
	ecosystem
	manifest string // 仓库里实际的文件名
}

// indexFiles 小写文件名 -> 原始文件名
func indexFiles(files []string) map[string]string {
	idx := make(map[string]string, len(files))
	for _, f := range files {
		base := path.Base(strings.TrimSpace(f))
		if base == "." || base == "/" || base == "" {
			continue
		}
		key := strings.ToLower(base)
		if _, ok := idx[key]; !ok {
			idx[key] = base
		}
	}
	return idx
}

func matchEcosystems(idx map[string]string) []matchedEcosystem {
	var out []matchedEcosystem
	for _, eco := range ecosystems {
		for _, m := range eco.manifests {
			if name, ok := idx[strings.ToLower(m)]; ok {
				out = append(out, matchedEcosystem{ecosystem: eco, manifest: name})
				break
			}
		}
	}
	return out
}

type matchedConfig struct {
	configFile
	name string
}

func matchConfigs(files []string) []matchedConfig {
	var out []matchedConfig
	for _, cfg := range configFiles {
		for _, f := range files {
			base := path.Base(strings.TrimSpace(f))
			if strings.HasPrefix(strings.ToLower(base), cfg.prefix) {
				out = append(out, matchedConfig{configFile: cfg, name: base})
				break
			}
		}
	}
	return out
}

func filesToModify(idx map[string]string, matched []matchedEcosystem, configs []matchedConfig) []string {
	var out orderedList
	for _, m := range matched {
		out.add(m.manifest)
	}
	out.add(nonEmpty(idx["readme.md"], "README.md"))
	for _, c := range configs {
		out.add(c.name)
	}
	return out.items
}

func setupCommands(repoURL, dir string, matched []matchedEcosystem) []string {
	var out orderedList
	if repoURL == "" {
		out.add("mkdir " + dir)
	} else {
		out.add(fmt.Sprintf("git clone %s %s", repoURL, dir))
	}
	out.add("cd " + dir)
	for _, m := range matched {
		out.add(m.install)
	}
	for _, m := range matched {
		out.add(m.run)
	}
	return out.items
}

func customizationPoints(matched []matchedEcosystem, configs []matchedConfig, uc *domain.UserContext) []string {
	var out orderedList
	for _, p := range genericPoints {
		out.add(p)
	}
	for _, m := range matched {
		out.add(m.extra)
	}
	for _, c := range configs {
		out.add(c.extra)
	}
	if uc.PreferredStyle != "" {
		out.add("Apply a " + uc.PreferredStyle + " visual style")
	}
	if uc.TargetAudience != "" {
		out.add("Tailor copy and onboarding for " + uc.TargetAudience)
	}
	if uc.DeploymentPreference != "" {
		out.add("Configure deployment for " + uc.DeploymentPreference)
	}
	for _, f := range uc.AdditionalFeatures {
		if f = strings.TrimSpace(f); f != "" {
			out.add("Add " + f)
		}
	}
	return out.items
}

func conversionSteps(cc *domain.ConversionContext, repoName string, matched []matchedEcosystem, configs []matchedConfig, uc *domain.UserContext) []string {
	var out orderedList
	out.add(fmt.Sprintf("Clone %s and remove its git history", repoName))

	if len(matched) > 0 {
		var tools []string
		for _, m := range matched {
			if m.install != "" {
				tools = append(tools, "`"+m.install+"`")
			}
		}
		if len(tools) > 0 {
			out.add("Install dependencies with " + strings.Join(tools, " and "))
		}
		var manifests []string
		for _, m := range matched {
			manifests = append(manifests, m.manifest)
		}
		out.add("Update " + strings.Join(manifests, ", ") + " with your project name and metadata")
	} else {
		out.add("Install dependencies following the repository README")
	}

	for _, c := range configs {
		if c.prefix == ".env.example" {
			out.add("Copy .env.example to .env and set your own values")
			break
		}
	}

	if desc := strings.TrimSpace(cc.UserDescription); desc != "" {
		out.add("Rewrite README.md to describe " + desc)
	} else {
		out.add("Rewrite README.md for your project")
	}

	if uc.PreferredStyle != "" {
		out.add("Restyle the UI with a " + uc.PreferredStyle + " look")
	} else {
		out.add("Customize styling and branding")
	}
	for _, f := range uc.AdditionalFeatures {
		if f = strings.TrimSpace(f); f != "" {
			out.add("Implement " + f)
		}
	}
	out.add("Run the project locally and verify it works")
	out.add("Deploy to " + nonEmpty(uc.DeploymentPreference, "your preferred hosting platform"))

	for i := range out.items {
		out.items[i] = fmt.Sprintf("%d. %s", i+1, out.items[i])
	}
	return out.items
}

func expectedOutcome(cc *domain.ConversionContext, repoName string, uc *domain.UserContext) string {
	desc := nonEmpty(strings.TrimSpace(cc.UserDescription), "project template")

	var b strings.Builder
	fmt.Fprintf(&b, "A fully functional %s", desc)
	if uc.ProjectName != "" {
		fmt.Fprintf(&b, " named %s", uc.ProjectName)
	}
	fmt.Fprintf(&b, " based on the %s repository", repoName)
	if cc.Repo.Language != "" {
		fmt.Fprintf(&b, " (%s)", cc.Repo.Language)
	}
	if uc.TargetAudience != "" {
		fmt.Fprintf(&b, ", built for %s", uc.TargetAudience)
	}
	if uc.DeploymentPreference != "" {
		fmt.Fprintf(&b, ", ready to deploy on %s", uc.DeploymentPreference)
	}
	b.WriteString(", customized for your specific needs.")
	return b.String()
}

// orderedList 去重并保持插入顺序，忽略空串
type orderedList struct {
	items []string
	seen  map[string]bool
}

func (l *orderedList) add(s string) {
	if s == "" {
		return
	}
	if l.seen == nil {
		l.seen = map[string]bool{}
	}
	if l.seen[s] {
		return
	}
	l.seen[s] = true
	l.items = append(l.items, s)
}

func shortName(fullName string) string {
	if i := strings.LastIndex(fullName, "/"); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "template"
	}
	return out
}

func nonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
