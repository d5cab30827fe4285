package analyzer

import (
	"net/url"
	"regexp"
	"strings"

	"template-scout/internal/domain"
)

// homepage 落在这些域名上时不算 demo：代码托管、包仓库、CI / 覆盖率
var deniedHomepageHosts = []string{
	"github.com", "gitlab.com", "bitbucket.org",
	"npmjs.com", "npmjs.org", "pypi.org", "crates.io", "rubygems.org",
	"pkg.go.dev", "packagist.org", "nuget.org", "hub.docker.com",
	"travis-ci.org", "travis-ci.com", "circleci.com", "codecov.io", "coveralls.io",
}

var demoHostSuffixes = []string{
	".netlify.app", ".vercel.app", ".herokuapp.com", ".github.io",
	".pages.dev", ".web.app", ".firebaseapp.com", ".onrender.com",
	".surge.sh", ".glitch.me", ".fly.dev",
}

var (
	urlPattern     = regexp.MustCompile(`https?://[^\s<>()\[\]"'` + "`" + `]+`)
	demoHintWindow = regexp.MustCompile(`(?i)\b(demo|live|preview)\b`)
)

const previewImageBase = "https://opengraph.githubassets.com/1/"

// ScreenshotURL 由 GitHub 生成的仓库预览图地址，名称不是 owner/repo 时为空
func ScreenshotURL(repo domain.CandidateRepository) string {
	owner, name, ok := strings.Cut(repo.Name, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ""
	}
	return previewImageBase + url.PathEscape(owner) + "/" + url.PathEscape(name)
}

// DemoURL 优先使用 homepage，其次扫描描述和 README 中的部署地址
func (a *RepoAnalyzer) DemoURL(repo domain.CandidateRepository, readme string) string {
	if u := acceptHomepage(repo.Homepage); u != "" {
		return u
	}
	if u := scanDemoURL(repo.Description); u != "" {
		return u
	}
	return scanDemoURL(readme)
}

func acceptHomepage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, denied := range deniedHomepageHosts {
		if host == denied || strings.HasSuffix(host, "."+denied) {
			return ""
		}
	}
	return raw
}

func scanDemoURL(text string) string {
	if text == "" {
		return ""
	}
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		candidate := strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?")
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		for _, suffix := range demoHostSuffixes {
			if strings.HasSuffix(host, suffix) {
				return candidate
			}
		}

		// URL 前面紧挨着 demo / live / preview 字样
		start := loc[0] - 24
		if start < 0 {
			start = 0
		}
		if demoHintWindow.MatchString(text[start:loc[0]]) {
			return candidate
		}
	}
	return ""
}
