package analyzer

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"template-scout/internal/domain"
)

// Enrichment 增强模式下额外拉取的数据，简单模式传 nil
type Enrichment struct {
	Languages map[string]int // 语言 -> 字节数
	Readme    string
	HasReadme bool
}

// RepoAnalyzer 对单个候选仓库做纯计算的富化打分
type RepoAnalyzer struct {
	cfg     ScoringConfig
	nowFunc func() time.Time
}

// NewRepoAnalyzer 创建新的分析器实例
func NewRepoAnalyzer(cfg ScoringConfig) *RepoAnalyzer {
	return &RepoAnalyzer{
		cfg:     cfg.withDefaults(),
		nowFunc: time.Now, // 便于测试注入当前时间
	}
}

// Config 返回生效中的打分常量
func (a *RepoAnalyzer) Config() ScoringConfig {
	return a.cfg
}

func (a *RepoAnalyzer) now() time.Time {
	if a != nil && a.nowFunc != nil {
		return a.nowFunc()
	}
	return time.Now()
}

// Analyze 计算质量分、技术栈、改造难度、摘要和 demo 地址
func (a *RepoAnalyzer) Analyze(repo domain.CandidateRepository, extra *Enrichment) domain.ScoredRepository {
	if extra == nil {
		extra = &Enrichment{}
	}
	// 统一为 UTC 并去掉单调时钟读数，和缓存解码后的值保持一致
	repo.Metrics.UpdatedAt = repo.Metrics.UpdatedAt.UTC()
	daysSinceUpdate := a.daysSince(repo.Metrics.UpdatedAt)

	scored := domain.ScoredRepository{CandidateRepository: repo}
	scored.QualityScore = a.QualityScore(repo, extra.HasReadme, daysSinceUpdate)
	scored.TechStack = a.TechStack(repo, extra.Languages)
	scored.CustomizationDifficulty = a.Difficulty(repo, extra, daysSinceUpdate)
	scored.VisualSummary = a.VisualSummary(repo, daysSinceUpdate)
	scored.DemoURL = a.DemoURL(repo, extra.Readme)
	scored.ScreenshotURL = ScreenshotURL(repo)
	return scored
}

// daysSince 未知的更新时间按“很久以前”处理
func (a *RepoAnalyzer) daysSince(t time.Time) float64 {
	if t.IsZero() {
		return math.MaxFloat64
	}
	days := a.now().Sub(t).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// QualityScore 质量分，范围 [0, QualityCap]
func (a *RepoAnalyzer) QualityScore(repo domain.CandidateRepository, hasReadme bool, daysSinceUpdate float64) float64 {
	c := a.cfg
	m := repo.Metrics

	score := math.Min(c.StarCap, math.Pow(float64(max(m.Stars, 0)), c.StarExponent))
	score += math.Min(c.ForkCap, math.Pow(float64(max(m.Forks, 0)), c.ForkExponent))

	if strings.TrimSpace(repo.Description) != "" {
		score += c.DescriptionBonus
	}
	if hasReadme {
		score += c.ReadmeBonus
	}

	switch {
	case daysSinceUpdate < float64(c.FreshDays):
		score += c.RecencyBonusFresh
	case daysSinceUpdate < float64(c.RecentDays):
		score += c.RecencyBonusRecent
	case daysSinceUpdate < float64(c.StaleDays):
		score += c.RecencyBonusStale
	}

	if repo.License != "" {
		score += c.LicenseBonus
	}

	if m.Watchers > 0 {
		ratio := float64(m.OpenIssues) / float64(m.Watchers)
		switch {
		case ratio < c.IssueRatioExcellent:
			score += c.IssueBonusExcellent
		case ratio < c.IssueRatioGood:
			score += c.IssueBonusGood
		}
	}

	return math.Max(0, math.Min(c.QualityCap, score))
}

// TechStack 主语言 + 按字节占比的其他语言 + topics + 关键词匹配，大小写不敏感去重
func (a *RepoAnalyzer) TechStack(repo domain.CandidateRepository, languages map[string]int) []string {
	c := a.cfg
	stack := newOrderedSet(c.MaxTechStack)
	stack.add(repo.Language)

	if len(languages) > 0 {
		type langBytes struct {
			name  string
			bytes int
		}
		ranked := make([]langBytes, 0, len(languages))
		for name, n := range languages {
			ranked = append(ranked, langBytes{name, n})
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].bytes != ranked[j].bytes {
				return ranked[i].bytes > ranked[j].bytes
			}
			return ranked[i].name < ranked[j].name
		})
		added := 0
		for _, l := range ranked {
			if added >= c.MaxExtraLanguages {
				break
			}
			if stack.add(l.name) {
				added++
			}
		}
	}

	for i, topic := range repo.Topics {
		if i >= c.MaxTopics {
			break
		}
		stack.add(topic)
	}

	for _, kw := range MatchTechKeywords(repo.Name + " " + repo.Description) {
		stack.add(kw)
	}

	return stack.items
}

// Difficulty 改造难度，按体积、语言、文档、活跃度累计分数
func (a *RepoAnalyzer) Difficulty(repo domain.CandidateRepository, extra *Enrichment, daysSinceUpdate float64) domain.Difficulty {
	c := a.cfg
	score := 0

	switch {
	case repo.Size < c.SmallSizeKB:
		score++
	case repo.Size < c.MediumSizeKB:
		score += 2
	default:
		score += 3
	}

	lang := strings.ToLower(repo.Language)
	switch {
	case complexLanguages[lang]:
		score += 2
	case simpleLanguages[lang]:
	default:
		score++
	}

	descLen := utf8.RuneCountInString(strings.TrimSpace(repo.Description))
	if descLen > 100 && extra.HasReadme {
		score--
	} else if descLen < 20 {
		score++
	}

	if daysSinceUpdate > float64(c.StaleDays) {
		score++
	} else if daysSinceUpdate < float64(c.FreshDays) {
		score--
	}

	if len(extra.Languages) > 5 {
		score++
	}

	switch {
	case score <= c.EasyMax:
		return domain.DifficultyEasy
	case score <= c.MediumMax:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyHard
	}
}

// VisualSummary 一句话摘要，附带热度和活跃度提示
func (a *RepoAnalyzer) VisualSummary(repo domain.CandidateRepository, daysSinceUpdate float64) string {
	c := a.cfg
	desc := strings.TrimSpace(repo.Description)

	var b strings.Builder
	if utf8.RuneCountInString(desc) > c.MinDescriptionLen {
		b.WriteString(desc)
	} else {
		lang := repo.Language
		if lang == "" {
			lang = "software"
		}
		b.WriteString("A " + lang + " project")
		if topics := focusTopics(repo.Topics, 3); len(topics) > 0 {
			b.WriteString(" focused on " + strings.Join(topics, ", "))
		}
	}

	switch {
	case repo.Metrics.Stars > c.HighlyPopularStars:
		b.WriteString(" (highly popular)")
	case repo.Metrics.Stars > c.PopularStars:
		b.WriteString(" (popular)")
	}

	switch {
	case daysSinceUpdate < float64(c.FreshDays):
		b.WriteString(" (recently updated)")
	case daysSinceUpdate > float64(c.StaleDays):
		b.WriteString(" (may need updates)")
	}

	return truncateRunes(b.String(), c.SummaryMaxLen)
}

var complexLanguages = map[string]bool{
	"c": true, "c++": true, "rust": true, "go": true, "java": true, "scala": true, "haskell": true,
}

var simpleLanguages = map[string]bool{
	"python": true, "javascript": true, "html": true, "css": true,
}

var genericTopics = map[string]bool{
	"hacktoberfest": true, "awesome": true, "github": true, "open-source": true,
	"opensource": true, "project": true, "projects": true, "free": true,
}

func focusTopics(topics []string, limit int) []string {
	var out []string
	for _, t := range topics {
		if len(out) >= limit {
			break
		}
		if genericTopics[strings.ToLower(t)] {
			continue
		}
		out = append(out, t)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// orderedSet 保序、大小写不敏感、有容量上限
type orderedSet struct {
	limit int
	seen  map[string]bool
	items []string
}

func newOrderedSet(limit int) *orderedSet {
	return &orderedSet{limit: limit, seen: make(map[string]bool), items: []string{}}
}

func (s *orderedSet) add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" || len(s.items) >= s.limit {
		return false
	}
	key := strings.ToLower(v)
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.items = append(s.items, v)
	return true
}

// MergeTechStack 按顺序合并多组技术栈，大小写不敏感去重并截断
func MergeTechStack(limit int, groups ...[]string) []string {
	set := newOrderedSet(limit)
	for _, g := range groups {
		for _, v := range g {
			set.add(v)
		}
	}
	return set.items
}
