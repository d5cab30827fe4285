package filter

import (
	"sort"
	"strings"
	"unicode"

	"template-scout/internal/domain"
)

// RankingConfig 排序和过滤用到的常量
type RankingConfig struct {
	RelevanceWeight    float64 `mapstructure:"relevance_weight"`
	QualityWeight      float64 `mapstructure:"quality_weight"`
	QualityFloor       float64 `mapstructure:"quality_floor"`
	StrictQualityFloor float64 `mapstructure:"strict_quality_floor"`
	StrictMinStars     int     `mapstructure:"strict_min_stars"` // min_stars 超过该值时使用更严格的下限
	MaxResults         int     `mapstructure:"max_results"`

	NameMatchPoints    float64 `mapstructure:"name_match_points"`
	SummaryMatchPoints float64 `mapstructure:"summary_match_points"`
	TechMatchPoints    float64 `mapstructure:"tech_match_points"`
	EasyBonus          float64 `mapstructure:"easy_bonus"`
}

// DefaultRankingConfig 默认排序常量
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		RelevanceWeight:    0.6,
		QualityWeight:      0.4,
		QualityFloor:       5.0,
		StrictQualityFloor: 8.0,
		StrictMinStars:     100,
		MaxResults:         10,
		NameMatchPoints:    2,
		SummaryMatchPoints: 1,
		TechMatchPoints:    3,
		EasyBonus:          1,
	}
}

// RepoFilter 根据相关度和质量分过滤、排序候选仓库
type RepoFilter struct {
	cfg RankingConfig
}

// NewRepoFilter 创建新的过滤器实例
// 全零配置等同默认配置；权重、阈值和条数的零值回退到默认值，
// 下限和加分项按原值使用，0 表示关闭
func NewRepoFilter(cfg RankingConfig) *RepoFilter {
	d := DefaultRankingConfig()
	if cfg == (RankingConfig{}) {
		return &RepoFilter{cfg: d}
	}
	if cfg.RelevanceWeight <= 0 && cfg.QualityWeight <= 0 {
		cfg.RelevanceWeight, cfg.QualityWeight = d.RelevanceWeight, d.QualityWeight
	}
	if cfg.StrictMinStars <= 0 {
		cfg.StrictMinStars = d.StrictMinStars
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = d.MaxResults
	}
	return &RepoFilter{cfg: cfg}
}

// Rank 计算相关度和综合分，过滤低质量仓库后排序并截断
func (f *RepoFilter) Rank(description string, filters domain.SearchFilters, repos []domain.ScoredRepository) []domain.ScoredRepository {
	words := descriptionWords(description)
	lowerDesc := strings.ToLower(description)
	floor := f.qualityFloor(filters)

	ranked := make([]domain.ScoredRepository, 0, len(repos))
	for _, repo := range repos {
		if repo.QualityScore < floor {
			continue
		}
		repo.RelevanceScore = f.relevance(words, lowerDesc, repo)
		repo.CombinedScore = f.cfg.RelevanceWeight*repo.RelevanceScore + f.cfg.QualityWeight*repo.QualityScore
		ranked = append(ranked, repo)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.Name < b.Name
	})

	if len(ranked) > f.cfg.MaxResults {
		ranked = ranked[:f.cfg.MaxResults]
	}
	return ranked
}

func (f *RepoFilter) qualityFloor(filters domain.SearchFilters) float64 {
	if filters.MinStars != nil && *filters.MinStars > f.cfg.StrictMinStars {
		return f.cfg.StrictQualityFloor
	}
	return f.cfg.QualityFloor
}

func (f *RepoFilter) relevance(words []string, lowerDesc string, repo domain.ScoredRepository) float64 {
	nameTokens := tokenSet(repoShortName(repo.Name))
	summaryTokens := tokenSet(repo.VisualSummary)

	score := 0.0
	for _, w := range words {
		if nameTokens[w] {
			score += f.cfg.NameMatchPoints
		}
		if summaryTokens[w] {
			score += f.cfg.SummaryMatchPoints
		}
	}
	for _, tech := range repo.TechStack {
		if tech != "" && strings.Contains(lowerDesc, strings.ToLower(tech)) {
			score += f.cfg.TechMatchPoints
		}
	}
	if repo.CustomizationDifficulty == domain.DifficultyEasy {
		score += f.cfg.EasyBonus
	}
	return score
}

// descriptionWords 去重后的小写词，长度大于 2
func descriptionWords(description string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range tokenize(description) {
		if len([]rune(w)) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

func repoShortName(fullName string) string {
	if i := strings.LastIndex(fullName, "/"); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}
