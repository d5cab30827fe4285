package filter

import (
	"fmt"
	"testing"

	"template-scout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(name string, quality float64) domain.ScoredRepository {
	return domain.ScoredRepository{
		CandidateRepository:     domain.CandidateRepository{Name: name},
		QualityScore:            quality,
		CustomizationDifficulty: domain.DifficultyMedium,
	}
}

func intPtr(v int) *int { return &v }

func TestRepoFilter_QualityFloor(t *testing.T) {
	f := NewRepoFilter(DefaultRankingConfig())

	tests := []struct {
		name     string
		filters  domain.SearchFilters
		repos    []domain.ScoredRepository
		expected []string
	}{
		{
			name:     "默认下限 5.0",
			repos:    []domain.ScoredRepository{scored("a/low", 4.9), scored("a/edge", 5.0)},
			expected: []string{"a/edge"},
		},
		{
			name:     "min_stars > 100 时下限提高到 8.0",
			filters:  domain.SearchFilters{MinStars: intPtr(150)},
			repos:    []domain.ScoredRepository{scored("a/low", 7.0), scored("a/edge", 8.0)},
			expected: []string{"a/edge"},
		},
		{
			name:     "min_stars 恰好 100 不提高下限",
			filters:  domain.SearchFilters{MinStars: intPtr(100)},
			repos:    []domain.ScoredRepository{scored("a/mid", 6.0)},
			expected: []string{"a/mid"},
		},
		{
			name:     "全部被过滤",
			repos:    []domain.ScoredRepository{scored("a/low", 1)},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Rank("anything", tt.filters, tt.repos)
			names := make([]string, 0, len(result))
			for _, r := range result {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestRepoFilter_Relevance(t *testing.T) {
	f := NewRepoFilter(DefaultRankingConfig())

	repo := domain.ScoredRepository{
		CandidateRepository:     domain.CandidateRepository{Name: "acme/todo-app"},
		QualityScore:            10,
		CustomizationDifficulty: domain.DifficultyEasy,
		TechStack:               []string{"JavaScript", "React"},
		VisualSummary:           "A simple React todo list",
	}

	result := f.Rank("a simple todo app built with React", domain.SearchFilters{}, []domain.ScoredRepository{repo})
	require.Len(t, result, 1)

	// 名称 todo/app 各 +2，摘要 simple/todo/react 各 +1，技术栈 React +3，easy +1
	assert.Equal(t, 11.0, result[0].RelevanceScore)
	assert.InDelta(t, 0.6*11+0.4*10, result[0].CombinedScore, 1e-9)
}

func TestRepoFilter_Ordering(t *testing.T) {
	f := NewRepoFilter(DefaultRankingConfig())

	repos := []domain.ScoredRepository{
		scored("b/x", 10),
		scored("a/x", 10),
		scored("c/x", 12),
	}

	result := f.Rank("zzz", domain.SearchFilters{}, repos)
	require.Len(t, result, 3)
	assert.Equal(t, "c/x", result[0].Name)
	assert.Equal(t, "a/x", result[1].Name)
	assert.Equal(t, "b/x", result[2].Name)

	// 输入顺序不影响输出
	reversed := []domain.ScoredRepository{repos[2], repos[1], repos[0]}
	assert.Equal(t, result, f.Rank("zzz", domain.SearchFilters{}, reversed))
}

func TestRepoFilter_TruncatesAndSorts(t *testing.T) {
	f := NewRepoFilter(DefaultRankingConfig())

	var repos []domain.ScoredRepository
	for i := 0; i < 15; i++ {
		repos = append(repos, scored(fmt.Sprintf("r/%02d", i), 6+float64(i)))
	}

	result := f.Rank("some app", domain.SearchFilters{}, repos)
	assert.Len(t, result, 10)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].CombinedScore, result[i].CombinedScore)
	}
	assert.Equal(t, "r/14", result[0].Name)
}

func TestNewRepoFilter_Defaults(t *testing.T) {
	f := NewRepoFilter(RankingConfig{})
	assert.Equal(t, DefaultRankingConfig(), f.cfg)

	custom := NewRepoFilter(RankingConfig{RelevanceWeight: 0.5, QualityWeight: 0.5, MaxResults: 3})
	assert.Equal(t, 0.5, custom.cfg.RelevanceWeight)
	assert.Equal(t, 3, custom.cfg.MaxResults)
	assert.Equal(t, 100, custom.cfg.StrictMinStars)
	assert.Equal(t, 0.0, custom.cfg.QualityFloor)
}

func TestNewRepoFilter_ZeroDisablesBonus(t *testing.T) {
	cfg := DefaultRankingConfig()
	cfg.EasyBonus = 0
	cfg.QualityFloor = 0
	f := NewRepoFilter(cfg)

	repo := scored("a/zzz", 0.5)
	repo.CustomizationDifficulty = domain.DifficultyEasy

	result := f.Rank("nothing matches", domain.SearchFilters{}, []domain.ScoredRepository{repo})
	require.Len(t, result, 1)
	assert.Equal(t, 0.0, result[0].RelevanceScore)

	withBonus := NewRepoFilter(DefaultRankingConfig())
	repo.QualityScore = 6
	result = withBonus.Rank("nothing matches", domain.SearchFilters{}, []domain.ScoredRepository{repo})
	require.Len(t, result, 1)
	assert.Equal(t, 1.0, result[0].RelevanceScore)
}
