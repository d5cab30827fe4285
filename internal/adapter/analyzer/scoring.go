package analyzer

// ScoringConfig 打分常量，均为经验值，可通过配置覆盖
type ScoringConfig struct {
	StarExponent float64 `mapstructure:"star_exponent"`
	StarCap      float64 `mapstructure:"star_cap"`
	ForkExponent float64 `mapstructure:"fork_exponent"`
	ForkCap      float64 `mapstructure:"fork_cap"`
	QualityCap   float64 `mapstructure:"quality_cap"`

	DescriptionBonus float64 `mapstructure:"description_bonus"`
	ReadmeBonus      float64 `mapstructure:"readme_bonus"`
	LicenseBonus     float64 `mapstructure:"license_bonus"`

	// 距离最近一次更新的天数阈值
	FreshDays          int     `mapstructure:"fresh_days"`
	RecentDays         int     `mapstructure:"recent_days"`
	StaleDays          int     `mapstructure:"stale_days"`
	RecencyBonusFresh  float64 `mapstructure:"recency_bonus_fresh"`
	RecencyBonusRecent float64 `mapstructure:"recency_bonus_recent"`
	RecencyBonusStale  float64 `mapstructure:"recency_bonus_stale"`

	// open_issues / watchers
	IssueRatioExcellent float64 `mapstructure:"issue_ratio_excellent"`
	IssueRatioGood      float64 `mapstructure:"issue_ratio_good"`
	IssueBonusExcellent float64 `mapstructure:"issue_bonus_excellent"`
	IssueBonusGood      float64 `mapstructure:"issue_bonus_good"`

	MaxTechStack      int `mapstructure:"max_tech_stack"`
	MaxExtraLanguages int `mapstructure:"max_extra_languages"`
	MaxTopics         int `mapstructure:"max_topics"`

	SmallSizeKB  int `mapstructure:"small_size_kb"`
	MediumSizeKB int `mapstructure:"medium_size_kb"`
	EasyMax      int `mapstructure:"easy_max"`
	MediumMax    int `mapstructure:"medium_max"`

	MinDescriptionLen  int `mapstructure:"min_description_len"`
	PopularStars       int `mapstructure:"popular_stars"`
	HighlyPopularStars int `mapstructure:"highly_popular_stars"`
	SummaryMaxLen      int `mapstructure:"summary_max_len"`
}

// DefaultScoringConfig 默认打分常量
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		StarExponent: 0.3,
		StarCap:      10,
		ForkExponent: 0.25,
		ForkCap:      5,
		QualityCap:   25,

		DescriptionBonus: 2,
		ReadmeBonus:      3,
		LicenseBonus:     2,

		FreshDays:          30,
		RecentDays:         90,
		StaleDays:          365,
		RecencyBonusFresh:  5,
		RecencyBonusRecent: 3,
		RecencyBonusStale:  1,

		IssueRatioExcellent: 0.1,
		IssueRatioGood:      0.3,
		IssueBonusExcellent: 2,
		IssueBonusGood:      1,

		MaxTechStack:      8,
		MaxExtraLanguages: 5,
		MaxTopics:         5,

		SmallSizeKB:  1024,
		MediumSizeKB: 10240,
		EasyMax:      2,
		MediumMax:    4,

		MinDescriptionLen:  20,
		PopularStars:       1000,
		HighlyPopularStars: 10000,
		SummaryMaxLen:      200,
	}
}

// withDefaults 全零配置等同默认配置；否则指数、上限和阈值的零值回退到默认值，
// 加分项按原值使用，0 表示关闭该项
func (c ScoringConfig) withDefaults() ScoringConfig {
	d := DefaultScoringConfig()
	if c == (ScoringConfig{}) {
		return d
	}
	fillFloat(&c.StarExponent, d.StarExponent)
	fillFloat(&c.StarCap, d.StarCap)
	fillFloat(&c.ForkExponent, d.ForkExponent)
	fillFloat(&c.ForkCap, d.ForkCap)
	fillFloat(&c.QualityCap, d.QualityCap)
	fillInt(&c.FreshDays, d.FreshDays)
	fillInt(&c.RecentDays, d.RecentDays)
	fillInt(&c.StaleDays, d.StaleDays)
	fillFloat(&c.IssueRatioExcellent, d.IssueRatioExcellent)
	fillFloat(&c.IssueRatioGood, d.IssueRatioGood)
	fillInt(&c.MaxTechStack, d.MaxTechStack)
	fillInt(&c.MaxExtraLanguages, d.MaxExtraLanguages)
	fillInt(&c.MaxTopics, d.MaxTopics)
	fillInt(&c.SmallSizeKB, d.SmallSizeKB)
	fillInt(&c.MediumSizeKB, d.MediumSizeKB)
	fillInt(&c.EasyMax, d.EasyMax)
	fillInt(&c.MediumMax, d.MediumMax)
	fillInt(&c.MinDescriptionLen, d.MinDescriptionLen)
	fillInt(&c.PopularStars, d.PopularStars)
	fillInt(&c.HighlyPopularStars, d.HighlyPopularStars)
	fillInt(&c.SummaryMaxLen, d.SummaryMaxLen)
	return c
}

func fillFloat(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

func fillInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
