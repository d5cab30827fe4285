package domain

import (
	"encoding/json"
	"time"
)

// Difficulty 表示把仓库改造成模板的难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid 判断难度是否为三个合法值之一
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// SearchFilters 搜索过滤条件，nil 表示未设置
type SearchFilters struct {
	Language   string `json:"language,omitempty"`
	MinStars   *int   `json:"min_stars,omitempty"`
	MaxAgeDays *int   `json:"max_age_days,omitempty"`
}

// Metrics 仓库的基础指标
type Metrics struct {
	Stars      int       `json:"stars"`
	Forks      int       `json:"forks"`
	Watchers   int       `json:"watchers"`
	OpenIssues int       `json:"open_issues"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CandidateRepository 搜索接口返回、尚未打分的候选仓库
type CandidateRepository struct {
	Name        string          `json:"name"` // 例如 "acme/widget"
	URL         string          `json:"url"`
	Homepage    string          `json:"homepage,omitempty"`
	Metrics     Metrics         `json:"metrics"`
	Topics      []string        `json:"topics"`
	Language    string          `json:"language"`
	Size        int             `json:"size"` // KB
	License     string          `json:"license,omitempty"`
	Description string          `json:"description"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// ScoredRepository 经过富化和打分后的仓库
type ScoredRepository struct {
	CandidateRepository
	QualityScore            float64    `json:"quality_score"`
	RelevanceScore          float64    `json:"relevance_score"`
	CombinedScore           float64    `json:"combined_score"`
	CustomizationDifficulty Difficulty `json:"customization_difficulty"`
	TechStack               []string   `json:"tech_stack"`
	VisualSummary           string     `json:"visual_summary"`
	DemoURL                 string     `json:"demo_url,omitempty"`
	ScreenshotURL           string     `json:"screenshot_url,omitempty"` // GitHub 社交预览图
}

// RepoDetails 仓库详情接口的结果
type RepoDetails struct {
	Name          string          `json:"name"`
	FullName      string          `json:"full_name"`
	URL           string          `json:"url"`
	Homepage      string          `json:"homepage,omitempty"`
	Description   string          `json:"description"`
	Language      string          `json:"language"`
	Topics        []string        `json:"topics"`
	License       string          `json:"license,omitempty"`
	DefaultBranch string          `json:"default_branch"`
	Size          int             `json:"size"`
	Metrics       Metrics         `json:"metrics"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

// FileEntry 仓库根目录下的一个条目
type FileEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // file / dir
	Size int    `json:"size"`
}

// UserContext 用户对模板的个性化要求
type UserContext struct {
	ProjectName          string   `json:"project_name,omitempty"`
	PreferredStyle       string   `json:"preferred_style,omitempty"`
	DeploymentPreference string   `json:"deployment_preference,omitempty"`
	TargetAudience       string   `json:"target_audience,omitempty"`
	AdditionalFeatures   []string `json:"additional_features,omitempty"`
}

// MaxContextFiles 发给转换策略的文件列表上限
const MaxContextFiles = 50

// ConversionContext 转换策略的输入
type ConversionContext struct {
	Repo            RepoDetails  `json:"repo"`
	Files           []string     `json:"files"`
	UserDescription string       `json:"user_description"`
	UserContext     *UserContext `json:"user_context,omitempty"`
}

// ConversionPlan 把仓库改造成个性化模板的五段式方案
type ConversionPlan struct {
	ConversionSteps     []string `json:"conversion_steps"`
	FilesToModify       []string `json:"files_to_modify"`
	CustomizationPoints []string `json:"customization_points"`
	SetupCommands       []string `json:"setup_commands"`
	ExpectedOutcome     string   `json:"expected_outcome"`
}

// Complete 五个字段必须全部有内容
func (p *ConversionPlan) Complete() bool {
	if p == nil {
		return false
	}
	return len(p.ConversionSteps) > 0 &&
		len(p.FilesToModify) > 0 &&
		len(p.CustomizationPoints) > 0 &&
		len(p.SetupCommands) > 0 &&
		p.ExpectedOutcome != ""
}

// ConversionResult 交给外部持久化方的完整结果
type ConversionResult struct {
	Plan          ConversionPlan `json:"plan"`
	TemplateName  string         `json:"template_name"`
	TechStack     []string       `json:"tech_stack"`
	SourceRepo    string         `json:"source_repo"`
	SourceRepoURL string         `json:"source_repo_url"`
	RequesterID   string         `json:"requester_id,omitempty"`
	Strategy      string         `json:"strategy"`
}

// RepositoryRecord 持久化到数据库的仓库快照，(requester_id, github_url) 唯一
type RepositoryRecord struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	RequesterID string    `json:"requester_id" gorm:"uniqueIndex:idx_requester_url;not null"`
	GithubURL   string    `json:"github_url" gorm:"uniqueIndex:idx_requester_url;not null"`
	RepoName    string    `json:"repo_name" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Payload     []byte    `json:"payload" gorm:"type:jsonb"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 对应原有的 repositories 表
func (RepositoryRecord) TableName() string {
	return "repositories"
}
