package port

import (
	"context"
	"time"

	"template-scout/internal/domain"
)

// RepoFetcher (侦察兵): 负责调用 GitHub REST 接口
// 错误统一映射为 common.AppError: RATE_LIMITED / NOT_FOUND / PROVIDER_ERROR
type RepoFetcher interface {
	// SearchRepositories 按 stars 倒序搜索，perPage 最多 15
	SearchRepositories(ctx context.Context, query string, perPage int) ([]domain.CandidateRepository, error)

	GetRepository(ctx context.Context, ref domain.RepoRef) (*domain.RepoDetails, error)

	// GetContents 仓库根目录的文件列表
	GetContents(ctx context.Context, ref domain.RepoRef) ([]domain.FileEntry, error)

	GetLanguages(ctx context.Context, ref domain.RepoRef) (map[string]int, error)

	// GetReadme 返回解码后的 README 文本
	GetReadme(ctx context.Context, ref domain.RepoRef) (string, error)
}

// Cache 尽力而为的缓存，任何后端错误都按未命中 / 空操作处理
type Cache interface {
	// Key 由接口名和参数生成稳定的缓存键
	Key(endpoint string, params map[string]string) string
	// Get 命中时把值解码进 dest 并返回 true
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// ConversionStrategy 转换方案的一种生成方式，按顺序尝试
type ConversionStrategy interface {
	Name() string
	Convert(ctx context.Context, cc *domain.ConversionContext) (*domain.ConversionPlan, error)
}

// RepositoryStore (仓库管理员): 按请求方持久化搜索到的仓库
type RepositoryStore interface {
	// UpsertRepositories 以 (requesterID, url) 为键插入或刷新
	UpsertRepositories(ctx context.Context, requesterID string, repos []domain.ScoredRepository) error

	// ListRepositories 按更新时间倒序
	ListRepositories(ctx context.Context, requesterID string, limit int) ([]domain.RepositoryRecord, error)
}

// ResultPublisher (信使): 把转换结果交给外部模板服务
type ResultPublisher interface {
	Publish(ctx context.Context, result *domain.ConversionResult) error
}
