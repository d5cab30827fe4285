package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	// MaxPerPage 单次搜索返回的最大条数
	MaxPerPage     = 15
	defaultTimeout = 30 * time.Second
)

// Fetcher 实现了 port.RepoFetcher 接口
type Fetcher struct {
	client  *github.Client
	timeout time.Duration
	log     *zap.Logger
}

// Option 配置 Fetcher
type Option func(*Fetcher)

// WithTimeout 单次调用超时，默认 30s
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBaseURL 指向 GitHub Enterprise 或测试服务器
func WithBaseURL(raw string) Option {
	return func(f *Fetcher) {
		if raw == "" {
			return
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			f.client.BaseURL = u
		}
	}
}

// WithLogger 注入日志器
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		f.log = logger.OrNop(l)
	}
}

// NewFetcher 初始化 GitHub 客户端
// token 为空时匿名访问，限制 60次/小时
func NewFetcher(token string, opts ...Option) *Fetcher {
	var client *github.Client

	if token == "" {
		client = github.NewClient(nil)
	} else {
		ctx := context.Background()
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(ctx, ts)
		client = github.NewClient(tc)
	}

	f := &Fetcher{client: client, timeout: defaultTimeout, log: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SearchRepositories 按 stars 倒序搜索仓库
func (f *Fetcher) SearchRepositories(ctx context.Context, query string, perPage int) ([]domain.CandidateRepository, error) {
	if strings.TrimSpace(query) == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "搜索条件不能为空")
	}
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	opts := &github.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	result, _, err := f.client.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, mapError("搜索仓库", err)
	}

	repos := make([]domain.CandidateRepository, 0, len(result.Repositories))
	for _, item := range result.Repositories {
		repos = append(repos, toCandidate(item))
	}

	f.log.Debug("GitHub 搜索完成",
		zap.String("query", query),
		zap.Int("count", len(repos)),
	)
	return repos, nil
}

// GetRepository 获取仓库详情
func (f *Fetcher) GetRepository(ctx context.Context, ref domain.RepoRef) (*domain.RepoDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	item, _, err := f.client.Repositories.Get(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, mapError("获取仓库详情 "+ref.FullName(), err)
	}

	details := toDetails(item)
	return &details, nil
}

// GetContents 获取仓库根目录列表
func (f *Fetcher) GetContents(ctx context.Context, ref domain.RepoRef) ([]domain.FileEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	file, dir, _, err := f.client.Repositories.GetContents(ctx, ref.Owner, ref.Name, "", nil)
	if err != nil {
		return nil, mapError("获取目录结构 "+ref.FullName(), err)
	}
	if file != nil && dir == nil {
		dir = []*github.RepositoryContent{file}
	}

	entries := make([]domain.FileEntry, 0, len(dir))
	for _, c := range dir {
		entries = append(entries, domain.FileEntry{
			Name: c.GetName(),
			Path: c.GetPath(),
			Type: c.GetType(),
			Size: c.GetSize(),
		})
	}
	return entries, nil
}

// GetLanguages 各语言字节数
func (f *Fetcher) GetLanguages(ctx context.Context, ref domain.RepoRef) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	langs, _, err := f.client.Repositories.ListLanguages(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, mapError("获取语言分布 "+ref.FullName(), err)
	}
	if langs == nil {
		langs = map[string]int{}
	}
	return langs, nil
}

// GetReadme 获取并解码 README
func (f *Fetcher) GetReadme(ctx context.Context, ref domain.RepoRef) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	readme, _, err := f.client.Repositories.GetReadme(ctx, ref.Owner, ref.Name, nil)
	if err != nil {
		return "", mapError("获取 README "+ref.FullName(), err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return "", common.WrapError(common.ErrCodeProvider, "README 解码失败 "+ref.FullName(), err)
	}
	return content, nil
}

// mapError 把 go-github 错误映射为带错误码的 AppError
func mapError(op string, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return common.WrapError(common.ErrCodeRateLimited, op+": GitHub 限流", err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusForbidden, http.StatusTooManyRequests:
			return common.WrapError(common.ErrCodeRateLimited, op+": GitHub 限流", err)
		case http.StatusNotFound:
			return common.WrapError(common.ErrCodeNotFound, op+": 仓库不存在", err)
		}
		return common.WrapError(common.ErrCodeProvider, fmt.Sprintf("%s: GitHub 返回 %d", op, respErr.Response.StatusCode), err)
	}

	return common.WrapError(common.ErrCodeProvider, op+": GitHub API 调用失败", err)
}

func toCandidate(item *github.Repository) domain.CandidateRepository {
	return domain.CandidateRepository{
		Name:        item.GetFullName(),
		URL:         item.GetHTMLURL(),
		Homepage:    item.GetHomepage(),
		Metrics:     toMetrics(item),
		Topics:      item.Topics,
		Language:    item.GetLanguage(),
		Size:        item.GetSize(),
		License:     licenseName(item),
		Description: item.GetDescription(),
		Raw:         rawPayload(item),
	}
}

func toDetails(item *github.Repository) domain.RepoDetails {
	metrics := toMetrics(item)
	// 详情接口才有真实的 watcher 数
	if item.SubscribersCount != nil {
		metrics.Watchers = item.GetSubscribersCount()
	}
	return domain.RepoDetails{
		Name:          item.GetName(),
		FullName:      item.GetFullName(),
		URL:           item.GetHTMLURL(),
		Homepage:      item.GetHomepage(),
		Description:   item.GetDescription(),
		Language:      item.GetLanguage(),
		Topics:        item.Topics,
		License:       licenseName(item),
		DefaultBranch: item.GetDefaultBranch(),
		Size:          item.GetSize(),
		Metrics:       metrics,
		Raw:           rawPayload(item),
	}
}

func toMetrics(item *github.Repository) domain.Metrics {
	updated := item.GetPushedAt().Time
	if u := item.GetUpdatedAt().Time; u.After(updated) {
		updated = u
	}
	return domain.Metrics{
		Stars:      item.GetStargazersCount(),
		Forks:      item.GetForksCount(),
		Watchers:   item.GetWatchersCount(),
		OpenIssues: item.GetOpenIssuesCount(),
		UpdatedAt:  updated.UTC(),
	}
}

func licenseName(item *github.Repository) string {
	lic := item.GetLicense()
	if lic == nil {
		return ""
	}
	if id := lic.GetSPDXID(); id != "" && id != "NOASSERTION" {
		return id
	}
	return lic.GetName()
}

func rawPayload(item *github.Repository) json.RawMessage {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	return raw
}
