package service

import (
	"context"
	"time"

	"template-scout/internal/adapter/cache"
	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"
	"template-scout/internal/port"

	"go.uber.org/zap"
)

// RetryPolicy 详情和目录接口的重试参数，线性退避 attempt×Delay
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy 3 次，间隔 1s、2s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second}
}

func (p RetryPolicy) options() []common.Option {
	return []common.Option{
		common.WithMaxAttempts(p.Attempts),
		common.WithInitialDelay(p.Delay),
		common.WithBackoff(common.LinearBackoff),
		common.WithRetryIf(retryable),
	}
}

// retryable 限流、不存在和参数错误都不自动重试
func retryable(err error) bool {
	return !common.HasCode(err, common.ErrCodeNotFound) &&
		!common.HasCode(err, common.ErrCodeRateLimited) &&
		!common.HasCode(err, common.ErrCodeInvalidInput)
}

// RepoService 带缓存和重试的单仓库查询
type RepoService struct {
	fetcher port.RepoFetcher
	cache   port.Cache
	ttls    cache.TTLs
	retry   RetryPolicy
	log     *zap.Logger
}

// NewRepoService 创建仓库查询服务
func NewRepoService(fetcher port.RepoFetcher, c port.Cache, ttls cache.TTLs, retry RetryPolicy, log *zap.Logger) *RepoService {
	if retry.Attempts <= 0 {
		retry.Attempts = DefaultRetryPolicy().Attempts
	}
	if retry.Delay <= 0 {
		retry.Delay = DefaultRetryPolicy().Delay
	}
	return &RepoService{
		fetcher: fetcher,
		cache:   c,
		ttls:    ttls,
		retry:   retry,
		log:     logger.OrNop(log),
	}
}

// GetRepoDetails 仓库详情，重试用尽后返回错误
func (s *RepoService) GetRepoDetails(ctx context.Context, rawURL string) (*domain.RepoDetails, error) {
	ref, err := parseRef(rawURL)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, ref)
}

// GetRepoStructure 根目录列表，重试用尽时降级为空列表
func (s *RepoService) GetRepoStructure(ctx context.Context, rawURL string) ([]domain.FileEntry, error) {
	ref, err := parseRef(rawURL)
	if err != nil {
		return nil, err
	}
	return s.structure(ctx, ref)
}

func parseRef(rawURL string) (domain.RepoRef, error) {
	ref, err := domain.ParseRepoURL(rawURL)
	if err != nil {
		return domain.RepoRef{}, common.WrapError(common.ErrCodeInvalidInput, "无法解析仓库地址: "+rawURL, err)
	}
	return ref, nil
}

func refParams(ref domain.RepoRef) map[string]string {
	return map[string]string{"owner": ref.Owner, "name": ref.Name}
}

func (s *RepoService) details(ctx context.Context, ref domain.RepoRef) (*domain.RepoDetails, error) {
	key := s.cache.Key("repo", refParams(ref))
	var cached domain.RepoDetails
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	var details *domain.RepoDetails
	err := common.Do(ctx, func() error {
		d, err := s.fetcher.GetRepository(ctx, ref)
		if err != nil {
			s.log.Debug("获取仓库详情失败", zap.String("repo", ref.FullName()), zap.Error(err))
			return err
		}
		details = d
		return nil
	}, s.retry.options()...)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, details, s.ttls.Details)
	return details, nil
}

func (s *RepoService) structure(ctx context.Context, ref domain.RepoRef) ([]domain.FileEntry, error) {
	key := s.cache.Key("contents", refParams(ref))
	var cached []domain.FileEntry
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	var entries []domain.FileEntry
	attempts := 0
	err := common.Do(ctx, func() error {
		attempts++
		e, err := s.fetcher.GetContents(ctx, ref)
		if err != nil {
			return err
		}
		entries = e
		return nil
	}, s.retry.options()...)
	if err != nil {
		// 只有真正重试用尽才降级，取消和不可重试的错误照常返回
		if ctx.Err() != nil || !retryable(err) || attempts < s.retry.Attempts {
			return nil, err
		}
		s.log.Warn("目录结构获取失败，降级为空列表",
			zap.String("repo", ref.FullName()),
			zap.String("code", common.ErrCodeFetchDegraded),
			zap.Error(err),
		)
		return []domain.FileEntry{}, nil
	}
	if entries == nil {
		entries = []domain.FileEntry{}
	}

	s.cache.Set(ctx, key, entries, s.ttls.Structure)
	return entries, nil
}

func (s *RepoService) languages(ctx context.Context, ref domain.RepoRef) (map[string]int, error) {
	key := s.cache.Key("languages", refParams(ref))
	var cached map[string]int
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	langs, err := s.fetcher.GetLanguages(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, langs, s.ttls.Languages)
	return langs, nil
}

// readme 不存在时返回 ok=false 而不是错误
func (s *RepoService) readme(ctx context.Context, ref domain.RepoRef) (string, bool, error) {
	key := s.cache.Key("readme", refParams(ref))
	var cached readmeEntry
	if s.cache.Get(ctx, key, &cached) {
		return cached.Content, cached.Found, nil
	}

	content, err := s.fetcher.GetReadme(ctx, ref)
	switch {
	case common.HasCode(err, common.ErrCodeNotFound):
		s.cache.Set(ctx, key, readmeEntry{}, s.ttls.Readme)
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	s.cache.Set(ctx, key, readmeEntry{Content: content, Found: true}, s.ttls.Readme)
	return content, true, nil
}

type readmeEntry struct {
	Content string `json:"content"`
	Found   bool   `json:"found"`
}
