package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"template-scout/internal/adapter/analyzer"
	"template-scout/internal/adapter/filter"
	"template-scout/internal/adapter/github"
	"template-scout/internal/common"
	"template-scout/internal/domain"
	"template-scout/internal/logger"
	"template-scout/internal/port"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DiscoveryOptions 搜索流程的可调参数
type DiscoveryOptions struct {
	Enhanced    bool          // 额外拉取详情、语言和 README
	Concurrency int           // 增强模式下同时富化的仓库数
	SearchTTL   time.Duration // 排序结果的缓存时长
	SyncTimeout time.Duration // 后台持久化的超时
}

func (o DiscoveryOptions) withDefaults() DiscoveryOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.SearchTTL <= 0 {
		o.SearchTTL = 10 * time.Minute
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = 30 * time.Second
	}
	return o
}

// DiscoveryService 搜索 -> 富化打分 -> 排序 -> 缓存 + 持久化
type DiscoveryService struct {
	fetcher  port.RepoFetcher
	repos    *RepoService
	cache    port.Cache
	analyzer *analyzer.RepoAnalyzer
	ranker   *filter.RepoFilter
	store    port.RepositoryStore
	opts     DiscoveryOptions
	log      *zap.Logger

	nowFunc func() time.Time
	wg      sync.WaitGroup
}

// NewDiscoveryService store 可以为 nil，此时不做持久化
func NewDiscoveryService(
	fetcher port.RepoFetcher,
	repos *RepoService,
	c port.Cache,
	repoAnalyzer *analyzer.RepoAnalyzer,
	ranker *filter.RepoFilter,
	store port.RepositoryStore,
	opts DiscoveryOptions,
	log *zap.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		fetcher:  fetcher,
		repos:    repos,
		cache:    c,
		analyzer: repoAnalyzer,
		ranker:   ranker,
		store:    store,
		opts:     opts.withDefaults(),
		log:      logger.OrNop(log),
		nowFunc:  time.Now,
	}
}

// Search 按自然语言描述搜索并返回排好序的仓库，最多 10 个
func (s *DiscoveryService) Search(ctx context.Context, description string, filters domain.SearchFilters, requesterID string) ([]domain.ScoredRepository, error) {
	log := s.log.With(zap.String("request_id", uuid.NewString()))

	if err := validateSearch(description, filters); err != nil {
		return nil, err
	}

	query := github.BuildQuery(description, filters, s.nowFunc())
	key := s.cache.Key("search", map[string]string{
		"q":        query,
		"enhanced": strconv.FormatBool(s.opts.Enhanced),
	})

	var cached searchEntry
	if s.cache.Get(ctx, key, &cached) {
		log.Debug("搜索命中缓存", zap.String("query", query), zap.Int("count", len(cached.Ranked)))
		s.sync(ctx, log, requesterID, cached.Processed)
		return cached.Ranked, nil
	}

	candidates, err := s.fetcher.SearchRepositories(ctx, query, github.MaxPerPage)
	if err != nil {
		log.Warn("GitHub 搜索失败", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	scored, err := s.score(ctx, log, candidates)
	if err != nil {
		return nil, err
	}
	ranked := s.ranker.Rank(description, filters, scored)

	// 取消发生在结果完整之前，不写缓存也不持久化
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 持久化的是全部打过分的候选，不只是排序后的前几名
	s.cache.Set(ctx, key, searchEntry{Ranked: ranked, Processed: scored}, s.opts.SearchTTL)
	s.sync(ctx, log, requesterID, scored)

	log.Info("搜索完成",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("scored", len(scored)),
		zap.Int("returned", len(ranked)),
	)
	return ranked, nil
}

// searchEntry 搜索缓存的内容
type searchEntry struct {
	Ranked    []domain.ScoredRepository `json:"ranked"`
	Processed []domain.ScoredRepository `json:"processed"`
}

func validateSearch(description string, filters domain.SearchFilters) error {
	if strings.TrimSpace(description) == "" {
		return common.NewError(common.ErrCodeInvalidInput, "搜索描述不能为空")
	}
	if filters.MinStars != nil && *filters.MinStars < 0 {
		return common.NewError(common.ErrCodeInvalidInput, "min_stars 不能为负数")
	}
	if filters.MaxAgeDays != nil && *filters.MaxAgeDays < 0 {
		return common.NewError(common.ErrCodeInvalidInput, "max_age_days 不能为负数")
	}
	return nil
}

// score 简单模式只用搜索结果，增强模式并发富化，单个仓库失败只丢弃该仓库
func (s *DiscoveryService) score(ctx context.Context, log *zap.Logger, candidates []domain.CandidateRepository) ([]domain.ScoredRepository, error) {
	if !s.opts.Enhanced || s.repos == nil {
		scored := make([]domain.ScoredRepository, 0, len(candidates))
		for _, c := range candidates {
			scored = append(scored, s.analyzer.Analyze(c, nil))
		}
		return scored, nil
	}

	results := make([]*domain.ScoredRepository, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			scored, err := s.enrich(gctx, c)
			if err != nil {
				log.Warn("仓库富化失败，已丢弃", zap.String("repo", c.Name), zap.Error(err))
				return nil
			}
			results[i] = &scored
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]domain.ScoredRepository, 0, len(results))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}
	return scored, nil
}

func (s *DiscoveryService) enrich(ctx context.Context, c domain.CandidateRepository) (domain.ScoredRepository, error) {
	ref, err := candidateRef(c)
	if err != nil {
		return domain.ScoredRepository{}, err
	}

	details, err := s.repos.details(ctx, ref)
	if err != nil {
		return domain.ScoredRepository{}, err
	}
	langs, err := s.repos.languages(ctx, ref)
	if err != nil {
		return domain.ScoredRepository{}, err
	}
	readme, found, err := s.repos.readme(ctx, ref)
	if err != nil {
		return domain.ScoredRepository{}, err
	}

	// 搜索接口的 watchers 实际是 stars，以详情接口为准
	c.Metrics.Watchers = details.Metrics.Watchers
	if c.License == "" {
		c.License = details.License
	}
	if c.Homepage == "" {
		c.Homepage = details.Homepage
	}
	if len(details.Raw) > 0 {
		c.Raw = details.Raw
	}

	return s.analyzer.Analyze(c, &analyzer.Enrichment{
		Languages: langs,
		Readme:    readme,
		HasReadme: found,
	}), nil
}

func candidateRef(c domain.CandidateRepository) (domain.RepoRef, error) {
	if ref, err := domain.ParseRepoURL(c.URL); err == nil {
		return ref, nil
	}
	owner, name, ok := strings.Cut(c.Name, "/")
	if !ok || owner == "" || name == "" {
		return domain.RepoRef{}, common.NewError(common.ErrCodeProvider, "候选仓库缺少有效地址: "+c.Name)
	}
	return domain.RepoRef{Owner: owner, Name: name}, nil
}

// sync 后台写库，脱离请求的取消，失败只记日志
func (s *DiscoveryService) sync(ctx context.Context, log *zap.Logger, requesterID string, repos []domain.ScoredRepository) {
	if requesterID == "" || s.store == nil || len(repos) == 0 {
		return
	}
	snapshot := append([]domain.ScoredRepository(nil), repos...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SyncTimeout)
		defer cancel()

		if err := s.store.UpsertRepositories(syncCtx, requesterID, snapshot); err != nil {
			log.Warn("仓库持久化失败", zap.String("requester_id", requesterID), zap.Error(err))
			return
		}
		log.Debug("仓库已持久化", zap.String("requester_id", requesterID), zap.Int("count", len(snapshot)))
	}()
}

// Wait 等待所有后台持久化结束，退出前调用
func (s *DiscoveryService) Wait() {
	s.wg.Wait()
}

// RecentRepositories 请求方最近搜索到的仓库
func (s *DiscoveryService) RecentRepositories(ctx context.Context, requesterID string, limit int) ([]domain.RepositoryRecord, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "requester_id 不能为空")
	}
	if s.store == nil {
		return nil, common.NewError(common.ErrCodeDatabase, "未配置数据库")
	}
	return s.store.ListRepositories(ctx, requesterID, limit)
}
