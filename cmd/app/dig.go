package main

import (
	"context"
	"time"

	"template-scout/internal/adapter/analyzer"
	"template-scout/internal/adapter/cache"
	"template-scout/internal/adapter/filter"
	"template-scout/internal/adapter/gemini"
	"template-scout/internal/adapter/github"
	"template-scout/internal/adapter/openaicompat"
	"template-scout/internal/adapter/repository"
	"template-scout/internal/adapter/webhook"
	"template-scout/internal/config"
	"template-scout/internal/logger"
	"template-scout/internal/port"
	"template-scout/internal/service"

	"go.uber.org/dig"
	"go.uber.org/zap"
)

const redisPingTimeout = 3 * time.Second

// App 一次命令执行所需的全部服务
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Repos      *service.RepoService
	Discovery  *service.DiscoveryService
	Conversion *service.ConversionService

	closers *closers
}

// Close 等待后台持久化完成后释放连接
func (a *App) Close() {
	a.Discovery.Wait()
	a.closers.closeAll(a.Log)
	_ = a.Log.Sync()
}

// closers 按注册的逆序关闭
type closers struct {
	fns []func() error
}

func (c *closers) add(fn func() error) { c.fns = append(c.fns, fn) }

func (c *closers) closeAll(log *zap.Logger) {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			log.Warn("资源关闭失败", zap.Error(err))
		}
	}
	c.fns = nil
}

func buildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	providers := []any{
		func() (*config.Config, error) { return config.Load(configPath) },
		func() *closers { return &closers{} },
		provideLogger,
		provideCache,
		provideFetcher,
		provideAnalyzer,
		provideRanker,
		provideStore,
		provideStrategies,
		providePublisher,
		provideRepoService,
		provideDiscoveryService,
		provideConversionService,
		newApp,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}
	return container, nil
}

func provideLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.LogLevel)
}

// provideCache Redis 不可达时退回进程内 LRU
func provideCache(cfg *config.Config, cl *closers, log *zap.Logger) (*cache.Cache, error) {
	if cfg.Cache.RedisURL != "" {
		backend, err := cache.NewRedisBackend(cfg.Cache.RedisURL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
			err = backend.Ping(ctx)
			cancel()
			if err == nil {
				cl.add(backend.Close)
				log.Debug("使用 Redis 缓存", zap.String("namespace", cfg.Cache.Namespace))
				return cache.New(backend, cfg.Cache.Namespace, log), nil
			}
			_ = backend.Close()
		}
		log.Warn("Redis 不可用，改用内存缓存", zap.Error(err))
	}

	backend, err := cache.NewMemoryBackend(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, err
	}
	return cache.New(backend, cfg.Cache.Namespace, log), nil
}

func provideFetcher(cfg *config.Config, log *zap.Logger) *github.Fetcher {
	if cfg.GitHub.Token == "" {
		log.Warn("未设置 GITHUB_TOKEN，匿名访问限制为 60次/小时")
	}
	return github.NewFetcher(cfg.GitHub.Token,
		github.WithBaseURL(cfg.GitHub.BaseURL),
		github.WithTimeout(cfg.GitHub.Timeout),
		github.WithLogger(log),
	)
}

func provideAnalyzer(cfg *config.Config) *analyzer.RepoAnalyzer {
	return analyzer.NewRepoAnalyzer(cfg.Scoring)
}

func provideRanker(cfg *config.Config) *filter.RepoFilter {
	return filter.NewRepoFilter(cfg.Ranking)
}

// provideStore 未配置 DSN 时返回 nil，搜索结果不落库
func provideStore(cfg *config.Config, cl *closers, log *zap.Logger) (port.RepositoryStore, error) {
	if cfg.Database.DSN == "" {
		log.Debug("未配置 DATABASE_DSN，跳过持久化")
		return nil, nil
	}
	store, err := repository.NewPostgresRepo(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	cl.add(store.Close)
	return store, nil
}

// provideStrategies 按 gemini -> openai-compatible 排列，缺 key 的跳过
func provideStrategies(cfg *config.Config, cl *closers, log *zap.Logger) []port.ConversionStrategy {
	var strategies []port.ConversionStrategy

	if cfg.AI.GeminiAPIKey != "" {
		conv, err := gemini.NewConverter(context.Background(), cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel, log)
		if err != nil {
			log.Warn("Gemini 初始化失败，跳过", zap.Error(err))
		} else {
			cl.add(conv.Close)
			strategies = append(strategies, conv)
		}
	}

	if cfg.AI.CompatAPIKey != "" {
		conv, err := openaicompat.NewConverter(cfg.AI.CompatAPIKey,
			openaicompat.WithBaseURL(cfg.AI.CompatBaseURL),
			openaicompat.WithModel(cfg.AI.CompatModel),
			openaicompat.WithLogger(log),
		)
		if err != nil {
			log.Warn("OpenAI 兼容接口初始化失败，跳过", zap.Error(err))
		} else {
			strategies = append(strategies, conv)
		}
	}
	return strategies
}

func providePublisher(cfg *config.Config, log *zap.Logger) port.ResultPublisher {
	if cfg.Webhook.URL == "" {
		return nil
	}
	return webhook.NewPublisher(cfg.Webhook.URL,
		webhook.WithFormat(webhook.Format(cfg.Webhook.Format)),
		webhook.WithLogger(log),
	)
}

func provideRepoService(cfg *config.Config, fetcher *github.Fetcher, c *cache.Cache, log *zap.Logger) *service.RepoService {
	retry := service.RetryPolicy{Attempts: cfg.Retry.Attempts, Delay: cfg.Retry.Delay}
	return service.NewRepoService(fetcher, c, cfg.Cache.TTLs, retry, log)
}

func provideDiscoveryService(
	cfg *config.Config,
	fetcher *github.Fetcher,
	repos *service.RepoService,
	c *cache.Cache,
	repoAnalyzer *analyzer.RepoAnalyzer,
	ranker *filter.RepoFilter,
	store port.RepositoryStore,
	log *zap.Logger,
) *service.DiscoveryService {
	opts := service.DiscoveryOptions{
		Enhanced:    cfg.Search.Enhanced,
		Concurrency: cfg.Search.Concurrency,
		SearchTTL:   cfg.Cache.TTLs.Search,
		SyncTimeout: cfg.Database.SyncTimeout,
	}
	return service.NewDiscoveryService(fetcher, repos, c, repoAnalyzer, ranker, store, opts, log)
}

func provideConversionService(
	cfg *config.Config,
	repos *service.RepoService,
	strategies []port.ConversionStrategy,
	publisher port.ResultPublisher,
	log *zap.Logger,
) *service.ConversionService {
	return service.NewConversionService(repos, strategies, publisher, cfg.AI.Timeout, log)
}

func newApp(
	cfg *config.Config,
	log *zap.Logger,
	repos *service.RepoService,
	discovery *service.DiscoveryService,
	conversion *service.ConversionService,
	cl *closers,
) *App {
	return &App{
		Config:     cfg,
		Log:        log,
		Repos:      repos,
		Discovery:  discovery,
		Conversion: conversion,
		closers:    cl,
	}
}
