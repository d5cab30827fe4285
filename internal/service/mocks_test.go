package service

import (
	"context"
	"errors"
	"time"

	"template-scout/internal/adapter/cache"
	"template-scout/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockFetcher 模拟 port.RepoFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) SearchRepositories(ctx context.Context, query string, perPage int) ([]domain.CandidateRepository, error) {
	args := m.Called(ctx, query, perPage)
	repos, _ := args.Get(0).([]domain.CandidateRepository)
	return repos, args.Error(1)
}

func (m *MockFetcher) GetRepository(ctx context.Context, ref domain.RepoRef) (*domain.RepoDetails, error) {
	args := m.Called(ctx, ref)
	details, _ := args.Get(0).(*domain.RepoDetails)
	return details, args.Error(1)
}

func (m *MockFetcher) GetContents(ctx context.Context, ref domain.RepoRef) ([]domain.FileEntry, error) {
	args := m.Called(ctx, ref)
	entries, _ := args.Get(0).([]domain.FileEntry)
	return entries, args.Error(1)
}

func (m *MockFetcher) GetLanguages(ctx context.Context, ref domain.RepoRef) (map[string]int, error) {
	args := m.Called(ctx, ref)
	langs, _ := args.Get(0).(map[string]int)
	return langs, args.Error(1)
}

func (m *MockFetcher) GetReadme(ctx context.Context, ref domain.RepoRef) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

// MockStore 模拟 port.RepositoryStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertRepositories(ctx context.Context, requesterID string, repos []domain.ScoredRepository) error {
	args := m.Called(ctx, requesterID, repos)
	return args.Error(0)
}

func (m *MockStore) ListRepositories(ctx context.Context, requesterID string, limit int) ([]domain.RepositoryRecord, error) {
	args := m.Called(ctx, requesterID, limit)
	records, _ := args.Get(0).([]domain.RepositoryRecord)
	return records, args.Error(1)
}

// MockStrategy 模拟 port.ConversionStrategy
type MockStrategy struct {
	mock.Mock
	name string
}

func (m *MockStrategy) Name() string { return m.name }

func (m *MockStrategy) Convert(ctx context.Context, cc *domain.ConversionContext) (*domain.ConversionPlan, error) {
	args := m.Called(ctx, cc)
	plan, _ := args.Get(0).(*domain.ConversionPlan)
	return plan, args.Error(1)
}

// MockPublisher 模拟 port.ResultPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, result *domain.ConversionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// failingBackend 每次调用都失败
type failingBackend struct{}

func (failingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingBackend) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func newMemoryCache() *cache.Cache {
	backend, err := cache.NewMemoryBackend(128)
	if err != nil {
		panic(err)
	}
	return cache.New(backend, "test", nil)
}

// fastRetry 测试里把退避缩短到毫秒级
var fastRetry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}
