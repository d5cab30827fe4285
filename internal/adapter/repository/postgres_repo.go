package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"template-scout/internal/common"
	"template-scout/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// upsert 冲突时刷新的列
var refreshColumns = []string{"repo_name", "description", "language", "stars", "payload", "updated_at"}

// PostgresRepo 实现了 port.RepositoryStore 接口
type PostgresRepo struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// NewPostgresRepo 初始化数据库连接并自动迁移表结构
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	// 1. 连接数据库
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 2. 自动迁移，包括 (requester_id, github_url) 唯一索引
	err = db.AutoMigrate(&domain.RepositoryRecord{})
	if err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return &PostgresRepo{db: db, nowFunc: time.Now}, nil
}

// Close 关闭底层连接池
func (r *PostgresRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *PostgresRepo) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now()
}

// UpsertRepositories 按 (requester_id, github_url) 插入或刷新
func (r *PostgresRepo) UpsertRepositories(ctx context.Context, requesterID string, repos []domain.ScoredRepository) error {
	if strings.TrimSpace(requesterID) == "" {
		return common.NewError(common.ErrCodeInvalidInput, "requester_id 不能为空")
	}

	records := toRecords(requesterID, repos, r.now())
	if len(records) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "requester_id"}, {Name: "github_url"}},
			DoUpdates: clause.AssignmentColumns(refreshColumns),
		}).
		Create(&records).Error
	if err != nil {
		return common.WrapError(common.ErrCodeDatabase, "保存仓库失败", err)
	}
	return nil
}

// ListRepositories 最近同步过的仓库
func (r *PostgresRepo) ListRepositories(ctx context.Context, requesterID string, limit int) ([]domain.RepositoryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var records []domain.RepositoryRecord
	err := r.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeDatabase, "查询仓库失败", err)
	}
	return records, nil
}

// toRecords 同一批次内相同 URL 只保留最后一条，避免 ON CONFLICT 重复命中同一行
func toRecords(requesterID string, repos []domain.ScoredRepository, now time.Time) []domain.RepositoryRecord {
	index := make(map[string]int, len(repos))
	records := make([]domain.RepositoryRecord, 0, len(repos))

	for _, repo := range repos {
		url := canonicalURL(repo.URL)
		if url == "" {
			continue
		}
		rec := domain.RepositoryRecord{
			ID:          uuid.NewString(),
			RequesterID: requesterID,
			GithubURL:   url,
			RepoName:    repo.Name,
			Description: repo.Description,
			Language:    repo.Language,
			Stars:       repo.Metrics.Stars,
			Payload:     payloadOf(repo),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if i, ok := index[url]; ok {
			rec.ID = records[i].ID
			records[i] = rec
			continue
		}
		index[url] = len(records)
		records = append(records, rec)
	}
	return records
}

func canonicalURL(raw string) string {
	if ref, err := domain.ParseRepoURL(raw); err == nil {
		return ref.CanonicalURL()
	}
	return strings.TrimSuffix(strings.TrimSpace(raw), "/")
}

func payloadOf(repo domain.ScoredRepository) []byte {
	if len(repo.Raw) > 0 {
		return repo.Raw
	}
	raw, err := json.Marshal(repo)
	if err != nil {
		return nil
	}
	return raw
}
