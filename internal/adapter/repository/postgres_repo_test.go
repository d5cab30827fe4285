package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"template-scout/internal/common"
	"template-scout/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB 创建一个模拟的数据库连接
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	// 创建 SQL mock
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	// 创建 GORM 数据库实例，禁用日志以减少输出
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func scoredRepo(name string, stars int) domain.ScoredRepository {
	return domain.ScoredRepository{
		CandidateRepository: domain.CandidateRepository{
			Name:        name,
			URL:         "https://github.com/" + name,
			Description: "desc of " + name,
			Language:    "Go",
			Metrics:     domain.Metrics{Stars: stars},
			Raw:         json.RawMessage(`{"full_name":"` + name + `"}`),
		},
		QualityScore: 12,
	}
}

func TestPostgresRepo_UpsertRepositories(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	upsertSQL := regexp.QuoteMeta(`INSERT INTO "repositories"`)
	conflictSQL := regexp.QuoteMeta(`ON CONFLICT ("requester_id","github_url") DO UPDATE SET`)

	tests := []struct {
		name        string
		requesterID string
		repos       []domain.ScoredRepository
		setupMock   func(sqlmock.Sqlmock)
		expectCode  string
	}{
		{
			name:        "批量 upsert",
			requesterID: "user-1",
			repos:       []domain.ScoredRepository{scoredRepo("acme/widget", 10), scoredRepo("acme/gadget", 20)},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(upsertSQL + ".*" + conflictSQL).
					WillReturnResult(sqlmock.NewResult(0, 2))
				mock.ExpectCommit()
			},
		},
		{
			name:        "数据库错误",
			requesterID: "user-1",
			repos:       []domain.ScoredRepository{scoredRepo("acme/widget", 10)},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(upsertSQL).WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			expectCode: common.ErrCodeDatabase,
		},
		{
			name:        "空列表不访问数据库",
			requesterID: "user-1",
			repos:       nil,
		},
		{
			name:        "缺少 requester",
			requesterID: " ",
			repos:       []domain.ScoredRepository{scoredRepo("acme/widget", 10)},
			expectCode:  common.ErrCodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			repo := &PostgresRepo{db: gormDB, nowFunc: func() time.Time { return now }}
			err := repo.UpsertRepositories(context.Background(), tt.requesterID, tt.repos)

			if tt.expectCode != "" {
				assert.True(t, common.HasCode(err, tt.expectCode), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestToRecords(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := scoredRepo("acme/widget", 10)
	dup := scoredRepo("acme/widget", 99)
	dup.URL = "https://github.com/acme/widget.git"
	noRaw := scoredRepo("acme/gadget", 5)
	noRaw.Raw = nil
	invalid := scoredRepo("x/y", 1)
	invalid.URL = ""

	records := toRecords("user-1", []domain.ScoredRepository{first, noRaw, dup, invalid}, now)
	require.Len(t, records, 2)

	assert.Equal(t, "https://github.com/acme/widget", records[0].GithubURL)
	assert.Equal(t, 99, records[0].Stars, "同一批次内后出现的覆盖前面的")
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "user-1", records[0].RequesterID)
	assert.Equal(t, now, records[0].UpdatedAt)
	assert.JSONEq(t, `{"full_name":"acme/widget"}`, string(records[0].Payload))

	assert.Equal(t, "https://github.com/acme/gadget", records[1].GithubURL)
	assert.Contains(t, string(records[1].Payload), `"quality_score":12`)
}

func TestPostgresRepo_ListRepositories(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		limit       int
		setupMock   func(sqlmock.Sqlmock)
		expectError bool
		expectedLen int
	}{
		{
			name:  "返回最近的仓库",
			limit: 5,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{
					"id", "requester_id", "github_url", "repo_name", "description", "language", "stars", "payload", "created_at", "updated_at",
				}).
					AddRow("id-1", "user-1", "https://github.com/acme/widget", "acme/widget", "Widget", "Go", 10, []byte(`{}`), now, now).
					AddRow("id-2", "user-1", "https://github.com/acme/gadget", "acme/gadget", "Gadget", "Go", 5, []byte(`{}`), now, now)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "repositories" WHERE requester_id = $1 ORDER BY updated_at DESC`)).
					WithArgs("user-1", 5).
					WillReturnRows(rows)
			},
			expectedLen: 2,
		},
		{
			name:  "limit 超出上限时截断",
			limit: 1000,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "repositories"`)).
					WithArgs("user-1", maxListLimit).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedLen: 0,
		},
		{
			name:  "数据库错误",
			limit: 0,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "repositories"`)).
					WithArgs("user-1", defaultListLimit).
					WillReturnError(errors.New("database down"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormDB, mock, cleanup := setupMockDB(t)
			defer cleanup()

			tt.setupMock(mock)

			repo := &PostgresRepo{db: gormDB}
			records, err := repo.ListRepositories(context.Background(), "user-1", tt.limit)

			if tt.expectError {
				assert.True(t, common.HasCode(err, common.ErrCodeDatabase))
			} else {
				assert.NoError(t, err)
				assert.Len(t, records, tt.expectedLen)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
