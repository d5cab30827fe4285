package service

import (
	"context"
	"testing"

	"template-scout/internal/adapter/cache"
	"template-scout/internal/common"
	"template-scout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var widgetRef = domain.RepoRef{Owner: "acme", Name: "widget"}

func newRepoService(f *MockFetcher, c *cache.Cache) *RepoService {
	if c == nil {
		c = cache.New(nil, "test", nil)
	}
	return NewRepoService(f, c, cache.DefaultTTLs(), fastRetry, nil)
}

func TestRepoService_GetRepoDetails_Retry(t *testing.T) {
	tests := []struct {
		name        string
		errs        []error // 依次返回，nil 表示成功
		expectError bool
		wantCode    string
		wantCalls   int
	}{
		{
			name:      "第三次成功",
			errs:      []error{common.NewError(common.ErrCodeProvider, "502"), common.NewError(common.ErrCodeProvider, "502"), nil},
			wantCalls: 3,
		},
		{
			name:        "三次都失败",
			errs:        []error{common.NewError(common.ErrCodeProvider, "502"), common.NewError(common.ErrCodeProvider, "502"), common.NewError(common.ErrCodeProvider, "502")},
			expectError: true,
			wantCode:    common.ErrCodeProvider,
			wantCalls:   3,
		},
		{
			name:        "404 不重试",
			errs:        []error{common.NewError(common.ErrCodeNotFound, "missing")},
			expectError: true,
			wantCode:    common.ErrCodeNotFound,
			wantCalls:   1,
		},
		{
			name:        "限流不重试",
			errs:        []error{common.NewError(common.ErrCodeRateLimited, "403")},
			expectError: true,
			wantCode:    common.ErrCodeRateLimited,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := new(MockFetcher)
			for _, err := range tt.errs {
				if err != nil {
					f.On("GetRepository", mock.Anything, widgetRef).Return(nil, err).Once()
				} else {
					f.On("GetRepository", mock.Anything, widgetRef).Return(&domain.RepoDetails{FullName: "acme/widget"}, nil).Once()
				}
			}

			details, err := newRepoService(f, nil).GetRepoDetails(context.Background(), "https://github.com/acme/widget")
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, common.HasCode(err, tt.wantCode))
			} else {
				require.NoError(t, err)
				assert.Equal(t, "acme/widget", details.FullName)
			}
			f.AssertNumberOfCalls(t, "GetRepository", tt.wantCalls)
		})
	}
}

func TestRepoService_GetRepoDetails_Cached(t *testing.T) {
	f := new(MockFetcher)
	f.On("GetRepository", mock.Anything, widgetRef).Return(&domain.RepoDetails{FullName: "acme/widget", Language: "Go"}, nil).Once()
	svc := newRepoService(f, newMemoryCache())

	first, err := svc.GetRepoDetails(context.Background(), "github.com/acme/widget")
	require.NoError(t, err)
	second, err := svc.GetRepoDetails(context.Background(), "https://github.com/acme/widget.git")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	f.AssertNumberOfCalls(t, "GetRepository", 1)
}

func TestRepoService_GetRepoStructure(t *testing.T) {
	t.Run("重试用尽降级为空列表", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("GetContents", mock.Anything, widgetRef).Return(nil, common.NewError(common.ErrCodeProvider, "500"))

		entries, err := newRepoService(f, nil).GetRepoStructure(context.Background(), "https://github.com/acme/widget")
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
		f.AssertNumberOfCalls(t, "GetContents", 3)
	})

	t.Run("404 照常返回", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("GetContents", mock.Anything, widgetRef).Return(nil, common.NewError(common.ErrCodeNotFound, "missing"))

		_, err := newRepoService(f, nil).GetRepoStructure(context.Background(), "https://github.com/acme/widget")
		assert.True(t, common.HasCode(err, common.ErrCodeNotFound))
		f.AssertNumberOfCalls(t, "GetContents", 1)
	})

	t.Run("成功", func(t *testing.T) {
		f := new(MockFetcher)
		f.On("GetContents", mock.Anything, widgetRef).Return([]domain.FileEntry{{Name: "package.json", Type: "file"}}, nil).Once()

		entries, err := newRepoService(f, nil).GetRepoStructure(context.Background(), "https://github.com/acme/widget")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "package.json", entries[0].Name)
	})

	t.Run("取消时不降级", func(t *testing.T) {
		f := new(MockFetcher)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newRepoService(f, nil).GetRepoStructure(ctx, "https://github.com/acme/widget")
		assert.ErrorIs(t, err, context.Canceled)
		f.AssertNotCalled(t, "GetContents", mock.Anything, mock.Anything)
	})
}

func TestRepoService_InvalidURL(t *testing.T) {
	f := new(MockFetcher)
	svc := newRepoService(f, nil)

	for _, raw := range []string{"", "https://gitlab.com/acme/widget", "https://github.com/acme"} {
		_, err := svc.GetRepoDetails(context.Background(), raw)
		assert.True(t, common.HasCode(err, common.ErrCodeInvalidInput), raw)
		_, err = svc.GetRepoStructure(context.Background(), raw)
		assert.True(t, common.HasCode(err, common.ErrCodeInvalidInput), raw)
	}
	f.AssertNotCalled(t, "GetRepository", mock.Anything, mock.Anything)
}

func TestRepoService_Readme(t *testing.T) {
	f := new(MockFetcher)
	f.On("GetReadme", mock.Anything, widgetRef).Return("", common.NewError(common.ErrCodeNotFound, "no readme")).Once()
	svc := newRepoService(f, newMemoryCache())

	for i := 0; i < 2; i++ {
		content, found, err := svc.readme(context.Background(), widgetRef)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, content)
	}
	// 不存在的结果同样被缓存
	f.AssertNumberOfCalls(t, "GetReadme", 1)
}
