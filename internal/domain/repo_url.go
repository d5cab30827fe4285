package domain

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidRepoURL 无法解析为 github.com/owner/repo 的地址
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

// RepoRef owner/repo 二元组
type RepoRef struct {
	Owner string
	Name  string
}

// FullName 返回 "owner/repo"
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// CanonicalURL 统一的仓库地址，作为持久化主键的一部分
func (r RepoRef) CanonicalURL() string {
	return "https://github.com/" + r.FullName()
}

// ParseRepoURL 解析仓库地址
// 支持 https://github.com/o/r、带 .git 后缀、带多余路径段、以及省略 scheme 的写法
func ParseRepoURL(raw string) (RepoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoRef{}, ErrInvalidRepoURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepoRef{}, ErrInvalidRepoURL
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return RepoRef{}, ErrInvalidRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RepoRef{}, ErrInvalidRepoURL
	}
	name := strings.TrimSuffix(parts[1], ".git")
	if name == "" {
		return RepoRef{}, ErrInvalidRepoURL
	}
	return RepoRef{Owner: parts[0], Name: name}, nil
}
