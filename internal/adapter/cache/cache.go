package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"template-scout/internal/logger"

	"go.uber.org/zap"
)

// Backend 底层键值存储，错误由 Cache 吞掉
type Backend interface {
	// Get 未命中时返回 ok=false 且 err=nil
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TTLs 每类数据的缓存时长
type TTLs struct {
	Search    time.Duration
	Details   time.Duration
	Structure time.Duration
	Languages time.Duration
	Readme    time.Duration
}

// DefaultTTLs 搜索 10 分钟、详情 60 分钟、目录 30 分钟
func DefaultTTLs() TTLs {
	return TTLs{
		Search:    10 * time.Minute,
		Details:   60 * time.Minute,
		Structure: 30 * time.Minute,
		Languages: 60 * time.Minute,
		Readme:    60 * time.Minute,
	}
}

// Cache 实现了 port.Cache，所有操作 fail-open
type Cache struct {
	backend   Backend
	namespace string
	log       *zap.Logger
}

// New 创建缓存实例，backend 为 nil 时所有操作都是空操作
func New(backend Backend, namespace string, log *zap.Logger) *Cache {
	if namespace == "" {
		namespace = "scout"
	}
	return &Cache{backend: backend, namespace: namespace, log: logger.OrNop(log)}
}

// Key 生成 <namespace>:<endpoint>:<sha256(endpoint + 排序后的参数)>
func (c *Cache) Key(endpoint string, params map[string]string) string {
	return Key(c.namespace, endpoint, params)
}

// Key 参数顺序无关，相同输入总是得到相同的键
func Key(namespace, endpoint string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpoint)
	for _, k := range names {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return namespace + ":" + endpoint + ":" + hex.EncodeToString(sum[:])
}

// Get 命中时把 JSON 解码到 dest
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.backend == nil {
		return false
	}
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("缓存读取失败，按未命中处理", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("缓存数据无法解码，按未命中处理", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set 写入失败只记录日志
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.backend == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("缓存数据无法编码", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.backend.Set(ctx, key, raw, ttl); err != nil {
		c.log.Warn("缓存写入失败", zap.String("key", key), zap.Error(err))
	}
}

// Delete 删除失败只记录日志
func (c *Cache) Delete(ctx context.Context, key string) {
	if c == nil || c.backend == nil {
		return
	}
	if err := c.backend.Delete(ctx, key); err != nil {
		c.log.Warn("缓存删除失败", zap.String("key", key), zap.Error(err))
	}
}
