package config

import (
	"fmt"
	"strings"
	"time"

	"template-scout/internal/adapter/analyzer"
	"template-scout/internal/adapter/cache"
	"template-scout/internal/adapter/filter"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 运行期配置，来源优先级：环境变量 > 配置文件 > .env > 默认值
type Config struct {
	LogLevel string

	GitHub   GitHubConfig
	AI       AIConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Search   SearchConfig
	Retry    RetryConfig
	Webhook  WebhookConfig

	Scoring analyzer.ScoringConfig
	Ranking filter.RankingConfig
}

type GitHubConfig struct {
	Token   string
	BaseURL string
	Timeout time.Duration
}

// AIConfig 某个 provider 的 key 为空时跳过该策略
type AIConfig struct {
	GeminiAPIKey  string
	GeminiModel   string
	CompatAPIKey  string
	CompatBaseURL string
	CompatModel   string
	Timeout       time.Duration
}

// CacheConfig RedisURL 为空时使用进程内 LRU
type CacheConfig struct {
	RedisURL   string
	Namespace  string
	MaxEntries int
	TTLs       cache.TTLs
}

// DatabaseConfig DSN 为空时不做持久化
type DatabaseConfig struct {
	DSN         string
	SyncTimeout time.Duration
}

type SearchConfig struct {
	Enhanced    bool
	Concurrency int
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type WebhookConfig struct {
	URL    string
	Format string
}

func defaults(v *viper.Viper) ([]string, error) {
	ttls := cache.DefaultTTLs()

	v.SetDefault("log_level", "info")
	v.SetDefault("github_token", "")
	v.SetDefault("github_base_url", "")
	v.SetDefault("github_timeout", 30*time.Second)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash-lite")
	v.SetDefault("openai_compat_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("openai_compat_model", "llama-3.3-70b-versatile")
	v.SetDefault("ai_timeout", 60*time.Second)
	v.SetDefault("redis_url", "")
	v.SetDefault("cache_namespace", "scout")
	v.SetDefault("cache_max_entries", 1024)
	v.SetDefault("ttl_search", ttls.Search)
	v.SetDefault("ttl_details", ttls.Details)
	v.SetDefault("ttl_structure", ttls.Structure)
	v.SetDefault("ttl_languages", ttls.Languages)
	v.SetDefault("ttl_readme", ttls.Readme)
	v.SetDefault("database_dsn", "")
	v.SetDefault("sync_timeout", 30*time.Second)
	v.SetDefault("search_enhanced", false)
	v.SetDefault("enrich_concurrency", 4)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("retry_delay", time.Second)
	v.SetDefault("result_webhook_url", "")
	v.SetDefault("result_webhook_format", "json")

	// scoring.* 同时承载打分和排序常量，环境变量形如 SCORING_STAR_EXPONENT
	var keys []string
	for _, section := range []any{analyzer.DefaultScoringConfig(), filter.DefaultRankingConfig()} {
		var m map[string]any
		if err := mapstructure.Decode(section, &m); err != nil {
			return nil, fmt.Errorf("解析默认打分配置失败: %w", err)
		}
		for k, val := range m {
			v.SetDefault("scoring."+k, val)
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// decodeScoring 逐个叶子取值，保证环境变量和配置文件都能覆盖单个常量
func decodeScoring(v *viper.Viper, keys []string, out any) error {
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		values[k] = v.Get("scoring." + k)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}

// Load 读取配置，path 为空时只读环境变量
func Load(path string) (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("openai_compat_api_key", "OPENAI_COMPAT_API_KEY", "GROQ_API_KEY"); err != nil {
		return nil, err
	}
	scoringKeys, err := defaults(v)
	if err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("log_level"),
		GitHub: GitHubConfig{
			Token:   v.GetString("github_token"),
			BaseURL: v.GetString("github_base_url"),
			Timeout: v.GetDuration("github_timeout"),
		},
		AI: AIConfig{
			GeminiAPIKey:  v.GetString("gemini_api_key"),
			GeminiModel:   v.GetString("gemini_model"),
			CompatAPIKey:  v.GetString("openai_compat_api_key"),
			CompatBaseURL: v.GetString("openai_compat_base_url"),
			CompatModel:   v.GetString("openai_compat_model"),
			Timeout:       v.GetDuration("ai_timeout"),
		},
		Cache: CacheConfig{
			RedisURL:   v.GetString("redis_url"),
			Namespace:  v.GetString("cache_namespace"),
			MaxEntries: v.GetInt("cache_max_entries"),
			TTLs: cache.TTLs{
				Search:    v.GetDuration("ttl_search"),
				Details:   v.GetDuration("ttl_details"),
				Structure: v.GetDuration("ttl_structure"),
				Languages: v.GetDuration("ttl_languages"),
				Readme:    v.GetDuration("ttl_readme"),
			},
		},
		Database: DatabaseConfig{
			DSN:         v.GetString("database_dsn"),
			SyncTimeout: v.GetDuration("sync_timeout"),
		},
		Search: SearchConfig{
			Enhanced:    v.GetBool("search_enhanced"),
			Concurrency: v.GetInt("enrich_concurrency"),
		},
		Retry: RetryConfig{
			Attempts: v.GetInt("retry_attempts"),
			Delay:    v.GetDuration("retry_delay"),
		},
		Webhook: WebhookConfig{
			URL:    v.GetString("result_webhook_url"),
			Format: strings.ToLower(v.GetString("result_webhook_format")),
		},
	}

	if err := decodeScoring(v, scoringKeys, &cfg.Scoring); err != nil {
		return nil, fmt.Errorf("解析打分配置失败: %w", err)
	}
	if err := decodeScoring(v, scoringKeys, &cfg.Ranking); err != nil {
		return nil, fmt.Errorf("解析排序配置失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Search.Concurrency < 1 {
		return fmt.Errorf("ENRICH_CONCURRENCY 必须大于 0，当前为 %d", c.Search.Concurrency)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS 必须大于 0，当前为 %d", c.Retry.Attempts)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT 必须为正数")
	}
	switch c.Webhook.Format {
	case "json", "feishu":
	default:
		return fmt.Errorf("RESULT_WEBHOOK_FORMAT 只支持 json 或 feishu，当前为 %q", c.Webhook.Format)
	}
	return nil
}
