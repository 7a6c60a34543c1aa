package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	OpenRouter  OpenRouterConfig `mapstructure:"openrouter"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Mongo       MongoConfig      `mapstructure:"mongo"`
	Storage     StorageConfig    `mapstructure:"storage"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Breaker     BreakerConfig    `mapstructure:"breaker"`
	Scaling     ScalingConfig    `mapstructure:"scaling"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// 每秒允許送出的請求數
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MongoConfig MongoDB 連線設定
type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig 儲存後端
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // mongo | memory
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// BreakerConfig AI 呼叫熔斷設定
type BreakerConfig struct {
	MaxFailures          uint32        `mapstructure:"max_failures"`
	Timeout              time.Duration `mapstructure:"timeout"`
	HalfOpenMaxSuccesses uint32        `mapstructure:"half_open_max_successes"`
}

// ScalingConfig 食譜縮放設定
type ScalingConfig struct {
	Policy           string        `mapstructure:"policy"` // ai | arithmetic
	Timeout          time.Duration `mapstructure:"timeout"`
	OvershootPercent int           `mapstructure:"overshoot_percent"`
	SkipTolerance    float64       `mapstructure:"skip_tolerance"`
	RatioTolerance   float64       `mapstructure:"ratio_tolerance"`
	Indivisible      []string      `mapstructure:"indivisible"`
}

// 縮放策略名稱
const (
	PolicyAI         = "ai"
	PolicyArithmetic = "arithmetic"
)

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.database", "MONGO_DATABASE")
	viper.BindEnv("storage.backend", "STORAGE_BACKEND")
	viper.BindEnv("scaling.policy", "SCALING_POLICY")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")),
		"openrouter_model:", viper.GetString("openrouter.model"),
		"storage_backend:", viper.GetString("storage.backend"),
	)

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 有 API Key 時自動啟用 OpenRouter
	if config.OpenRouter.APIKey != "" && !viper.IsSet("openrouter.enabled") {
		config.OpenRouter.Enabled = true
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "catering-planner")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.max_body_bytes", 2<<20) // 2MB

	// OpenRouter 設定
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	viper.SetDefault("openrouter.max_tokens", 2000)
	viper.SetDefault("openrouter.timeout", "60s")
	viper.SetDefault("openrouter.requests_per_second", 2)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// Mongo 設定
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "catering")
	viper.SetDefault("mongo.timeout", "10s")

	viper.SetDefault("storage.backend", "mongo")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
	viper.SetDefault("rate_limit.burst", 20)

	// 熔斷設定
	viper.SetDefault("breaker.max_failures", 3)
	viper.SetDefault("breaker.timeout", "30s")
	viper.SetDefault("breaker.half_open_max_successes", 2)

	// 縮放設定
	viper.SetDefault("scaling.policy", PolicyAI)
	viper.SetDefault("scaling.timeout", "90s")
	viper.SetDefault("scaling.overshoot_percent", 10)
	viper.SetDefault("scaling.skip_tolerance", 0.08)
	viper.SetDefault("scaling.ratio_tolerance", 0.08)
	viper.SetDefault("scaling.indivisible", []string{
		"egg", "apple", "banana", "orange", "lemon", "lime", "avocado",
		"onion", "potato", "bay leaf", "chicken breast", "tortilla", "bun",
	})

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("invalid cache backend %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.Storage.Backend != "mongo" && config.Storage.Backend != "memory" {
		return fmt.Errorf("invalid storage backend %q", config.Storage.Backend)
	}
	if config.Storage.Backend == "mongo" && config.Mongo.Database == "" {
		return fmt.Errorf("mongo database is required")
	}

	// 驗證縮放設定
	if config.Scaling.Policy != PolicyAI && config.Scaling.Policy != PolicyArithmetic {
		return fmt.Errorf("invalid scaling policy %q", config.Scaling.Policy)
	}
	if config.Scaling.OvershootPercent < 0 {
		return fmt.Errorf("invalid scaling overshoot percent")
	}
	if config.Scaling.SkipTolerance < 0 || config.Scaling.SkipTolerance >= 1 {
		return fmt.Errorf("invalid scaling skip tolerance")
	}
	if config.Scaling.Timeout <= 0 {
		return fmt.Errorf("invalid scaling timeout")
	}

	if config.RateLimit.Enabled && (config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0) {
		return fmt.Errorf("invalid rate limit")
	}

	return nil
}
