package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config 运行时配置
type Config struct {
	Port                 string        `env:"PORT" envDefault:"8080"`
	FormEndpoint         string        `env:"FORM_ENDPOINT,required"`
	AllowedOrigin        string        `env:"ALLOWED_ORIGIN"`
	TrustedProxies       []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	StoreBackend         string        `env:"STORE_BACKEND" envDefault:"file"`
	DataDir              string        `env:"DATA_DIR" envDefault:"./data"`
	StoreKey             string        `env:"STORE_KEY" envDefault:"bc_recent_submissions"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	RedisDB              int           `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix       string        `env:"REDIS_KEY_PREFIX" envDefault:"contact-form"`
	SubmitTimeout        time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"15s"`
	DuplicateWindow      time.Duration `env:"DUPLICATE_WINDOW" envDefault:"24h"`
	MaxRecords           int           `env:"MAX_RECORDS" envDefault:"100"`
	SuccessCooldown      time.Duration `env:"SUCCESS_COOLDOWN" envDefault:"4s"`
	SubjectPrefix        string        `env:"SUBJECT_PREFIX" envDefault:"New BeautyClean enquiry from"`
	RateWindow           time.Duration `env:"RATE_WINDOW" envDefault:"15m"`
	SubmitLimitPerWindow int           `env:"SUBMIT_LIMIT_PER_WINDOW" envDefault:"6"`
}

// Load 从环境变量加载配置
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("解析环境变量失败: %w", err)
	}

	cfg.FormEndpoint = strings.TrimSpace(cfg.FormEndpoint)
	if cfg.FormEndpoint == "" {
		return Config{}, fmt.Errorf("缺少 FORM_ENDPOINT")
	}

	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	switch cfg.StoreBackend {
	case BackendMemory, BackendFile, BackendSQLite, BackendRedis:
	default:
		return Config{}, fmt.Errorf("不支持的 STORE_BACKEND: %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendRedis && strings.TrimSpace(cfg.RedisAddr) == "" {
		return Config{}, fmt.Errorf("STORE_BACKEND=redis 需要 REDIS_ADDR")
	}

	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.MaxRecords = clampInt(cfg.MaxRecords, 1, 1000)
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 15 * time.Second
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 24 * time.Hour
	}
	if cfg.SuccessCooldown < 0 {
		cfg.SuccessCooldown = 0
	}

	return cfg, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
