package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Inference    InferenceConfig    `mapstructure:"inference"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"` // sqlite 文件路径
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	DetectionQueue string `mapstructure:"detection_queue"`
	MaxWorkers     int    `mapstructure:"max_workers"`
}

// InferenceConfig 识别模型服务，worker 把图片地址 POST 到 Endpoint
type InferenceConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type SubscriptionConfig struct {
	DurationDays       int                   `mapstructure:"duration_days"`
	FallbackDailyLimit int                   `mapstructure:"fallback_daily_limit"`
	APIKeyPrefix       string                `mapstructure:"api_key_prefix"`
	ExpirySweepCron    string                `mapstructure:"expiry_sweep_cron"`
	Plans              map[string]PlanConfig `mapstructure:"plans"`
}

// PlanConfig 覆盖内置套餐的展示名、日配额与价格，零值字段沿用内置值
type PlanConfig struct {
	Label       string  `mapstructure:"label"`
	DailyQuota  int     `mapstructure:"daily_quota"`
	Price       float64 `mapstructure:"price"`
	Description string  `mapstructure:"description"`
}

const (
	DefaultDurationDays     = 30
	DefaultAPIKeyPrefix     = "vf_live_"
	DefaultExpirySweepCron  = "@hourly"
	DefaultDetectionQueue   = "detection_jobs"
	DefaultMaxWorkers       = 4
	DefaultInferenceTimeout = 30
)

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("queue.detection_queue", DefaultDetectionQueue)
	v.SetDefault("queue.max_workers", DefaultMaxWorkers)
	v.SetDefault("inference.timeout_seconds", DefaultInferenceTimeout)
	v.SetDefault("subscription.duration_days", DefaultDurationDays)
	v.SetDefault("subscription.api_key_prefix", DefaultAPIKeyPrefix)
	v.SetDefault("subscription.expiry_sweep_cron", DefaultExpirySweepCron)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
