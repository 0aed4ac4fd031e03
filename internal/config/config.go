package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Catalog   CatalogConfig
	Ledger    LedgerConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type StorageConfig struct {
	Backend          string        `mapstructure:"backend"`
	DocumentPath     string        `mapstructure:"document_path"`
	DocumentName     string        `mapstructure:"document_name"`
	BackupType       string        `mapstructure:"backup_type"`
	BackupDir        string        `mapstructure:"backup_dir"`
	MinioEndpoint    string        `mapstructure:"minio_endpoint"`
	MinioAccessID    string        `mapstructure:"minio_access_key"`
	MinioSecret      string        `mapstructure:"minio_secret_key"`
	MinioBucket      string        `mapstructure:"minio_bucket"`
	MinioUseSSL      bool          `mapstructure:"minio_use_ssl"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool `mapstructure:"parse_time"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type CatalogConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// LedgerConfig 未完成尝试的最长保留时间，TTL 为0表示不过期
type LedgerConfig struct {
	OpenAttemptTTL time.Duration `mapstructure:"open_attempt_ttl"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

const (
	BackendFile  = "file"
	BackendMySQL = "mysql"

	BackupNone  = "none"
	BackupLocal = "local"
	BackupMinio = "minio"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.document_path", "data/user_progress.json")
	v.SetDefault("storage.document_name", "user_progress")
	v.SetDefault("storage.backup_type", BackupLocal)
	v.SetDefault("storage.backup_dir", "data/backups")
	v.SetDefault("storage.minio_bucket", "skilltrack-backups")
	v.SetDefault("storage.snapshot_interval", time.Duration(0))

	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)

	v.SetDefault("catalog.dir", "data/skill_steps")
	v.SetDefault("catalog.watch", true)

	v.SetDefault("ledger.open_attempt_ttl", time.Duration(0))
	v.SetDefault("ledger.sweep_interval", 10*time.Minute)

	v.SetDefault("rate_limit.max_requests", 100000)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig 从 path 读取 config.yaml。文件不存在不算错误，默认值和环境变量仍然生效
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("SKILLTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 没有默认值的键需要显式绑定，否则 Unmarshal 读不到环境变量
	for _, key := range []string{
		"storage.minio_endpoint",
		"storage.minio_access_key",
		"storage.minio_secret_key",
		"database.user",
		"database.password",
		"database.dbname",
		"redis.password",
		"redis.db",
		"tracing.enabled",
		"tracing.collector_endpoint",
	} {
		v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.BackupType == BackupLocal && cfg.Storage.BackupDir != "" {
		if _, err := os.Stat(cfg.Storage.BackupDir); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.BackupDir, 0755)
		}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendMySQL:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendMySQL, c.Storage.Backend)
	}
	switch c.Storage.BackupType {
	case BackupNone, BackupLocal, BackupMinio:
	default:
		return fmt.Errorf("storage.backup_type must be none, local or minio, got %q", c.Storage.BackupType)
	}
	if c.Storage.Backend == BackendFile && c.Storage.DocumentPath == "" {
		return errors.New("storage.document_path is required for the file backend")
	}
	if c.Database.Port <= 0 || c.Redis.Port <= 0 {
		return errors.New("database.port and redis.port must be positive")
	}
	if c.Ledger.OpenAttemptTTL < 0 {
		return fmt.Errorf("ledger.open_attempt_ttl must not be negative, got %s", c.Ledger.OpenAttemptTTL)
	}
	return nil
}

// Debug 是否开启详细日志
func (c *Config) Debug() bool {
	return c.Server.Mode == "debug" || c.Log.Level == "debug"
}
