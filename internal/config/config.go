package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Engine    EngineConfig    `mapstructure:"engine"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

// EngineConfig 路径引擎可调项。掌握阈值原型里只有定性描述，
// 这里以 0.85/0.50 为默认值暴露成配置。
type EngineConfig struct {
	MasteryThreshold  float64 `mapstructure:"mastery_threshold"`
	StruggleThreshold float64 `mapstructure:"struggle_threshold"`
	MaxLOsPerSegment  int     `mapstructure:"max_los_per_segment"`
	MaxItemsPerLO     int     `mapstructure:"max_items_per_lo"`
	SegmentCacheTTL   int     `mapstructure:"segment_cache_ttl_seconds"`
	CurriculumFile    string  `mapstructure:"curriculum_file"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("PATHWAY")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Engine
	viper.BindEnv("engine.mastery_threshold", "ENGINE_MASTERY_THRESHOLD")
	viper.BindEnv("engine.struggle_threshold", "ENGINE_STRUGGLE_THRESHOLD")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	ApplyEngineDefaults(&cfg.Engine)

	// 阈值关系配反了引擎会整体失真，启动时就拦下
	if cfg.Engine.StruggleThreshold >= cfg.Engine.MasteryThreshold {
		return nil, fmt.Errorf("engine: struggle_threshold (%v) must be below mastery_threshold (%v)",
			cfg.Engine.StruggleThreshold, cfg.Engine.MasteryThreshold)
	}

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// ShouldMigrate 是否在启动时执行表结构迁移：
// release 模式默认不迁移，需显式带 -migrate 标志；其他模式默认迁移。
func (c *Config) ShouldMigrate() bool {
	return c.ForceMigrate || c.Server.Mode != "release"
}

func ApplyEngineDefaults(e *EngineConfig) {
	if e.MasteryThreshold == 0 {
		e.MasteryThreshold = 0.85
	}
	if e.StruggleThreshold == 0 {
		e.StruggleThreshold = 0.50
	}
	if e.MaxLOsPerSegment == 0 {
		e.MaxLOsPerSegment = 1
	}
	if e.MaxItemsPerLO == 0 {
		e.MaxItemsPerLO = 2
	}
	if e.SegmentCacheTTL == 0 {
		e.SegmentCacheTTL = 300
	}
}
