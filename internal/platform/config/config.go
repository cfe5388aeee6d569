package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支持的数据库驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode                string     `mapstructure:"mode"`
	Address             string     `mapstructure:"address"`
	ReadTimeoutSeconds  int        `mapstructure:"readTimeoutSeconds"`
	WriteTimeoutSeconds int        `mapstructure:"writeTimeoutSeconds"`
	Cors                CorsConfig `mapstructure:"cors"`
	// TrustedProxies 为空时不信任任何代理，客户端IP取自TCP连接
	TrustedProxies []string `mapstructure:"trustedProxies"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了SQL存储的配置
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
	LogLevel     string `mapstructure:"logLevel"`
}

// RedisConfig 定义了Redis的配置，Address为空表示不启用
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled 判断是否配置了Redis
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Address) != ""
}

// MetricsConfig 定义了计数与批量读取相关的参数
type MetricsConfig struct {
	// ChunkSize 是批量读取时单条SQL语句携带的最大ID数量
	ChunkSize int `mapstructure:"chunkSize"`
	// MaxBulkIDs 是单次批量请求允许的最大ID数量
	MaxBulkIDs         int `mapstructure:"maxBulkIDs"`
	DefaultHistoryDays int `mapstructure:"defaultHistoryDays"`
}

// RateLimitConfig 定义了写操作的限流参数，Mutations为0时关闭限流
type RateLimitConfig struct {
	Mutations     int `mapstructure:"mutations"`
	WindowSeconds int `mapstructure:"windowSeconds"`
}

// LogConfig 定义了日志输出的配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.readTimeoutSeconds", 10)
	v.SetDefault("server.writeTimeoutSeconds", 30)
	v.SetDefault("server.cors.allowedOrigins", []string{"*"})
	v.SetDefault("server.trustedProxies", []string{})

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "metrics.db")
	v.SetDefault("database.maxOpenConns", 0)
	v.SetDefault("database.logLevel", "silent")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("metrics.chunkSize", 100)
	v.SetDefault("metrics.maxBulkIDs", 3000)
	v.SetDefault("metrics.defaultHistoryDays", 30)

	v.SetDefault("rateLimit.mutations", 120)
	v.SetDefault("rateLimit.windowSeconds", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 7)
	v.SetDefault("log.compress", false)
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 配置文件是可选的：找不到 config.yaml 时使用默认值与环境变量
func LoadConfig(paths ...string) (*Config, error) {
	// 1. 先加载 .env (如果存在)，让其中的变量参与后续的环境变量覆盖
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// 2. 设置配置文件名和类型
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 3. 添加配置文件搜索路径
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 4. 允许通过环境变量覆盖配置，例如 DATABASE_DSN=postgres://...
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 5. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 6. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize 校验配置并补全与驱动相关的默认值
func (c *Config) normalize() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case DriverSQLite:
		// SQLite只允许一个写连接，串行化写入以避免 "database is locked"
		if c.Database.MaxOpenConns <= 0 {
			c.Database.MaxOpenConns = 1
		}
	case DriverPostgres:
		if c.Database.MaxOpenConns <= 0 {
			c.Database.MaxOpenConns = 10
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}

	if c.Metrics.ChunkSize <= 0 {
		return fmt.Errorf("metrics.chunkSize 必须大于0")
	}
	if c.Metrics.MaxBulkIDs <= 0 {
		return fmt.Errorf("metrics.maxBulkIDs 必须大于0")
	}
	if c.Metrics.DefaultHistoryDays <= 0 {
		c.Metrics.DefaultHistoryDays = 30
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	return nil
}
