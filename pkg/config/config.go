package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig 数据库配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SyncConfig 同步任务配置
type SyncConfig struct {
	// getir 拉单间隔（cron 表达式，含秒）
	PullSpec string `mapstructure:"pull_spec"`
	// 夜间全量菜单同步（cron 表达式，含秒）
	MenuSpec string `mapstructure:"menu_spec"`
	// 菜单推送 worker 数
	MenuConcurrency int `mapstructure:"menu_concurrency"`
	// 全局出站推送上限（跨门店）
	GlobalPushLimit int `mapstructure:"global_push_limit"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("sync.pull_spec", "0 */2 * * * *")
	viper.SetDefault("sync.menu_spec", "0 0 4 * * *")
	viper.SetDefault("sync.menu_concurrency", 3)
	viper.SetDefault("sync.global_push_limit", 32)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	if c.App.JWTSecret == "" {
		return fmt.Errorf("app.jwt_secret is required")
	}
	return nil
}
