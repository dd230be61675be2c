package config

import (
	"os"
	"time"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DatabaseConfig 数据库配置。
// Driver=sqlite 时 DSN 为文件路径（或 file::memory:），用于本地开发与测试；
// Driver=mysql 时 Replicas 非空则通过 dbresolver 做读写分离。
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Replicas        []string      `mapstructure:"replicas"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent/error/warn/info
}

// DefaultDatabaseConfig 默认使用本地 sqlite 文件，STATUS_DB_DSN 存在时切换为 MySQL。
func DefaultDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		Driver:          DriverSQLite,
		DSN:             "status.db",
		MaxOpenConns:    50,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "warn",
	}
	if dsn := os.Getenv("STATUS_DB_DSN"); dsn != "" {
		cfg.Driver = DriverMySQL
		cfg.DSN = dsn
	}
	return cfg
}
