// Package database 负责按配置构建 gorm 连接（MySQL 主从 / SQLite 单机）。
package database

import (
	"fmt"
	"strings"

	"StatusServer/config"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var global *gorm.DB

// DB 返回全局连接（未初始化时为 nil）。
func DB() *gorm.DB { return global }

// ReplaceGlobal 设置全局连接。
func ReplaceGlobal(db *gorm.DB) { global = db }

// Build 根据配置打开数据库连接。
// - mysql：配置了 Replicas 时注册 dbresolver，读请求走从库、写请求与事务走主库；
// - sqlite：用于本地开发与测试，连接数固定为 1，避免内存库在多连接间不可见。
func Build(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(parseLogLevel(cfg.LogLevel)),
		TranslateError: true, // 唯一键冲突映射为 gorm.ErrDuplicatedKey
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMySQL:
		db, err = gorm.Open(mysql.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		if len(cfg.Replicas) > 0 {
			replicas := make([]gorm.Dialector, 0, len(cfg.Replicas))
			for _, dsn := range cfg.Replicas {
				replicas = append(replicas, mysql.Open(dsn))
			}
			resolver := dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			}).
				SetMaxOpenConns(cfg.MaxOpenConns).
				SetMaxIdleConns(cfg.MaxIdleConns).
				SetConnMaxLifetime(cfg.ConnMaxLifetime)
			if err := db.Use(resolver); err != nil {
				return nil, fmt.Errorf("register dbresolver: %w", err)
			}
		}
	case config.DriverSQLite, "":
		db, err = gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
	default:
		return nil, fmt.Errorf("database: unknown driver %q", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if strings.ToLower(cfg.Driver) == config.DriverMySQL {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Close 关闭底层连接池。
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}
