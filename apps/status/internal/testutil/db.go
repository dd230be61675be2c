// Package testutil 提供测试用的内存数据库等基础设施，无需外部服务。
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"StatusServer/config"
	"StatusServer/model"
	"StatusServer/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// SetupTestDB 为每个测试创建独立的 sqlite 内存库并执行 AutoMigrate。
// 使用命名 shared-cache 内存库，测试之间互不可见，可安全并行。
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:status_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.Build(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    dsn,
	})
	require.NoError(t, err, "SetupTestDB: Build")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// SeedUsers 批量插入用户资料，名字按 "First_<name>" 规则生成。
func SeedUsers(t *testing.T, db *gorm.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, db.Create(&model.User{
			UserName:  name,
			FirstName: "First_" + name,
			LastName:  "Last_" + name,
		}).Error)
	}
}
