package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ==================== Repository 层统一错误定义 ====================

var (
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrVersionConflict 乐观锁 CAS 失败（行已被并发修改或删除）
	ErrVersionConflict = errors.New("version conflict")

	// ErrDatabase 数据库操作错误
	ErrDatabase = errors.New("database error")
)

// wrapError 通用错误包装函数
// rules: 映射规则 map[源错误]目标错误；未命中时包装 defaultErr 并保留原始信息
func wrapError(err error, rules map[error]error, defaultErr error) error {
	if err == nil {
		return nil
	}

	for source, target := range rules {
		if errors.Is(err, source) {
			return target
		}
	}

	return fmt.Errorf("%w: %v", defaultErr, err)
}

var (
	// dbErrorRules 数据库错误映射规则（已是仓储层错误的直接透传）
	dbErrorRules = map[error]error{
		gorm.ErrRecordNotFound: ErrRecordNotFound,
		gorm.ErrDuplicatedKey:  ErrDuplicateKey,
		ErrRecordNotFound:      ErrRecordNotFound,
		ErrDuplicateKey:        ErrDuplicateKey,
		ErrVersionConflict:     ErrVersionConflict,
	}
)

// WrapDBError 包装数据库错误
func WrapDBError(err error) error {
	if err != nil && isDuplicateKeyMessage(err) {
		return ErrDuplicateKey
	}
	return wrapError(err, dbErrorRules, ErrDatabase)
}

// isDuplicateKeyMessage 兜底识别未被方言翻译的唯一键冲突
// MySQL: Error 1062 Duplicate entry；SQLite: UNIQUE constraint failed
func isDuplicateKeyMessage(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
