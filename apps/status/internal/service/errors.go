package service

import (
	"errors"
	"fmt"
)

// 业务层错误，仓储层错误不会直接越过 service 边界。
var (
	// ErrNotFound 引用的用户不存在，直接返回调用方，不重试
	ErrNotFound = errors.New("not found")

	// ErrConflict 关系已存在，或事务提交失败（并发修改、存储不可用），重新发起同一请求是安全的
	ErrConflict = errors.New("conflict")

	// ErrInvalidState 操作引用的关系一侧缺失或不匹配，说明调用方状态不同步
	ErrInvalidState = errors.New("invalid state")

	// ErrUnavailable 只读查询时存储不可用
	ErrUnavailable = errors.New("store unavailable")

	// ErrAlreadyExists 两人之间已有关系（任意状态），属于 ErrConflict
	ErrAlreadyExists = fmt.Errorf("%w: relationship exists", ErrConflict)

	// ErrSelfRelationship 不能与自己建立关系
	ErrSelfRelationship = fmt.Errorf("%w: self relationship", ErrInvalidState)
)
