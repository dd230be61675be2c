package rediskey

import (
	"fmt"
	"time"
)

// ==================== TTL 常量 ====================

const (
	// DeviceActiveTTL 设备活跃时间缓存 TTL
	DeviceActiveTTL = 45 * 24 * time.Hour
)

// ==================== Key 构造函数 ====================

// DeviceActiveKey 生成设备活跃时间 Key: status:devices:active:{user_name}
func DeviceActiveKey(userName string) string {
	return fmt.Sprintf("status:devices:active:%s", userName)
}

// RegistryIdentityKey 生成某身份的在线连接集合 Key: status:registry:identity:{user_name}
// 类型 SET，成员为 connection_id。
func RegistryIdentityKey(userName string) string {
	return fmt.Sprintf("status:registry:identity:%s", userName)
}

// RegistryConnKey 生成单条连接信息 Key: status:registry:conn:{connection_id}
// 类型 HASH，字段 identity / connected_at。
func RegistryConnKey(connectionID string) string {
	return fmt.Sprintf("status:registry:conn:%s", connectionID)
}

// UserRateLimitKey 用户限流 Key: status:rate:limit:user:{user_name}
func UserRateLimitKey(userName string) string {
	return fmt.Sprintf("status:rate:limit:user:%s", userName)
}
