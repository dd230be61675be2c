package consts

// 通用错误码
const (
	CodeSuccess = 0 // 成功
)

// 客户端错误 (1xxxx)
const (
	CodeParamError       = 10001 // 参数验证失败
	CodeBodyError        = 10002 // 请求体格式错误
	CodeResourceNotFound = 10003 // 资源不存在
	CodeTooManyRequests  = 10005 // 请求过于频繁
)

// 认证错误 (2xxxx)
const (
	CodeUnauthorized = 20001 // 未认证
	CodeInvalidToken = 20002 // Token 无效
)

// 用户模块错误 (11xxx)
const (
	CodeUserNotFound     = 11001 // 用户不存在
	CodeUserAlreadyExist = 11002 // 用户已存在
)

// 好友模块错误 (12xxx)
const (
	CodeFriendshipExists       = 12001 // 好友关系已存在
	CodeFriendshipConflict     = 12002 // 好友关系状态冲突（并发修改或提交失败，可重试）
	CodeFriendshipInvalidState = 12003 // 好友关系状态不合法（缺失一侧或不匹配）
	CodeNotFriend              = 12004 // 不是好友
)

// 消息模块错误 (13xxx)
const (
	CodeMessageSendFail = 13002 // 消息发送失败
)

// 服务端错误 (3xxxx)
const (
	CodeInternalError      = 30001 // 服务器内部错误
	CodeServiceUnavailable = 30002 // 服务暂不可用
	CodeTimeoutError       = 30003 // 请求超时
)

// 错误消息映射
var CodeMessage = map[int32]string{
	CodeSuccess: "success",

	// 客户端错误
	CodeParamError:       "参数验证失败",
	CodeBodyError:        "请求体格式错误",
	CodeResourceNotFound: "资源不存在",
	CodeTooManyRequests:  "请求过于频繁",

	// 认证错误
	CodeUnauthorized: "未认证",
	CodeInvalidToken: "Token 无效",

	// 用户模块
	CodeUserNotFound:     "用户不存在",
	CodeUserAlreadyExist: "用户已存在",

	// 好友模块
	CodeFriendshipExists:       "好友关系已存在",
	CodeFriendshipConflict:     "好友关系已被修改，请重试",
	CodeFriendshipInvalidState: "好友关系状态不正确",
	CodeNotFriend:              "不是好友",

	// 消息模块
	CodeMessageSendFail: "消息发送失败",

	// 服务端错误
	CodeInternalError:      "服务器内部错误",
	CodeServiceUnavailable: "服务暂不可用",
	CodeTimeoutError:       "请求超时",
}

// GetMessage 根据错误码获取错误消息
func GetMessage(code int32) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}
