package util

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeMu   sync.Mutex
	snowflakeNode *snowflake.Node
)

// InitSnowflake 初始化 ID 生成节点，node 取值 0~1023，多实例部署需保证唯一。
func InitSnowflake(node int64) error {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return err
	}
	snowflakeMu.Lock()
	snowflakeNode = n
	snowflakeMu.Unlock()
	return nil
}

// NextID 生成全局递增 ID。未初始化时使用节点 1。
func NextID() int64 {
	snowflakeMu.Lock()
	defer snowflakeMu.Unlock()
	if snowflakeNode == nil {
		snowflakeNode, _ = snowflake.NewNode(1)
	}
	return snowflakeNode.Generate().Int64()
}
