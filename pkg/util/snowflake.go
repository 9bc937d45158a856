package util

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeOnce sync.Once
)

// InitSnowflake 初始化雪花算法节点（多实例部署时 nodeID 必须不同）。
func InitSnowflake(nodeID int64) {
	snowflakeOnce.Do(func() {
		node, err := snowflake.NewNode(nodeID)
		if err != nil {
			panic(err)
		}
		snowflakeNode = node
	})
}

// NextID 生成全局唯一 id，未初始化时按节点 1 懒加载。
func NextID() int64 {
	InitSnowflake(1)
	return snowflakeNode.Generate().Int64()
}
