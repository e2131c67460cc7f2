package server

import "capsulearena/netsync"

// PlayerID 表示玩家唯一标识
type PlayerID string

// Player 房间内的一个连接。模拟状态在 Room 的 Instance 里，这里只记录网络侧信息
type Player struct {
	ID     PlayerID
	Format netsync.Format // 客户端使用的编码，由连接时的 format 查询参数确定

	// lastSeq 已转交给 Instance 的最大序号，更旧的输入直接在房间层丢弃
	lastSeq uint64

	Conn *ClientConn // 网络连接的发送端（写协程）
}
