package netsync

import (
	"capsulearena/geom"
	"capsulearena/movement"
)

// MoveMessage 网络同步的基本单位。
// 客户端发出时记录本地预测后的结果；服务器复制时记录权威结果，Sequence 为已处理的最后一个客户端序号
type MoveMessage struct {
	ID           string        `json:"id" msgpack:"id"`
	Sequence     uint64        `json:"sequence" msgpack:"sequence"`
	Timestamp    float64       `json:"timestamp" msgpack:"timestamp"`
	Dt           float64       `json:"dt" msgpack:"dt"`
	Pos          geom.Vec      `json:"pos" msgpack:"pos"`
	Velocity     geom.Vec      `json:"velocity" msgpack:"velocity"`
	Mode         movement.Mode `json:"mode" msgpack:"mode"`
	Acceleration geom.Vec      `json:"acceleration" msgpack:"acceleration"`
	PressedJump  bool          `json:"pressedJump" msgpack:"pressedJump"` // 本帧跳跃键是否按住

	// 回滚重放需要的其余移动状态：跳跃已按住的时间与行走时的地面
	JumpHoldTime float64               `json:"jumpHoldTime" msgpack:"jumpHoldTime"`
	Floor        *movement.FloorResult `json:"floor,omitempty" msgpack:"floor,omitempty"`
}

// Replication 服务器一次 Tick 的复制包
type Replication struct {
	Time     float64       `json:"time" msgpack:"time"`
	Tick     uint64        `json:"tick" msgpack:"tick"`
	Moves    []MoveMessage `json:"moves" msgpack:"moves"`
	Checksum uint64        `json:"checksum" msgpack:"checksum"` // 所有 Moves 的状态校验和
}

// Find 查找某个玩家的权威状态
func (r Replication) Find(id string) (MoveMessage, bool) {
	for _, m := range r.Moves {
		if m.ID == id {
			return m, true
		}
	}
	return MoveMessage{}, false
}

// PlayerView 渲染端只读视图
type PlayerView struct {
	ID       string        `json:"id"`
	Role     Role          `json:"role"`
	Pos      geom.Vec      `json:"pos"`
	Velocity geom.Vec      `json:"velocity"`
	Mode     movement.Mode `json:"mode"`
	Radius   float64       `json:"radius"`
	Half     float64       `json:"halfHeight"`
	Facing   int           `json:"facing"` // 速度方向：-1 左，1 右，0 静止
}
