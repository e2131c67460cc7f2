package netsync

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// StateChecksum 位置、速度与跳跃保持时间的位级摘要；两端结果相同说明模拟逐位一致
func StateChecksum(moves ...MoveMessage) uint64 {
	buf := make([]byte, 0, len(moves)*(8*5+9))
	for _, m := range moves {
		buf = binary.LittleEndian.AppendUint64(buf, m.Sequence)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Pos.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Pos.Y))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Velocity.X))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Velocity.Y))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.JumpHoldTime))
		buf = append(buf, byte(m.Mode))
	}
	return xxh3.Hash(buf)
}
