package server

import (
	"fmt"

	"capsulearena/netsync"
)

// Input 客户端的一条移动消息，由 Tick 协程转交给 Instance
type Input struct {
	PlayerID PlayerID
	Conn     *ClientConn // 来源连接；为空时不校验
	Move     netsync.MoveMessage
}

// parseInput 解码一帧入站数据，只接受 move 消息
func parseInput(f netsync.Format, payload []byte) (netsync.MoveMessage, error) {
	env, err := netsync.Decode(f, payload)
	if err != nil {
		return netsync.MoveMessage{}, err
	}
	if env.Type != netsync.TypeMove {
		return netsync.MoveMessage{}, fmt.Errorf("unexpected message type %q", env.Type)
	}
	return *env.Move, nil
}
