package netsync

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"capsulearena/debugdraw"
	"capsulearena/geom"
	"capsulearena/movement"
)

// Format 线上编码：JSON 走文本帧，msgpack 走二进制帧
type Format uint8

const (
	FormatJSON Format = iota
	FormatMsgpack
)

func (f Format) String() string {
	if f == FormatMsgpack {
		return "msgpack"
	}
	return "json"
}

// 消息类型
const (
	TypeMove        = "move"
	TypeReplication = "replication"
	TypeWelcome     = "welcome"
	TypeDebug       = "debug"
	TypeError       = "error"
)

// Welcome 连接建立后服务器发给客户端的第一条消息
type Welcome struct {
	PlayerID  string          `json:"playerId" msgpack:"playerId"`
	Spawn     geom.Vec        `json:"spawn" msgpack:"spawn"`
	Interval  float64         `json:"interval" msgpack:"interval"`
	Character movement.Config `json:"character" msgpack:"character"`
	Scene     *geom.Scene     `json:"scene" msgpack:"scene"`
}

// Envelope 所有线上消息的外层
type Envelope struct {
	Type        string            `json:"type" msgpack:"type"`
	Move        *MoveMessage      `json:"move,omitempty" msgpack:"move,omitempty"`
	Replication *Replication      `json:"replication,omitempty" msgpack:"replication,omitempty"`
	Welcome     *Welcome          `json:"welcome,omitempty" msgpack:"welcome,omitempty"`
	Shapes      []debugdraw.Shape `json:"shapes,omitempty" msgpack:"shapes,omitempty"`
	Error       string            `json:"error,omitempty" msgpack:"error,omitempty"`
}

func Encode(f Format, e Envelope) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch f {
	case FormatMsgpack:
		b, err = msgpack.Marshal(&e)
	default:
		b, err = json.Marshal(&e)
	}
	if err != nil {
		return nil, fmt.Errorf("netsync: encode %s %s: %w", f, e.Type, err)
	}
	return b, nil
}

func Decode(f Format, data []byte) (Envelope, error) {
	var (
		e   Envelope
		err error
	)
	switch f {
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &e)
	default:
		err = json.Unmarshal(data, &e)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("netsync: decode %s: %w", f, err)
	}
	if e.Type == TypeMove && e.Move == nil {
		return Envelope{}, fmt.Errorf("netsync: decode %s: move envelope without payload", f)
	}
	return e, nil
}
