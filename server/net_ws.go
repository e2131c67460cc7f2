package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"capsulearena/netsync"
)

type frame struct {
	format netsync.Format
	data   []byte
}

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws   *websocket.Conn
	send chan frame
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan frame, 64),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）；只在 Tick 协程调用
func (c *ClientConn) Enqueue(f netsync.Format, b []byte) {
	if c.send == nil {
		return
	}
	select {
	case c.send <- frame{format: f, data: b}:
	default:
		// 为了实时性，丢弃（防止阻塞 Tick）
	}
}

// Close 关闭底层连接与发送队列
func (c *ClientConn) Close() {
	if c.send != nil {
		// 关闭发送通道以结束写协程
		close(c.send)
		c.send = nil
	}
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

// messageType msgpack 走二进制帧，JSON 走文本帧
func messageType(f netsync.Format) int {
	if f == netsync.FormatMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *ClientConn) writePump(send <-chan frame) {
	defer c.ws.Close()
	for fr := range send {
		c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.ws.WriteMessage(messageType(fr.format), fr.data); err != nil {
			return
		}
	}
}

// readPump 读取客户端的 MoveMessage，注入房间
func (c *ClientConn) readPump(room *Room, playerID PlayerID) {
	defer c.ws.Close()
	// 读泵退出时，通知房间在 Tick 线程中移除该玩家
	defer room.RequestLeave(playerID, c)
	c.ws.SetReadLimit(1 << 20) // 1MB
	c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		mt, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnw("ws read", "room", room.ID, "player", playerID, "err", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(60 * time.Second))

		f := netsync.FormatJSON
		if mt == websocket.BinaryMessage {
			f = netsync.FormatMsgpack
		}
		move, err := parseInput(f, payload)
		if err != nil {
			room.metrics.IncDecodeErrors()
			Log.Debugw("bad input", "room", room.ID, "player", playerID, "err", err)
			continue
		}
		room.OnInput(Input{PlayerID: playerID, Conn: c, Move: move})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?room=room-1&player=alice&format=msgpack
// 未给出 player 时分配一个匿名 ID
func HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		roomID = "room-1"
	}
	playerID := q.Get("player")
	if playerID == "" {
		playerID = "anon-" + uuid.NewString()
	}
	format := netsync.FormatJSON
	switch q.Get("format") {
	case "", "json":
	case "msgpack":
		format = netsync.FormatMsgpack
	default:
		http.Error(w, "format must be json or msgpack", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade error", "err", err)
		return
	}

	room := GetRoomManager().GetOrCreateRoom(roomID)

	client := NewClientConn(ws)
	go client.writePump(client.send)
	if !room.JoinPlayer(PlayerID(playerID), client, format) {
		client.Close()
		return
	}
	go client.readPump(room, PlayerID(playerID))
}
