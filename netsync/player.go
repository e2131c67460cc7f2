package netsync

import (
	"math"

	"github.com/elliotchance/orderedmap/v2"

	"capsulearena/geom"
	"capsulearena/movement"
)

const (
	// MaxMoveDt 服务器接受的单条消息最大步长
	MaxMoveDt = 0.25

	// MaxHistory 未确认历史的上限，超过时丢弃最旧的
	MaxHistory = 256
)

// Player 网络角色：移动状态加上角色身份与序号
type Player struct {
	ID        string
	Character *movement.Character
	Role      Role
	Input     Input

	// Sequence 本端发出的最大序号；LastReceivedSequence 已接受的对端最大序号
	Sequence             uint64
	LastReceivedSequence uint64

	history *orderedmap.OrderedMap[uint64, MoveMessage]
	link    *Link

	// autonomous：等待处理的服务器校正
	correction *MoveMessage
	// simulate：抖动缓冲
	jitter *jitterBuffer

	Stats PlayerStats
}

// PlayerStats 每个玩家的同步统计
type PlayerStats struct {
	Applied     uint64 `json:"applied"`
	Stale       uint64 `json:"stale"`
	Corrections uint64 `json:"corrections"`
	Replayed    uint64 `json:"replayed"`
	Dropped     uint64 `json:"dropped"`
}

func newPlayer(id string, c *movement.Character, role Role) *Player {
	p := &Player{ID: id, Character: c, Role: role}
	switch role {
	case RoleAutonomous:
		p.history = orderedmap.NewOrderedMap[uint64, MoveMessage]()
	case RoleSimulate:
		p.jitter = newJitterBuffer()
	}
	return p
}

// ApplyMove 以消息里的输入推进角色一步。预测、服务器处理和重放都走这里
func (p *Player) ApplyMove(ctx *Context, msg MoveMessage) {
	c := p.Character
	c.Acceleration = msg.Acceleration
	c.SetJumpPressed(msg.PressedJump)
	c.Tick(ctx.env(p.ID), msg.Dt)
}

// Snapshot 当前状态作为一条 MoveMessage
func (p *Player) Snapshot(seq uint64, now, dt float64) MoveMessage {
	c := p.Character
	msg := MoveMessage{
		ID:           p.ID,
		Sequence:     seq,
		Timestamp:    now,
		Dt:           dt,
		Acceleration: c.Acceleration,
		PressedJump:  c.Info.JumpHeld,
	}
	recordState(&msg, c)
	return msg
}

// recordState 记录一个 Tick 结束时的完整移动状态
func recordState(msg *MoveMessage, c *movement.Character) {
	msg.Pos = c.Position()
	msg.Velocity = c.Velocity
	msg.Mode = c.Info.Mode
	msg.JumpHoldTime = c.Info.JumpHoldTime
	msg.Floor = nil
	if c.Info.Mode == movement.ModeWalking {
		floor := c.Info.Floor
		msg.Floor = &floor
	}
}

// restore 把角色重置到某条消息记录的 Tick 末状态。
// Tick 末的 Input、PendingJump、Teleported 总是空的，其余字段都来自消息
func (p *Player) restore(ctx *Context, msg MoveMessage) {
	c := p.Character
	c.SetPosition(msg.Pos)
	c.Velocity = msg.Velocity
	c.Acceleration = msg.Acceleration
	c.Info.Mode = msg.Mode
	c.Info.JumpHeld = msg.PressedJump
	c.Info.JumpHoldTime = msg.JumpHoldTime
	c.Info.Input = geom.Vec{}
	c.Info.PendingJump = false
	c.Info.Teleported = false
	switch {
	case msg.Floor != nil:
		c.Info.Floor = *msg.Floor
	case msg.Mode == movement.ModeWalking:
		// 没带地面的旧消息：按当前位置重新查找
		c.Info.Floor = c.FindFloor(ctx.Scene)
	default:
		c.Info.Floor = movement.FloorResult{}
	}
}

// HistoryLen 未确认的历史条数
func (p *Player) HistoryLen() int {
	if p.history == nil {
		return 0
	}
	return p.history.Len()
}

// View 渲染端视图
func (p *Player) View() PlayerView {
	c := p.Character
	facing := 0
	if math.Abs(c.Velocity.X) > geom.KindaSmall {
		facing = int(math.Copysign(1, c.Velocity.X))
	}
	return PlayerView{
		ID:       p.ID,
		Role:     p.Role,
		Pos:      c.Position(),
		Velocity: c.Velocity,
		Mode:     c.Info.Mode,
		Radius:   c.Capsule.Radius(),
		Half:     c.Capsule.HalfHeight(),
		Facing:   facing,
	}
}

// sanitize 限制客户端消息的步长与加速度
func sanitize(msg MoveMessage, cfg movement.Config) (MoveMessage, bool) {
	if math.IsNaN(msg.Dt) || msg.Dt <= 0 {
		return msg, false
	}
	if math.IsNaN(msg.Acceleration.X) || math.IsNaN(msg.Acceleration.Y) {
		return msg, false
	}
	msg.Dt = math.Min(msg.Dt, MaxMoveDt)
	if msg.Acceleration.Len() > cfg.MaxAcceleration {
		msg.Acceleration = msg.Acceleration.Normalize().Mul(cfg.MaxAcceleration)
	}
	return msg, true
}
