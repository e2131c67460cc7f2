package movement

import (
	"math"

	"go.uber.org/zap"

	"capsulearena/debugdraw"
	"capsulearena/geom"
)

// Mode 移动模式
type Mode int

const (
	ModeNone Mode = iota
	ModeWalking
	ModeFalling
)

func (m Mode) String() string {
	switch m {
	case ModeWalking:
		return "walking"
	case ModeFalling:
		return "falling"
	default:
		return "none"
	}
}

// Info 每个角色的移动状态
type Info struct {
	Input        geom.Vec    `json:"input"` // 本帧累计的输入方向
	Mode         Mode        `json:"mode"`
	Floor        FloorResult `json:"floor"`
	PendingJump  bool        `json:"pendingJump"`
	JumpHeld     bool        `json:"jumpHeld"`
	JumpHoldTime float64     `json:"jumpHoldTime"`
	Teleported   bool        `json:"teleported"`
}

// Character 胶囊角色：出生时创建，每个 Tick 修改，断线/移除时销毁
type Character struct {
	Capsule      geom.Capsule
	Velocity     geom.Vec
	Acceleration geom.Vec
	Config       Config
	Info         Info
}

// NewCharacter 在 pos 处生成角色，模式为 none，首个 Tick 再决定行走或下落
func NewCharacter(cfg Config, pos geom.Vec) *Character {
	return &Character{
		Capsule: geom.NewCapsule(pos, cfg.HalfHeight, cfg.Radius),
		Config:  cfg,
	}
}

func (c *Character) Position() geom.Vec     { return c.Capsule.Center() }
func (c *Character) SetPosition(p geom.Vec) { c.Capsule.SetCenter(p) }

// Clone 深拷贝（交给另一个 Instance 时使用，避免共享）
func (c *Character) Clone() *Character {
	cp := *c
	return &cp
}

// AddInput 累计输入方向
func (c *Character) AddInput(v geom.Vec) {
	c.Info.Input = c.Info.Input.Add(v)
}

// ConsumeInput 取出并清空累计输入，换算为加速度（长度不超过 MaxAcceleration）
func (c *Character) ConsumeInput() geom.Vec {
	in := c.Info.Input
	c.Info.Input = geom.Vec{}
	if in.Len() > 1 {
		in = in.Normalize()
	}
	return in.Mul(c.Config.MaxAcceleration)
}

// SetJumpPressed 记录跳跃键状态；按下沿触发一次待处理跳跃
func (c *Character) SetJumpPressed(pressed bool) {
	if pressed && !c.Info.JumpHeld {
		c.Info.PendingJump = true
	}
	c.Info.JumpHeld = pressed
}

// Teleport 直接放置到 pos，本 Tick 不由位移推导速度
func (c *Character) Teleport(pos geom.Vec) {
	c.SetPosition(pos)
	c.Info.Teleported = true
	c.Info.Mode = ModeNone
	c.Info.Floor = FloorResult{}
}

// Env 一次 Tick 所需的外部依赖；场景只借用，不归角色所有
type Env struct {
	Scene *geom.Scene
	Log   *zap.SugaredLogger
	Draw  *debugdraw.Recorder
	Tag   string // 日志里标识角色
}

// mover 把角色和本 Tick 的环境绑定在一起
type mover struct {
	c     *Character
	scene *geom.Scene
	log   *zap.SugaredLogger
	draw  *debugdraw.Recorder
	tag   string
}

func newMover(c *Character, env Env) *mover {
	log := env.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &mover{c: c, scene: env.Scene, log: log, draw: env.Draw, tag: env.Tag}
}

// Tick 推进 dt 秒
func (c *Character) Tick(env Env, dt float64) {
	if dt < MinTickTime {
		return
	}
	m := newMover(c, env)
	m.performMovement(dt)
}

// FindFloor 以当前位置查找地面
func (c *Character) FindFloor(scene *geom.Scene) FloorResult {
	return FindFloor(scene, c.Config, c.Capsule, nil, c.Info.Mode == ModeWalking)
}

func (m *mover) performMovement(dt float64) {
	c := m.c
	if c.Info.Mode == ModeNone {
		c.Info.Floor = FindFloor(m.scene, c.Config, c.Capsule, nil, true)
		if c.Info.Floor.IsWalkableFloor() {
			m.setMode(ModeWalking, nil)
		} else {
			m.setMode(ModeFalling, nil)
		}
	}

	m.handleJump()

	m.startNewPhysics(dt, 0)
	c.Info.Teleported = false
	m.drawDebug()
}

// handleJump 行走时消费待处理的跳跃；空中按下则丢弃
func (m *mover) handleJump() {
	c := m.c
	if !c.Info.PendingJump {
		return
	}
	c.Info.PendingJump = false
	if c.Info.Mode != ModeWalking {
		return
	}
	c.Velocity.Y = -c.Config.JumpVelocity
	c.Info.JumpHoldTime = 0
	m.setMode(ModeFalling, nil)
}

func (m *mover) startNewPhysics(dt float64, iterations int) {
	if dt < MinTickTime || iterations >= MaxSimulationIterations {
		return
	}
	switch m.c.Info.Mode {
	case ModeWalking:
		m.physWalking(dt, iterations)
	case ModeFalling:
		m.physFalling(dt, iterations)
	}
}

// setMode 切换模式并触发 onMoveModeChange
func (m *mover) setMode(mode Mode, downSweep *geom.HitResult) {
	prev := m.c.Info.Mode
	if prev == mode {
		return
	}
	m.c.Info.Mode = mode
	m.onMoveModeChange(prev, downSweep)
}

func (m *mover) onMoveModeChange(prev Mode, downSweep *geom.HitResult) {
	c := m.c
	switch c.Info.Mode {
	case ModeWalking:
		c.Velocity.Y = 0
		c.Info.JumpHoldTime = 0
		c.Info.Floor = FindFloor(m.scene, c.Config, c.Capsule, downSweep, true)
		m.adjustFloorHeight()
	case ModeFalling:
		c.Info.Floor = FloorResult{}
	}
	m.log.Debugw("move mode change", "who", m.tag, "from", prev.String(), "to", c.Info.Mode.String())
}

// simulationTimeStep 把剩余时间切成不超过 MaxSimulationTimeStep 的子步
func simulationTimeStep(remaining float64, iterations int) float64 {
	if remaining > MaxSimulationTimeStep && iterations < MaxSimulationIterations {
		return math.Min(MaxSimulationTimeStep, remaining*0.5)
	}
	return remaining
}

func (m *mover) drawDebug() {
	if !m.draw.Enabled() {
		return
	}
	c := m.c
	a, b := c.Capsule.Spine()
	m.draw.Line(a, b, "#4caf50")
	m.draw.Arrow(c.Position(), c.Position().Add(c.Velocity.Mul(0.1)), "#2196f3")
	if c.Info.Floor.BlockingHit {
		color := "#f44336"
		if c.Info.Floor.IsWalkableFloor() {
			color = "#8bc34a"
		}
		m.draw.Point(c.Info.Floor.HitResult.ImpactPoint, 3, color)
	}
}
