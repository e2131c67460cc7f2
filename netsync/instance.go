package netsync

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"go.uber.org/zap"

	"capsulearena/debugdraw"
	"capsulearena/geom"
	"capsulearena/movement"
)

const (
	// DefaultInterval 默认步进间隔（60Hz）
	DefaultInterval = 1.0 / 60

	// maxCatchUpSteps 一次 Advance 最多补的步数，超出的累计时间丢弃
	maxCatchUpSteps = 5
)

// Conditions 模拟网络条件，作用于该 Instance 的所有连接
type Conditions struct {
	Lag         float64 `json:"lag"`
	LagVariance float64 `json:"lagVariance"`
	Loss        float64 `json:"loss"`
}

// Instance 一个独立的模拟世界（客户端或服务器）。独占场景引用与玩家表，单线程使用
type Instance struct {
	Name      string
	Interval  float64 // 真实时间步进间隔（秒）
	TimeScale float64

	Character movement.Config // 新角色使用的参数

	ctx         Context
	players     *orderedmap.OrderedMap[string, *Player]
	accumulated float64
	cond        Conditions
	seed        int64

	// 客户端：到服务器的连接与本地玩家
	link    *Link
	localID string

	lastReplication Replication
}

func NewInstance(name string, scene *geom.Scene, log *zap.SugaredLogger) *Instance {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	in := &Instance{
		Name:      name,
		Interval:  DefaultInterval,
		TimeScale: 1,
		Character: movement.DefaultConfig(),
		players:   orderedmap.NewOrderedMap[string, *Player](),
		seed:      1,
	}
	in.ctx = Context{
		TimeScale: 1,
		Log:       log.With("instance", name),
		Scene:     scene,
		Draw:      debugdraw.NewRecorder(debugdraw.Config{}),
	}
	return in
}

// Context 当前的模拟上下文（只读使用）
func (in *Instance) Context() *Context { return &in.ctx }

func (in *Instance) Scene() *geom.Scene { return in.ctx.Scene }

// SetDebug 打开或关闭调试绘制
func (in *Instance) SetDebug(cfg debugdraw.Config) {
	in.ctx.Debug = cfg
	in.ctx.Draw.SetConfig(cfg)
}

// DebugShapes 上一个 Tick 记录的调试图形
func (in *Instance) DebugShapes() []debugdraw.Shape { return in.ctx.Draw.Shapes() }

// Spawn 在 pos 处生成角色
func (in *Instance) Spawn(id string, pos geom.Vec, role Role) (*Player, error) {
	if _, ok := roleTicks[role]; !ok {
		return nil, fmt.Errorf("netsync: spawn %q: unknown role %s", id, role)
	}
	if _, ok := in.players.Get(id); ok {
		return nil, fmt.Errorf("netsync: spawn %q: already exists in %s", id, in.Name)
	}
	p := newPlayer(id, movement.NewCharacter(in.Character, pos), role)
	in.players.Set(id, p)
	if role == RoleAutonomous && in.localID == "" {
		in.localID = id
	}
	return p, nil
}

func (in *Instance) Player(id string) (*Player, bool) {
	return in.players.Get(id)
}

// Players 按加入顺序返回
func (in *Instance) Players() []*Player {
	out := make([]*Player, 0, in.players.Len())
	for el := in.players.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

func (in *Instance) Views() []PlayerView {
	out := make([]PlayerView, 0, in.players.Len())
	for el := in.players.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.View())
	}
	return out
}

// Advance 累计未缩放的真实时间，每满一个 Interval 步进一次，返回步进次数
func (in *Instance) Advance(elapsed float64) int {
	if in.Interval <= 0 {
		return 0
	}
	in.accumulated += elapsed
	steps := 0
	for in.accumulated >= in.Interval {
		in.accumulated -= in.Interval
		in.Step()
		steps++
		if steps >= maxCatchUpSteps {
			in.ctx.logger().Warnw("simulation falling behind", "dropped", in.accumulated)
			in.accumulated = 0
			break
		}
	}
	return steps
}

// Step 推进一个 Tick：收包 → 按角色分派 → 复制
func (in *Instance) Step() {
	ctx := &in.ctx
	ctx.TimeScale = in.TimeScale
	ctx.Dt = in.Interval * in.TimeScale
	ctx.Now += ctx.Dt
	ctx.Tick++
	ctx.Draw.Reset()

	in.receive()
	for el := in.players.Front(); el != nil; el = el.Next() {
		p := el.Value
		tick, ok := roleTicks[p.Role]
		if !ok {
			ctx.logger().Warnw("no tick for role", "player", p.ID, "role", p.Role.String())
			continue
		}
		tick(p, ctx)
	}
	in.replicate()
}

// receive 客户端处理服务器复制包
func (in *Instance) receive() {
	if in.link == nil || in.link.Down == nil {
		return
	}
	for {
		repl, ok := in.link.Down.Fetch(in.ctx.Now)
		if !ok {
			return
		}
		in.ApplyReplication(repl)
	}
}

// ApplyReplication 自己的角色排入校正，其它角色进入抖动缓冲；复制包里没有的远端角色移除
func (in *Instance) ApplyReplication(repl Replication) {
	ctx := &in.ctx
	present := make(map[string]bool, len(repl.Moves))
	for _, m := range repl.Moves {
		present[m.ID] = true
		if m.ID == in.localID {
			if p, ok := in.players.Get(m.ID); ok {
				p.queueCorrection(ctx, m)
			}
			continue
		}
		p, ok := in.players.Get(m.ID)
		if !ok {
			p = newPlayer(m.ID, movement.NewCharacter(in.Character, m.Pos), RoleSimulate)
			in.players.Set(m.ID, p)
			ctx.logger().Debugw("remote player appeared", "player", m.ID)
		}
		if p.Role == RoleSimulate {
			p.PushSnapshot(ctx, repl.Time, m)
		}
	}
	for _, p := range in.Players() {
		if p.Role == RoleSimulate && !present[p.ID] {
			in.players.Delete(p.ID)
			ctx.logger().Debugw("remote player gone", "player", p.ID)
		}
	}
}

// replicate 服务器把所有权威角色的状态打包，发给每个连接
func (in *Instance) replicate() {
	var moves []MoveMessage
	for el := in.players.Front(); el != nil; el = el.Next() {
		p := el.Value
		if p.Role == RoleAuthority {
			moves = append(moves, p.Snapshot(p.LastReceivedSequence, in.ctx.Now, in.ctx.Dt))
		}
	}
	if len(moves) == 0 {
		return
	}
	in.lastReplication = Replication{
		Time:     in.ctx.Now,
		Tick:     in.ctx.Tick,
		Moves:    moves,
		Checksum: StateChecksum(moves...),
	}
	for el := in.players.Front(); el != nil; el = el.Next() {
		p := el.Value
		if p.Role != RoleAuthority || p.link == nil || p.link.Down == nil {
			continue
		}
		if !p.link.Down.Push(in.ctx.Now, in.lastReplication) {
			p.Stats.Dropped++
		}
	}
}

// Replication 上一个 Tick 生成的复制包
func (in *Instance) Replication() Replication { return in.lastReplication }

func (in *Instance) nextSeed() int64 {
	in.seed += 2
	return in.seed
}

func (in *Instance) newLink(withDown bool) *Link {
	l := NewLink(in.nextSeed())
	if !withDown {
		l.Down = nil
	}
	l.SetConditions(in.cond.Lag, in.cond.LagVariance, in.cond.Loss)
	return l
}

// Connect 服务器接入一个进程内客户端：复制客户端的角色作为权威角色，两端共享一条 Link
func (in *Instance) Connect(client *Instance, id string) (*Link, error) {
	cp, ok := client.Player(id)
	if !ok {
		return nil, fmt.Errorf("netsync: connect %q: not found in %s", id, client.Name)
	}
	if cp.Role != RoleAutonomous {
		return nil, fmt.Errorf("netsync: connect %q: role %s is not autonomous", id, cp.Role)
	}
	if _, ok := in.players.Get(id); ok {
		return nil, fmt.Errorf("netsync: connect %q: already connected to %s", id, in.Name)
	}

	sp := newPlayer(id, cp.Character.Clone(), RoleAuthority)
	link := in.newLink(true)
	sp.link = link
	cp.link = link
	in.players.Set(id, sp)

	client.link = link
	client.localID = id
	// 两端的 Channel 时间戳需要在同一条时间线上
	client.ctx.Now = in.ctx.Now
	in.ctx.logger().Infow("client connected", "player", id, "client", client.Name)
	return link, nil
}

// Join 服务器接入一个远程（WebSocket）玩家：只有上行 Channel，复制包由调用方自己发送
func (in *Instance) Join(id string, pos geom.Vec) (*Player, error) {
	p, err := in.Spawn(id, pos, RoleAuthority)
	if err != nil {
		return nil, err
	}
	p.link = in.newLink(false)
	return p, nil
}

// Deliver 远程玩家的消息进入其上行 Channel
func (in *Instance) Deliver(id string, msg MoveMessage) bool {
	p, ok := in.players.Get(id)
	if !ok || p.link == nil {
		return false
	}
	msg.ID = id
	if !p.link.Up.Push(in.ctx.Now, msg) {
		p.Stats.Dropped++
		return false
	}
	return true
}

// Disconnect 同步清空连接与网络状态；服务器上的权威角色被移除
func (in *Instance) Disconnect(id string) {
	p, ok := in.players.Get(id)
	if !ok {
		return
	}
	if p.link != nil {
		p.link.Clear()
		p.link = nil
	}
	p.correction = nil
	p.LastReceivedSequence = 0
	if p.history != nil {
		p.history = orderedmap.NewOrderedMap[uint64, MoveMessage]()
	}

	if id == in.localID {
		in.link = nil
		for _, other := range in.Players() {
			if other.Role == RoleSimulate {
				in.players.Delete(other.ID)
			}
		}
	}
	if p.Role == RoleAuthority {
		in.players.Delete(id)
	}
	in.ctx.logger().Infow("disconnected", "player", id)
}

// SetConditions 修改网络条件，已有连接立即生效
func (in *Instance) SetConditions(c Conditions) {
	in.cond = c
	for el := in.players.Front(); el != nil; el = el.Next() {
		if l := el.Value.link; l != nil {
			l.SetConditions(c.Lag, c.LagVariance, c.Loss)
		}
	}
}

func (in *Instance) Conditions() Conditions { return in.cond }

// Teleport 直接放置角色并清零速度；权威端调用后由复制包把结果校正到客户端
func (in *Instance) Teleport(id string, pos geom.Vec) error {
	p, ok := in.players.Get(id)
	if !ok {
		return fmt.Errorf("netsync: teleport %q: not found in %s", id, in.Name)
	}
	if p.Role == RoleSimulate {
		return fmt.Errorf("netsync: teleport %q: simulated players follow the server", id)
	}
	p.Character.Teleport(pos)
	p.Character.Velocity = geom.Vec{}
	return nil
}
