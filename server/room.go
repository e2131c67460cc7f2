package server

import (
	"sync"
	"sync/atomic"
	"time"

	"capsulearena/debugdraw"
	"capsulearena/geom"
	"capsulearena/netsync"
)

type joinRequest struct {
	id     PlayerID
	conn   *ClientConn
	format netsync.Format
}

// RoomStatus Tick 协程发布给 HTTP 接口的只读快照
type RoomStatus struct {
	Tick     uint64                         `json:"tick"`
	SimTime  float64                        `json:"simTime"`
	Checksum uint64                         `json:"checksum"`
	Players  []netsync.PlayerView           `json:"players"`
	Stats    map[string]netsync.PlayerStats `json:"stats"`
}

// Room 房间世界：权威状态由 netsync.Instance 维护，只在 Tick 协程里访问
type Room struct {
	ID string

	Players   map[PlayerID]*Player
	inputChan chan Input
	joinChan  chan joinRequest
	leaveChan chan leaveRequest

	instance *netsync.Instance
	spawn    geom.Vec
	metrics  *RoomMetrics
	tickSeq  atomic.Uint64
	status   atomic.Pointer[RoomStatus]

	// 配置：admin 接口写 cfg，Tick 开始时同步到 applied
	cfgMu    sync.Mutex
	cfg      RoomConfig
	cfgDirty bool
	applied  RoomConfig

	inputsThisTick map[PlayerID]int
	lastTick       time.Time

	tickerStarted bool
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, scene *geom.Scene, spawn geom.Vec, cfg RoomConfig) *Room {
	r := &Room{
		ID:             id,
		Players:        make(map[PlayerID]*Player),
		inputChan:      make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:       make(chan joinRequest, 64),
		leaveChan:      make(chan leaveRequest, 64),
		instance:       netsync.NewInstance(id, scene, Log.With("room", id)),
		spawn:          spawn,
		metrics:        &RoomMetrics{},
		cfg:            cfg,
		cfgDirty:       true,
		inputsThisTick: make(map[PlayerID]int),
		stop:           make(chan struct{}),
	}
	r.status.Store(&RoomStatus{})
	return r
}

// Config 当前配置（可能尚未在 Tick 中生效）
func (r *Room) Config() RoomConfig {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	return r.cfg
}

// UpdateConfig 修改配置；校验失败时不生效
func (r *Room) UpdateConfig(fn func(*RoomConfig)) (RoomConfig, error) {
	r.cfgMu.Lock()
	defer r.cfgMu.Unlock()
	next := r.cfg
	fn(&next)
	if err := next.Validate(); err != nil {
		return r.cfg, err
	}
	r.cfg = next
	r.cfgDirty = true
	return next, nil
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

func (r *Room) Status() RoomStatus { return *r.status.Load() }

// JoinPlayer 请求在 Tick 线程中加入玩家；房间已停止时返回 false
func (r *Room) JoinPlayer(id PlayerID, conn *ClientConn, format netsync.Format) bool {
	select {
	case <-r.stop:
		return false
	default:
	}
	select {
	case r.joinChan <- joinRequest{id: id, conn: conn, format: format}:
		return true
	case <-r.stop:
		return false
	}
}

func (r *Room) join(req joinRequest) {
	if old, ok := r.Players[req.id]; ok {
		// 同名重连：踢掉旧连接
		Log.Infow("player replaced", "room", r.ID, "player", req.id)
		r.LeavePlayer(old.ID)
	}
	if _, err := r.instance.Join(string(req.id), r.spawn); err != nil {
		Log.Warnw("join failed", "room", r.ID, "player", req.id, "err", err)
		if req.conn != nil {
			r.send(req.conn, req.format, netsync.Envelope{Type: netsync.TypeError, Error: err.Error()})
			req.conn.Close()
		}
		return
	}
	p := &Player{ID: req.id, Format: req.format, Conn: req.conn}
	r.Players[req.id] = p
	Log.Infow("player joined", "room", r.ID, "player", req.id, "format", req.format.String())

	if p.Conn != nil {
		r.send(p.Conn, p.Format, netsync.Envelope{
			Type: netsync.TypeWelcome,
			Welcome: &netsync.Welcome{
				PlayerID:  string(p.ID),
				Spawn:     r.spawn,
				Interval:  r.instance.Interval,
				Character: r.instance.Character,
				Scene:     r.instance.Scene(),
			},
		})
	}
}

// LeavePlayer 将玩家移出房间
func (r *Room) LeavePlayer(id PlayerID) {
	p, ok := r.Players[id]
	if !ok {
		return
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	r.instance.Disconnect(string(id))
	delete(r.Players, id)
	delete(r.inputsThisTick, id)
	Log.Infow("player left", "room", r.ID, "player", id)
}

// OnInput 入站输入（不立即改变状态），等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	select {
	case r.inputChan <- in:
	default:
		// 丢弃：为了实时性，避免背压影响世界推进
		r.metrics.IncChanFullDiscarded()
	}
}

// RequestLeave 请求在 Tick 线程中移除玩家，避免并发改动房间状态。
// conn 是发起请求的连接；同名玩家已换成新连接时请求被忽略
func (r *Room) RequestLeave(pid PlayerID, conn *ClientConn) {
	select {
	case r.leaveChan <- leaveRequest{id: pid, conn: conn}:
	case <-r.stop:
	}
}

type leaveRequest struct {
	id   PlayerID
	conn *ClientConn
}

func (r *Room) leave(req leaveRequest) {
	p, ok := r.Players[req.id]
	if !ok {
		return
	}
	if p.Conn != req.conn {
		Log.Debugw("stale leave ignored", "room", r.ID, "player", req.id)
		return
	}
	r.LeavePlayer(req.id)
}

// BeginTick 重置帧内计数并同步配置
func (r *Room) BeginTick() bool {
	r.tickSeq.Add(1)
	clear(r.inputsThisTick)
	return r.syncConfig()
}

// syncConfig 把 admin 的修改应用到 Instance；返回 Tick 间隔是否变化
func (r *Room) syncConfig() bool {
	r.cfgMu.Lock()
	dirty := r.cfgDirty
	cfg := r.cfg
	r.cfgDirty = false
	r.cfgMu.Unlock()
	if !dirty {
		return false
	}

	intervalChanged := cfg.TickMs != r.applied.TickMs
	r.applied = cfg
	r.instance.Interval = cfg.TickInterval().Seconds()
	r.instance.TimeScale = cfg.TimeScale
	r.instance.SetConditions(cfg.conditions())
	r.instance.SetDebug(debugdraw.Config{Enabled: cfg.DebugDraw})
	Log.Infow("room config applied", "room", r.ID, "tickMs", cfg.TickMs, "timeScale", cfg.TimeScale,
		"delay", []int{cfg.SimulateDelayMinMs, cfg.SimulateDelayMaxMs}, "drop", cfg.SimulateDropProb)
	return intervalChanged
}

// ProcessInputs 先处理加入，再处理当前帧的输入与离开（非阻塞 drain）
func (r *Room) ProcessInputs() {
	for drained := false; !drained; {
		select {
		case req := <-r.joinChan:
			r.join(req)
		default:
			drained = true
		}
	}
	for {
		select {
		case req := <-r.leaveChan:
			r.leave(req)
		case in := <-r.inputChan:
			r.accept(in)
		default:
			return
		}
	}
}

func (r *Room) accept(in Input) {
	p, ok := r.Players[in.PlayerID]
	if !ok {
		return
	}
	if in.Conn != nil && in.Conn != p.Conn {
		// 被替换的旧连接还没读完的消息
		return
	}
	r.inputsThisTick[in.PlayerID]++
	if r.inputsThisTick[in.PlayerID] > r.applied.MaxInputsPerTick {
		r.metrics.IncRateLimited()
		return
	}
	if in.Move.Sequence <= p.lastSeq {
		r.metrics.IncOldSeqIgnored()
		return
	}
	p.lastSeq = in.Move.Sequence
	if !r.instance.Deliver(string(in.PlayerID), in.Move) {
		r.metrics.IncDropsSimulated()
		return
	}
	r.metrics.IncAccepted()
}

// UpdateWorld 按真实流逝时间推进 Instance，返回步进次数
func (r *Room) UpdateWorld(elapsed time.Duration) int {
	steps := r.instance.Advance(elapsed.Seconds())
	r.metrics.AddSteps(steps)
	return steps
}

// BroadcastDelta 把本 Tick 的复制包发给所有玩家，每种编码只编码一次
func (r *Room) BroadcastDelta(steps int) {
	if steps == 0 {
		return
	}
	repl := r.instance.Replication()
	shapes := r.instance.DebugShapes()

	cache := map[netsync.Format][][]byte{}
	for _, p := range r.Players {
		if p.Conn == nil {
			continue
		}
		frames, ok := cache[p.Format]
		if !ok {
			frames = r.encodeFrames(p.Format, repl, shapes)
			cache[p.Format] = frames
		}
		for _, b := range frames {
			p.Conn.Enqueue(p.Format, b)
		}
	}
	r.publish(repl)
}

func (r *Room) encodeFrames(f netsync.Format, repl netsync.Replication, shapes []debugdraw.Shape) [][]byte {
	var frames [][]byte
	b, err := netsync.Encode(f, netsync.Envelope{Type: netsync.TypeReplication, Replication: &repl})
	if err != nil {
		Log.Errorw("encode replication", "room", r.ID, "err", err)
		return nil
	}
	frames = append(frames, b)
	if len(shapes) > 0 {
		if b, err := netsync.Encode(f, netsync.Envelope{Type: netsync.TypeDebug, Shapes: shapes}); err == nil {
			frames = append(frames, b)
		}
	}
	return frames
}

func (r *Room) send(c *ClientConn, f netsync.Format, env netsync.Envelope) {
	b, err := netsync.Encode(f, env)
	if err != nil {
		Log.Errorw("encode", "room", r.ID, "type", env.Type, "err", err)
		return
	}
	c.Enqueue(f, b)
}

func (r *Room) publish(repl netsync.Replication) {
	st := &RoomStatus{
		Tick:     r.tickSeq.Load(),
		SimTime:  r.instance.Context().Now,
		Checksum: repl.Checksum,
		Players:  r.instance.Views(),
		Stats:    make(map[string]netsync.PlayerStats),
	}
	for _, p := range r.instance.Players() {
		st.Stats[p.ID] = p.Stats
	}
	r.status.Store(st)
}

// Stop 停止 Tick 循环并断开所有玩家，可重复调用
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
