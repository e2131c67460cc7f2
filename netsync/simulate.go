package netsync

// InterpolationDelay 远端角色回放落后最新快照的时间（秒）
const InterpolationDelay = 0.1

type snapshot struct {
	time float64
	msg  MoveMessage
}

// jitterBuffer 按服务器时间排序的远端快照，延迟回放以吸收到达时间的抖动
type jitterBuffer struct {
	snaps   []snapshot
	clock   float64
	latest  float64
	started bool
}

func newJitterBuffer() *jitterBuffer { return &jitterBuffer{} }

// push 乱序或重复的快照直接丢弃
func (j *jitterBuffer) push(t float64, msg MoveMessage) bool {
	if j.started && t <= j.latest {
		return false
	}
	j.snaps = append(j.snaps, snapshot{time: t, msg: msg})
	j.latest = t
	if !j.started {
		j.clock = t - InterpolationDelay
		j.started = true
	}
	return true
}

// sample 推进回放时钟并在相邻两帧之间线性插值；缓冲耗尽时停在最后一帧
func (j *jitterBuffer) sample(dt float64) (MoveMessage, bool) {
	if len(j.snaps) == 0 {
		return MoveMessage{}, false
	}
	j.clock += dt
	if j.latest-j.clock > 2*InterpolationDelay {
		j.clock = j.latest - InterpolationDelay
	}
	for len(j.snaps) >= 2 && j.snaps[1].time <= j.clock {
		j.snaps = j.snaps[1:]
	}

	a := j.snaps[0]
	if len(j.snaps) == 1 || j.clock <= a.time {
		return a.msg, true
	}
	b := j.snaps[1]
	alpha := (j.clock - a.time) / (b.time - a.time)
	out := a.msg
	out.Pos = a.msg.Pos.Add(b.msg.Pos.Sub(a.msg.Pos).Mul(alpha))
	out.Velocity = a.msg.Velocity.Add(b.msg.Velocity.Sub(a.msg.Velocity).Mul(alpha))
	return out, true
}

func (j *jitterBuffer) len() int { return len(j.snaps) }

func tickSimulate(p *Player, ctx *Context) {
	msg, ok := p.jitter.sample(ctx.Dt)
	if !ok {
		return
	}
	c := p.Character
	c.SetPosition(msg.Pos)
	c.Velocity = msg.Velocity
	c.Info.Mode = msg.Mode
}

// PushSnapshot 远端角色收到一帧服务器状态
func (p *Player) PushSnapshot(ctx *Context, serverTime float64, msg MoveMessage) bool {
	if p.misuse(ctx, "PushSnapshot", RoleSimulate) {
		return false
	}
	if !p.jitter.push(serverTime, msg) {
		p.Stats.Stale++
		return false
	}
	return true
}
