package netsync

func tickAutonomous(p *Player, ctx *Context) {
	if p.correction != nil {
		corr := *p.correction
		p.correction = nil
		p.Reconcile(ctx, corr)
	}
	msg := p.Predict(ctx)
	if p.link != nil && !p.link.Up.Push(ctx.Now, msg) {
		p.Stats.Dropped++
	}
}

// Predict 采样输入、生成新序号并在本地先行模拟，结果记入历史
func (p *Player) Predict(ctx *Context) MoveMessage {
	if p.misuse(ctx, "Predict", RoleAutonomous) {
		return MoveMessage{}
	}
	c := p.Character
	c.AddInput(p.Input.Axis())
	p.Sequence++
	msg := MoveMessage{
		ID:           p.ID,
		Sequence:     p.Sequence,
		Timestamp:    ctx.Now,
		Dt:           ctx.Dt,
		Acceleration: c.ConsumeInput(),
		PressedJump:  p.Input.Held(ActionJump),
	}
	p.ApplyMove(ctx, msg)
	recordState(&msg, c)

	p.history.Set(msg.Sequence, msg)
	for p.history.Len() > MaxHistory {
		p.history.Delete(p.history.Front().Key)
	}
	return msg
}

// Reconcile 收到服务器的权威状态：丢掉已确认的历史；
// 预测与权威不一致时回到权威状态并重放剩余历史
func (p *Player) Reconcile(ctx *Context, auth MoveMessage) bool {
	if p.misuse(ctx, "Reconcile", RoleAutonomous) {
		return false
	}
	if auth.Sequence <= p.LastReceivedSequence {
		p.Stats.Stale++
		return false
	}
	p.LastReceivedSequence = auth.Sequence

	predicted, known := p.history.Get(auth.Sequence)
	for el := p.history.Front(); el != nil && el.Key <= auth.Sequence; el = p.history.Front() {
		p.history.Delete(el.Key)
	}
	if known && StateChecksum(predicted) == StateChecksum(auth) {
		return false
	}

	p.Stats.Corrections++
	ctx.logger().Debugw("reconcile",
		"player", p.ID,
		"seq", auth.Sequence,
		"predicted", predicted.Pos,
		"authoritative", auth.Pos,
		"replay", p.history.Len())

	p.restore(ctx, auth)
	for el := p.history.Front(); el != nil; el = el.Next() {
		p.ApplyMove(ctx, el.Value)
		m := el.Value
		recordState(&m, p.Character)
		el.Value = m
		p.Stats.Replayed++
	}
	return true
}

// queueCorrection 同一 Tick 收到多个复制包时只保留序号最大的
func (p *Player) queueCorrection(ctx *Context, m MoveMessage) {
	if p.misuse(ctx, "queueCorrection", RoleAutonomous) {
		return
	}
	if p.correction == nil || m.Sequence > p.correction.Sequence {
		p.correction = &m
	}
}
