package netsync

func tickAuthority(p *Player, ctx *Context) {
	if p.link == nil {
		return
	}
	for {
		msg, ok := p.link.Up.Fetch(ctx.Now)
		if !ok {
			return
		}
		p.ReceiveMove(ctx, msg)
	}
}

// ReceiveMove 服务器处理一条客户端消息。
// 序号不大于 LastReceivedSequence 的消息直接丢弃，不改变任何状态
func (p *Player) ReceiveMove(ctx *Context, msg MoveMessage) bool {
	if p.misuse(ctx, "ReceiveMove", RoleAuthority) {
		return false
	}
	if msg.ID != "" && msg.ID != p.ID {
		p.Stats.Dropped++
		return false
	}
	if msg.Sequence <= p.LastReceivedSequence {
		p.Stats.Stale++
		return false
	}
	clean, ok := sanitize(msg, p.Character.Config)
	p.LastReceivedSequence = msg.Sequence
	if !ok {
		p.Stats.Dropped++
		ctx.logger().Warnw("invalid move", "player", p.ID, "seq", msg.Sequence, "dt", msg.Dt)
		return false
	}
	p.ApplyMove(ctx, clean)
	p.Stats.Applied++
	return true
}
