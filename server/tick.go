package server

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// TicksPerSecond 默认世界推进频率（20 TPS）
	TicksPerSecond = 20
)

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	r.syncConfig()
	go r.run()
}

func (r *Room) run() {
	ticker := time.NewTicker(r.applied.TickInterval())
	defer ticker.Stop()
	r.lastTick = time.Now()
	for {
		select {
		case <-r.stop:
			for id := range r.Players {
				r.LeavePlayer(id)
			}
			return
		case now := <-ticker.C:
			if r.safeTick(now) {
				ticker.Reset(r.applied.TickInterval())
			}
		}
	}
}

// safeTick 核心循环：处理输入 → 更新世界 → 广播结果。panic 只影响当前 Tick
func (r *Room) safeTick(now time.Time) (intervalChanged bool) {
	defer func() {
		if err := recover(); err != nil {
			r.metrics.IncTickPanics()
			Log.Errorw("tick panic", "room", r.ID, "tick", r.tickSeq.Load(), "err", err)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("room", r.ID)
			})
			hub.Recover(err)
			hub.Flush(time.Second)
		}
	}()

	start := time.Now()
	intervalChanged = r.BeginTick()
	r.ProcessInputs()
	steps := r.UpdateWorld(now.Sub(r.lastTick))
	r.lastTick = now
	r.BroadcastDelta(steps)
	r.metrics.AddTick(time.Since(start).Nanoseconds())
	return intervalChanged
}
