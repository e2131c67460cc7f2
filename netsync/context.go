package netsync

import (
	"go.uber.org/zap"

	"capsulearena/debugdraw"
	"capsulearena/geom"
	"capsulearena/movement"
)

// Context 一个 Instance 的模拟时钟与调试配置，随每次 Tick 传递
type Context struct {
	Now       float64 // 模拟时间（秒，已乘 TimeScale）
	Dt        float64 // 本 Tick 的步长
	Tick      uint64
	TimeScale float64

	Debug debugdraw.Config
	Draw  *debugdraw.Recorder
	Log   *zap.SugaredLogger
	Scene *geom.Scene
}

func (c *Context) logger() *zap.SugaredLogger {
	if c == nil || c.Log == nil {
		return zap.NewNop().Sugar()
	}
	return c.Log
}

// env 给某个角色的移动环境
func (c *Context) env(tag string) movement.Env {
	return movement.Env{Scene: c.Scene, Log: c.Log, Draw: c.Draw, Tag: tag}
}
