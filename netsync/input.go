package netsync

import "capsulearena/geom"

// ActionJump 跳跃动作名
const ActionJump = "jump"

// Input 每个 Tick 开始前采样一次的输入状态；移动只读取，不持有按键状态
type Input struct {
	Forward int // -1/0/1，横版场景中不参与移动，只给渲染端使用
	Right   int // -1/0/1

	held map[string]bool
}

// Down 动作按下
func (in *Input) Down(action string) {
	if in.held == nil {
		in.held = make(map[string]bool)
	}
	in.held[action] = true
}

// Up 动作松开
func (in *Input) Up(action string) {
	delete(in.held, action)
}

func (in Input) Held(action string) bool { return in.held[action] }

// Axis 水平输入方向
func (in Input) Axis() geom.Vec {
	return geom.Vec{X: float64(clampAxis(in.Right))}
}

func clampAxis(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
