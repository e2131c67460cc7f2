package movement

import (
	"math"

	"capsulearena/geom"
)

// fallingAcceleration 空中只保留水平输入，并乘以 AirControl
func (m *mover) fallingAcceleration() geom.Vec {
	return m.c.Acceleration.Horizontal().Mul(m.c.Config.AirControl)
}

// gravityY 本子步的重力；按住跳跃且仍在上升时减小重力
func (m *mover) gravityY(timeTick float64) float64 {
	c := m.c
	g := Gravity * c.Config.GravityScale
	if !c.Info.JumpHeld {
		c.Info.JumpHoldTime = c.Config.MaxHoldJumpTime
		return g
	}
	if c.Velocity.Y < 0 && c.Info.JumpHoldTime < c.Config.MaxHoldJumpTime {
		c.Info.JumpHoldTime += timeTick
		return g * c.Config.HoldJumpGravityScale
	}
	return g
}

func clampFallingVelocity(v geom.Vec, cfg Config) geom.Vec {
	v.X = geom.Clamp(v.X, -cfg.MaxSpeed, cfg.MaxSpeed)
	v.Y = math.Min(v.Y, TerminalVelocity)
	return v
}

// physFalling 下落物理：梯形积分，撞到可站立的面则落地，否则沿面滑动
func (m *mover) physFalling(dt float64, iterations int) {
	c := m.c
	remaining := dt
	for remaining >= MinTickTime && iterations < MaxSimulationIterations {
		iterations++
		timeTick := simulationTimeStep(remaining, iterations)
		remaining -= timeTick

		oldLoc := c.Position()
		oldVelocity := c.Velocity

		accel := m.fallingAcceleration()
		accel.Y = m.gravityY(timeTick)
		c.Velocity = clampFallingVelocity(oldVelocity.Add(accel.Mul(timeTick)), c.Config)

		delta := oldVelocity.Add(c.Velocity).Mul(0.5 * timeTick)
		hit := m.move(delta)
		if !hit.IsValidBlock() {
			continue
		}

		if m.isValidLandingSpot(hit) {
			remaining += timeTick * (1 - hit.Time)
			m.processLanded(hit, remaining, iterations)
			return
		}

		// 不能落地：沿撞击面滑动剩余部分
		slide := m.computeSlideVector(delta, 1-hit.Time, hit.Normal)
		if slide.Dot(delta) > 0 {
			slideHit := m.move(slide)
			if slideHit.IsValidBlock() && m.isValidLandingSpot(slideHit) {
				remaining += timeTick * (1 - hit.Time) * (1 - slideHit.Time)
				m.processLanded(slideHit, remaining, iterations)
				return
			}
		}

		if !c.Info.Teleported {
			c.Velocity = clampFallingVelocity(c.Position().Sub(oldLoc).Div(timeTick), c.Config)
		}
	}
}

// isValidLandingSpot 撞击点在下半球、不贴边、可行走，且从当前位置能找到可行走地面
func (m *mover) isValidLandingSpot(hit geom.HitResult) bool {
	c := m.c
	if !hit.IsValidBlock() {
		return false
	}
	atHit := c.Capsule.Translated(hit.Location.Sub(c.Position()))
	if !atHit.InLowerHemisphere(hit.ImpactPoint) {
		return false
	}
	if !IsWithinEdgeTolerance(hit.Location, hit.ImpactPoint, c.Capsule.Radius()) {
		return false
	}
	if !IsWalkable(c.Config, hit) {
		return false
	}
	return FindFloor(m.scene, c.Config, c.Capsule, &hit, false).IsWalkableFloor()
}

// processLanded 切换到行走并用剩余时间继续模拟
func (m *mover) processLanded(hit geom.HitResult, remaining float64, iterations int) {
	m.log.Debugw("landed", "who", m.tag, "pos", m.c.Position(), "normal", hit.ImpactNormal)
	m.setMode(ModeWalking, &hit)
	m.startNewPhysics(remaining, iterations)
}
