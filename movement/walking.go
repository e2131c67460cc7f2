package movement

import (
	"math"

	"capsulearena/geom"
)

// calcWalkingVelocity 地面速度：有输入时加速并转向，无输入时制动；水平速度不超过 MaxSpeed
func (m *mover) calcWalkingVelocity(dt float64) {
	c := m.c
	cfg := c.Config
	v := c.Velocity.Horizontal()
	accel := c.Acceleration.Horizontal()
	if accel.Len() > cfg.MaxAcceleration {
		accel = accel.Normalize().Mul(cfg.MaxAcceleration)
	}

	if accel.IsZero() {
		speed := v.Len()
		if speed > 0 {
			dec := (cfg.GroundFriction*speed + cfg.BrakingDeceleration) * dt
			if dec >= speed {
				v = geom.Vec{}
			} else {
				v = v.Mul((speed - dec) / speed)
			}
		}
	} else {
		dir := accel.Normalize()
		v = v.Sub(v.Sub(dir.Mul(v.Len())).Mul(math.Min(dt*cfg.GroundFriction, 1)))
		v = v.Add(accel.Mul(dt))
	}
	if v.Len() > cfg.MaxSpeed {
		v = v.Normalize().Mul(cfg.MaxSpeed)
	}
	c.Velocity = v
}

// physWalking 行走物理
func (m *mover) physWalking(dt float64, iterations int) {
	c := m.c
	remaining := dt
	for remaining >= MinTickTime && iterations < MaxSimulationIterations && c.Info.Mode == ModeWalking {
		iterations++
		timeTick := simulationTimeStep(remaining, iterations)
		remaining -= timeTick

		oldLoc := c.Position()
		c.Acceleration.Y = 0
		m.calcWalkingVelocity(timeTick)

		delta := c.Velocity.Mul(timeTick)
		var stepFloor *FloorResult
		if !delta.IsZero() {
			stepFloor = m.moveAlongFloor(delta)
		}

		// 重新计算地面（上台阶时直接用台阶的结果）
		if stepFloor != nil {
			c.Info.Floor = *stepFloor
		} else {
			c.Info.Floor = FindFloor(m.scene, c.Config, c.Capsule, nil, true)
		}

		if c.Info.Floor.IsWalkableFloor() {
			m.adjustFloorHeight()
		} else if c.Info.Floor.HitResult.StartPenetrating {
			m.log.Warnw("walking while penetrating floor", "who", m.tag, "pos", c.Position())
		}

		justFell := false
		if !c.Info.Floor.IsWalkableFloor() && c.Info.Mode != ModeFalling {
			m.setMode(ModeFalling, nil)
			justFell = true
		}

		// 速度由实际位移推导，竖直分量归零
		if !c.Info.Teleported && timeTick >= MinTickTime {
			c.Velocity = c.Position().Sub(oldLoc).Div(timeTick)
		}
		c.Velocity.Y = 0

		if justFell {
			if !c.Velocity.IsZero() {
				m.safeMove(c.Velocity.Normalize().Mul(FallNudgeDist))
			}
			m.startNewPhysics(remaining, iterations)
			return
		}
	}
}

// moveAlongFloor 沿地面移动：坡道投影、二次坡道、上台阶或贴墙滑动。
// 上台阶成功时返回台阶顶部的地面结果。
func (m *mover) moveAlongFloor(delta geom.Vec) *FloorResult {
	c := m.c
	floor := c.Info.Floor
	if !floor.IsWalkableFloor() {
		return nil
	}
	delta = delta.Horizontal()

	hit := m.move(m.computeGroundMovementDelta(delta, floor.HitResult, floor.LineTrace))
	if hit.StartPenetrating {
		m.slideAlongSurface(delta, 1, hit.Normal)
		return nil
	}
	if !hit.IsValidBlock() {
		return nil
	}

	percentApplied := hit.Time
	if hit.Time > 0 && hit.Normal.Dot(geom.Up) > geom.KindaSmall && IsWalkable(c.Config, hit) {
		// 又碰到一段坡道：剩余部分沿新坡道走
		remainingPercent := 1 - percentApplied
		hit = m.move(m.computeGroundMovementDelta(delta.Mul(remainingPercent), hit, false))
		percentApplied = geom.Clamp(percentApplied+hit.Time*remainingPercent, 0, 1)
	}
	if !hit.IsValidBlock() {
		return nil
	}

	rest := delta.Mul(1 - percentApplied)
	if stepped, ok := m.stepUp(rest, hit); ok {
		return &stepped
	}
	m.slideAlongSurface(delta, 1-percentApplied, hit.Normal)
	return nil
}

// computeGroundMovementDelta 把水平位移投影到坡面上，保持水平速度不变。
// 墙面一样陡的面或线检测得到的地面不做投影。
func (m *mover) computeGroundMovementDelta(delta geom.Vec, ramp geom.HitResult, lineTrace bool) geom.Vec {
	n := ramp.ImpactNormal
	up := n.Dot(geom.Up)
	if up > geom.KindaSmall && up < 1-geom.KindaSmall &&
		ramp.Normal.Dot(geom.Up) > geom.KindaSmall && !lineTrace && IsWalkable(m.c.Config, ramp) {
		// n·m = 0 且 m.X = delta.X
		return geom.Vec{X: delta.X, Y: -n.X * delta.X / n.Y}
	}
	return delta
}

// adjustFloorHeight 把与地面的间隙拉回 [MinFloorDist, MaxFloorDist]
func (m *mover) adjustFloorHeight() {
	c := m.c
	floor := &c.Info.Floor
	if !floor.IsWalkableFloor() {
		return
	}

	oldFloorDist := floor.FloorDist
	if floor.LineTrace {
		if oldFloorDist < MinFloorDist && floor.LineDist >= MinFloorDist {
			// 扫掠贴着边缘，线检测正常：站在台阶边上，不调整
			return
		}
		oldFloorDist = floor.LineDist
	}
	if oldFloorDist >= MinFloorDist && oldFloorDist <= MaxFloorDist {
		return
	}

	avg := (MinFloorDist + MaxFloorDist) * 0.5
	moveDist := avg - oldFloorDist // >0 向上
	initialY := c.Position().Y
	hit := m.safeMove(geom.Up.Mul(moveDist))

	var newDist float64
	switch {
	case hit.StartPenetrating:
		return
	case !hit.IsValidBlock():
		newDist = oldFloorDist + moveDist
	case moveDist > 0:
		// 向上被天花板挡住
		newDist = oldFloorDist + (initialY - c.Position().Y)
	default:
		newDist = hit.Location.Y - c.Position().Y
		if IsWalkable(c.Config, hit) {
			floor.SetFromSweep(hit, newDist, true)
			return
		}
	}
	if floor.LineTrace {
		floor.FloorDist += newDist - oldFloorDist
		floor.LineDist = newDist
	} else {
		floor.FloorDist = newDist
	}
}
