package movement

import (
	"math"

	"capsulearena/geom"
)

// stepUp 尝试跨上台阶：上移 → 前移 → 下落。
// 任何一步失败都显式回到起始位置；成功时返回台阶顶部的地面。
func (m *mover) stepUp(delta geom.Vec, hit geom.HitResult) (FloorResult, bool) {
	c := m.c
	cfg := c.Config
	oldLoc := c.Position()

	if c.Capsule.IsTopHemisphere(hit.ImpactPoint) {
		return FloorResult{}, false
	}

	stepUp := cfg.MaxStepHeight
	stepDown := cfg.MaxStepHeight
	floorBaseY := oldLoc.Y + c.Capsule.TotalHalfHeight()
	floorPointY := floorBaseY

	floor := c.Info.Floor
	if c.Info.Mode == ModeWalking && floor.IsWalkableFloor() {
		floorDist := math.Max(0, floor.DistanceToFloor())
		floorBaseY += floorDist
		stepUp = math.Max(cfg.MaxStepHeight-floorDist, 0)
		stepDown = cfg.MaxStepHeight + MaxFloorDist*2

		verticalFace := !IsWithinEdgeTolerance(hit.Location, hit.ImpactPoint, c.Capsule.Radius())
		if !floor.LineTrace && !verticalFace {
			floorPointY = floor.HitResult.ImpactPoint.Y
		} else {
			floorPointY += floor.FloorDist
		}
	}

	// 撞击点在脚下：不是台阶
	if hit.ImpactPoint.Y >= floorBaseY {
		return FloorResult{}, false
	}

	undo := func() (FloorResult, bool) {
		c.SetPosition(oldLoc)
		return FloorResult{}, false
	}

	// 上移
	upHit := m.safeMove(geom.Up.Mul(stepUp))
	if upHit.StartPenetrating {
		return undo()
	}

	// 前移：稍微离开墙面
	fwd := delta.Add(hit.ImpactNormal.Horizontal().Mul(StepForwardBias))
	fwdHit := m.safeMove(fwd)
	if fwdHit.StartPenetrating {
		return undo()
	}
	if fwdHit.BlockingHit && fwdHit.Distance < delta.Len() {
		return undo()
	}

	// 下落
	downHit := m.safeMove(geom.Up.Mul(-stepDown))
	if downHit.StartPenetrating {
		return undo()
	}

	if downHit.IsValidBlock() {
		// y 向下：上升高度为 floorPointY - 撞击点 Y
		deltaH := floorPointY - downHit.ImpactPoint.Y
		if deltaH > cfg.MaxStepHeight {
			return undo()
		}
		if !IsWalkable(cfg, downHit) && deltaH > 0 {
			return undo()
		}
		if !IsWithinEdgeTolerance(downHit.Location, downHit.ImpactPoint, c.Capsule.Radius()) {
			return undo()
		}
	}

	result := FindFloor(m.scene, cfg, c.Capsule, &downHit, true)
	m.log.Debugw("step up", "who", m.tag, "from", oldLoc, "to", c.Position(), "walkable", result.IsWalkableFloor())
	return result, true
}
