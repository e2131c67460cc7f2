package movement

import (
	"math"

	"github.com/samber/lo"

	"capsulearena/geom"
)

// safeMove 扫掠 delta 并移动到最早的安全位置（保留 MoveAvoidDist 间隙）。
// 初始穿透时不移动，返回最深的那个穿透结果。
func (m *mover) safeMove(delta geom.Vec) geom.HitResult {
	c := m.c
	start := c.Position()
	dist := delta.Len()
	if dist < geom.KindaSmall*geom.KindaSmall {
		return geom.HitResult{Time: 1, Location: start, Start: start, End: start}
	}
	dir := delta.Normalize()

	hits := geom.SweepSceneMulti(c.Capsule, dir, dist, m.scene)
	penetrating, blocking := lo.FilterReject(hits, func(h geom.HitResult, _ int) bool {
		return h.StartPenetrating
	})
	// 正在离开的穿透不阻挡移动
	penetrating = lo.Filter(penetrating, func(h geom.HitResult, _ int) bool {
		return h.Normal.Dot(dir) <= geom.KindaSmall
	})
	if len(penetrating) > 0 {
		return lo.MaxBy(penetrating, func(a, b geom.HitResult) bool {
			return a.PenetrationDepth > b.PenetrationDepth
		})
	}

	if len(blocking) == 0 {
		c.SetPosition(start.Add(delta))
		return geom.HitResult{Time: 1, Distance: dist, Location: start.Add(delta), Start: start, End: start.Add(delta)}
	}

	first := lo.MinBy(blocking, func(a, b geom.HitResult) bool {
		if math.Abs(a.Time-b.Time) > geom.SweepTieTime {
			return a.Time < b.Time
		}
		return a.ImpactNormal.Dot(dir) < b.ImpactNormal.Dot(dir)
	})

	cos := math.Max(-dir.Dot(first.Normal), minPullbackCos)
	realized := math.Max(0, first.Distance-MoveAvoidDist/cos)
	c.SetPosition(start.Add(dir.Mul(realized)))
	first.Time = realized / dist
	first.Distance = realized
	return first
}

// move safeMove 之后处理初始穿透：先解除穿透，再重试一次
func (m *mover) move(delta geom.Vec) geom.HitResult {
	hit := m.safeMove(delta)
	if hit.StartPenetrating && m.resolvePenetration(hit) {
		hit = m.safeMove(delta)
	}
	return hit
}

// penetrationAdjustment MTD 回推：沿法线至少 PenetrationPullback，穿透更深时取穿透深度
func penetrationAdjustment(hit geom.HitResult) geom.Vec {
	if !hit.StartPenetrating {
		return geom.Vec{}
	}
	depth := math.Max(PenetrationPullback, hit.PenetrationDepth+0.01)
	return hit.Normal.Mul(depth)
}

// resolvePenetration 尽力解除穿透，最多再做两次修正移动；失败只记日志
func (m *mover) resolvePenetration(hit geom.HitResult) bool {
	c := m.c
	adjust := penetrationAdjustment(hit)
	if adjust.IsZero() {
		return false
	}

	// 目标位置本身不重叠才直接放过去
	if target := c.Capsule.Translated(adjust); !geom.Overlaps(target, m.scene) {
		c.SetPosition(target.Center())
		return true
	}

	moveHit := m.safeMove(adjust)
	if !moveHit.StartPenetrating {
		return true
	}

	// 两个穿透方向叠加再试一次
	combined := adjust.Add(penetrationAdjustment(moveHit))
	if combined.IsZero() {
		combined = adjust
	}
	moveHit = m.safeMove(combined)
	if !moveHit.StartPenetrating {
		return true
	}

	m.log.Warnw("unresolved penetration",
		"who", m.tag,
		"pos", c.Position(),
		"depth", moveHit.PenetrationDepth,
		"normal", moveHit.Normal)
	return false
}

// computeSlideVector 把剩余位移投影到撞击平面上。
// 下落时不允许沿斜面往上滑得比无约束运动更高。
func (m *mover) computeSlideVector(delta geom.Vec, time float64, normal geom.Vec) geom.Vec {
	slide := delta.Mul(time).ProjectOnPlane(normal)
	if m.c.Info.Mode != ModeFalling {
		return slide
	}

	// y 向下：上升量为 -Y
	slideUp := -slide.Y
	if slideUp > 0 {
		limit := -delta.Y * time
		if slideUp-limit > geom.KindaSmall {
			if limit > 0 {
				slide = slide.Mul(limit / slideUp)
			} else {
				// 本来向下却要被弹上去：只保留水平分量
				slide = slide.Horizontal()
			}
		}
	}
	return slide
}

// slideAlongSurface 沿撞击面滑动剩余的 time 比例，返回实际应用的比例
func (m *mover) slideAlongSurface(delta geom.Vec, time float64, normal geom.Vec) float64 {
	slide := m.computeSlideVector(delta, time, normal)
	if slide.Dot(delta) <= 0 {
		return 0
	}
	hit := m.move(slide)
	if hit.IsValidBlock() {
		return time * hit.Time
	}
	if hit.StartPenetrating {
		return 0
	}
	return time
}
