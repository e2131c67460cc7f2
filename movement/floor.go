package movement

import (
	"math"

	"capsulearena/geom"
)

// FloorResult 地面检测结果，由一次或两次扫掠得出
type FloorResult struct {
	BlockingHit   bool           `json:"blockingHit"`
	WalkableFloor bool           `json:"walkableFloor"`
	LineTrace     bool           `json:"lineTrace"` // 结果来自线检测而非胶囊扫掠
	FloorDist     float64        `json:"floorDist"`
	LineDist      float64        `json:"lineDist"`
	HitResult     geom.HitResult `json:"hitResult"`
}

// IsWalkableFloor 有阻挡且可行走
func (f FloorResult) IsWalkableFloor() bool {
	return f.BlockingHit && f.WalkableFloor
}

// DistanceToFloor 线检测结果优先使用线距离
func (f FloorResult) DistanceToFloor() float64 {
	if f.LineTrace {
		return f.LineDist
	}
	return f.FloorDist
}

func (f *FloorResult) SetFromSweep(hit geom.HitResult, sweepFloorDist float64, walkable bool) {
	f.BlockingHit = hit.IsValidBlock()
	f.WalkableFloor = walkable
	f.LineTrace = false
	f.FloorDist = sweepFloorDist
	f.LineDist = 0
	f.HitResult = hit
}

func (f *FloorResult) SetFromLineTrace(hit geom.HitResult, sweepFloorDist, lineDist float64, walkable bool) {
	f.BlockingHit = hit.IsValidBlock()
	f.WalkableFloor = walkable
	f.LineTrace = true
	f.FloorDist = sweepFloorDist
	f.LineDist = lineDist
	f.HitResult = hit
}

// IsWalkable 撞击面能否站立：无效、竖直墙面或超过坡度上限都不行
func IsWalkable(cfg Config, hit geom.HitResult) bool {
	if !hit.IsValidBlock() {
		return false
	}
	up := hit.ImpactNormal.Dot(geom.Up)
	if math.Abs(up) < geom.KindaSmall {
		return false
	}
	return up >= cfg.WalkableFloorY()
}

// IsWithinEdgeTolerance 撞击点与中心的水平偏移不能太靠近胶囊边缘
func IsWithinEdgeTolerance(center, impactPoint geom.Vec, radius float64) bool {
	dx := math.Abs(impactPoint.X - center.X)
	reduced := math.Max(SweepEdgeRejectDistance+geom.KindaSmall, radius-SweepEdgeRejectDistance)
	return dx < reduced
}

// floorSweepDistance 行走时多探测一个台阶高度，下落时少一些
func floorSweepDistance(cfg Config, onGround bool) float64 {
	adjust := -MaxFloorDist
	if onGround {
		adjust = MaxFloorDist + geom.KindaSmall
	}
	return math.Max(MaxFloorDist, cfg.MaxStepHeight+adjust)
}

// ComputeFloorDist 三段式地面检测：
// 复用向下扫掠结果 → 收缩胶囊向下扫掠（必要时再收缩重试）→ 细线检测兜底。
func ComputeFloorDist(scene *geom.Scene, cfg Config, capsule geom.Capsule, lineDistance, sweepDistance float64, downSweep *geom.HitResult) FloorResult {
	var floor FloorResult
	center := capsule.Center()
	radius := capsule.Radius()

	if downSweep != nil && downSweep.IsValidBlock() {
		vertical := downSweep.End.Y > downSweep.Start.Y &&
			math.Abs(downSweep.End.X-downSweep.Start.X) <= geom.KindaSmall
		if vertical && downSweep.ImpactNormal.Dot(geom.Up) > 0 &&
			IsWithinEdgeTolerance(downSweep.Location, downSweep.ImpactPoint, radius) {
			floor.SetFromSweep(*downSweep, downSweep.Location.Y-center.Y, IsWalkable(cfg, *downSweep))
			if floor.WalkableFloor {
				return floor
			}
		}
	}

	inconclusive := false
	if sweepDistance > 0 && radius > 0 {
		shrink := math.Min(FloorSweepShrink, radius*0.5)
		probe := capsule.WithRadius(radius - shrink)
		hit := geom.SweepScene(probe, geom.Up.Neg(), sweepDistance+shrink, scene)
		if hit.BlockingHit && (hit.StartPenetrating || !IsWithinEdgeTolerance(center, hit.ImpactPoint, probe.Radius())) {
			// 再收缩一次，让接触点更靠近中心
			shrink = math.Max(shrink, radius*0.5)
			probe = capsule.WithRadius(radius - shrink)
			hit = geom.SweepScene(probe, geom.Up.Neg(), sweepDistance+shrink, scene)
		}

		switch {
		case hit.StartPenetrating:
			inconclusive = true
		case hit.BlockingHit:
			floorDist := math.Max(-math.Max(MaxFloorDist, radius), hit.Distance-shrink)
			floor.SetFromSweep(hit, floorDist, false)
			if !IsWithinEdgeTolerance(center, hit.ImpactPoint, probe.Radius()) {
				inconclusive = true
			} else if IsWalkable(cfg, hit) && floorDist <= sweepDistance {
				floor.WalkableFloor = true
				return floor
			}
		}
	}

	if !floor.BlockingHit && !inconclusive {
		floor.FloorDist = sweepDistance
		return floor
	}
	if !inconclusive {
		// 扫掠结论明确：地面不可行走
		return floor
	}

	if lineDistance > 0 {
		hit := geom.LineSweep(capsule.B(), geom.Up.Neg(), radius+lineDistance, scene)
		if hit.BlockingHit && hit.Time > 0 {
			lineDist := math.Max(-math.Max(MaxFloorDist, radius), hit.Distance-radius)
			if lineDist <= lineDistance && IsWalkable(cfg, hit) {
				sweepDist := floor.FloorDist
				if !floor.BlockingHit {
					sweepDist = lineDist
				}
				floor.SetFromLineTrace(hit, sweepDist, lineDist, true)
				return floor
			}
		}
	}
	floor.WalkableFloor = false
	return floor
}

// FindFloor 查找胶囊下方的地面；相同位置重复调用结果相同
func FindFloor(scene *geom.Scene, cfg Config, capsule geom.Capsule, downSweep *geom.HitResult, onGround bool) FloorResult {
	dist := floorSweepDistance(cfg, onGround)
	floor := ComputeFloorDist(scene, cfg, capsule, dist, dist, downSweep)

	if floor.BlockingHit && !floor.LineTrace &&
		!IsWithinEdgeTolerance(capsule.Center(), floor.HitResult.ImpactPoint, capsule.Radius()) {
		floor.WalkableFloor = false
	}
	if floor.BlockingHit && floor.DistanceToFloor() < -MaxPenetrationSlack {
		floor.WalkableFloor = false
	}
	return floor
}
