package geom

import "math"

const (
	// DefaultSweepTolerance 接触判定的额外厚度
	DefaultSweepTolerance = 0.1

	// 保守推进的最大迭代次数：限制开销，代价是大曲率/高速时可能少走一点
	maxSweepIterations = 5

	// SweepTieTime 两个撞击时间相差在此范围内视为同时发生
	SweepTieTime = 1e-4
)

// PointSegmentDistance 点到线段的最近距离与最近点；线段退化时即点距
func PointSegmentDistance(p, a0, a1 Vec) (float64, Vec) {
	d := a1.Sub(a0)
	l2 := d.LenSqr()
	if l2 == 0 {
		return p.Dist(a0), a0
	}
	t := Clamp(p.Sub(a0).Dot(d)/l2, 0, 1)
	q := a0.Add(d.Mul(t))
	return p.Dist(q), q
}

// SegmentTest 两线段最近距离测试的结果；PA 在 A 上，PB 在 B 上
type SegmentTest struct {
	Dist float64
	PA   Vec
	PB   Vec
}

// segmentIntersect 标准双参数叉积解；平行或不相交返回 ok=false
func segmentIntersect(a0, a1, b0, b1 Vec) (ta, tb float64, ok bool) {
	r := a1.Sub(a0)
	s := b1.Sub(b0)
	denom := r.Cross(s)
	if denom == 0 {
		return 0, 0, false
	}
	qp := b0.Sub(a0)
	ta = qp.Cross(s) / denom
	tb = qp.Cross(r) / denom
	if ta < 0 || ta > 1 || tb < 0 || tb > 1 {
		return ta, tb, false
	}
	return ta, tb, true
}

// SegmentShortestTest 线段 A(a0,a1) 与线段 B(b0,b1) 的最短距离。
// 先尝试精确相交；否则取四个端点到线段距离的最小值（按 a0,a1,b0,b1 顺序，先到者胜）。
func SegmentShortestTest(a0, a1, b0, b1 Vec) SegmentTest {
	if ta, _, ok := segmentIntersect(a0, a1, b0, b1); ok {
		p := a0.Add(a1.Sub(a0).Mul(ta))
		return SegmentTest{Dist: 0, PA: p, PB: p}
	}

	best := SegmentTest{Dist: math.Inf(1)}
	try := func(dist float64, pa, pb Vec) {
		if dist < best.Dist {
			best = SegmentTest{Dist: dist, PA: pa, PB: pb}
		}
	}
	d, q := PointSegmentDistance(a0, b0, b1)
	try(d, a0, q)
	d, q = PointSegmentDistance(a1, b0, b1)
	try(d, a1, q)
	d, q = PointSegmentDistance(b0, a0, a1)
	try(d, q, b0)
	d, q = PointSegmentDistance(b1, a0, a1)
	try(d, q, b1)
	return best
}

// contactNormal 由最近点对求出从墙指向胶囊的法线，退化时依次回退
func (c Capsule) contactNormal(t SegmentTest, p0, p1, dir Vec) Vec {
	n := t.PA.Sub(t.PB).Normalize()
	if n.IsZero() {
		n = c.center.Sub(t.PB).Normalize()
	}
	if n.IsZero() {
		n = Segment{A: p0, B: p1}.Normal()
		if n.Dot(dir) > 0 {
			n = n.Neg()
		}
	}
	return n
}

// Sweep 胶囊沿 dir 扫掠 distance，对线段 p0-p1 做连续碰撞检测。
// 初始已重叠时返回 time=0 的穿透结果；否则做最多 5 次保守推进。
// 迭代用尽仍未接触时在已推进的位置报告阻挡（宁可少走，不穿墙）。
func (c Capsule) Sweep(dir Vec, distance float64, p0, p1 Vec, tolerance float64) HitResult {
	dir = dir.Normalize()
	distance = math.Max(0, distance)
	start := c.center
	hit := missResult(start, start.Add(dir.Mul(distance)))

	a, b := c.Spine()
	contact := c.radius + tolerance
	res := SegmentShortestTest(a, b, p0, p1)
	if res.Dist < contact {
		n := c.contactNormal(res, p0, p1, dir)
		hit.BlockingHit = true
		hit.StartPenetrating = true
		hit.Time = 0
		hit.Distance = 0
		hit.Location = start
		hit.PenetrationDepth = contact - res.Dist
		hit.ImpactPoint = res.PB
		hit.ImpactNormal = n
		hit.Normal = n
		return hit
	}
	if distance == 0 || dir.IsZero() {
		return hit
	}

	traveled := 0.0
	for i := 0; i < maxSweepIterations; i++ {
		approach := dir.Dot(res.PB.Sub(res.PA).Normalize())
		if approach <= 0 {
			return hit
		}
		step := math.Max(0, (res.Dist-c.radius)/approach)
		step = math.Min(step, distance-traveled)
		traveled += step

		off := dir.Mul(traveled)
		next := SegmentShortestTest(a.Add(off), b.Add(off), p0, p1)
		if next.Dist <= contact {
			return c.blockAt(hit, next, traveled, distance, p0, p1, dir)
		}
		if next.Dist >= res.Dist || traveled >= distance {
			return hit
		}
		res = next
	}
	// 迭代上限：仍在接近，按已推进距离报告
	return c.blockAt(hit, res, traveled, distance, p0, p1, dir)
}

// blockAt 填充接触结果。Normal 是胶囊接触法线；ImpactNormal 是被撞线段的面法线（朝向胶囊），
// 拐角处两条边同时命中时靠 ImpactNormal 区分地面和墙面。
func (c Capsule) blockAt(hit HitResult, t SegmentTest, traveled, distance float64, p0, p1, dir Vec) HitResult {
	n := c.Translated(dir.Mul(traveled)).contactNormal(t, p0, p1, dir)
	face := Segment{A: p0, B: p1}.Normal()
	if face.IsZero() {
		face = n
	} else if face.Dot(n) < 0 {
		face = face.Neg()
	}
	hit.BlockingHit = true
	hit.Time = Clamp(traveled/distance, 0, 1)
	hit.Distance = traveled
	hit.Location = hit.Start.Add(dir.Mul(traveled))
	hit.ImpactPoint = t.PB
	hit.ImpactNormal = face
	hit.Normal = n
	return hit
}

// Overlaps 胶囊是否与场景中任何线段重叠（距离小于半径+容差）
func Overlaps(c Capsule, scene *Scene) bool {
	overlap := false
	scene.EachSegment(func(p0, p1 Vec) {
		if overlap {
			return
		}
		if SegmentShortestTest(c.a, c.b, p0, p1).Dist < c.radius+DefaultSweepTolerance {
			overlap = true
		}
	})
	return overlap
}

// betterHit 更早的撞击优先；同时发生时选法线更迎着运动方向的那个（避免选错拐角）
func betterHit(h, best HitResult, dir Vec) bool {
	if !best.BlockingHit {
		return true
	}
	if h.Time < best.Time-SweepTieTime {
		return true
	}
	if h.Time > best.Time+SweepTieTime {
		return false
	}
	return h.ImpactNormal.Dot(dir) < best.ImpactNormal.Dot(dir)
}

// SweepScene 对场景所有边扫掠，返回最早的阻挡结果
func SweepScene(c Capsule, dir Vec, distance float64, scene *Scene) HitResult {
	dir = dir.Normalize()
	distance = math.Max(0, distance)
	best := missResult(c.center, c.center.Add(dir.Mul(distance)))
	scene.EachSegment(func(p0, p1 Vec) {
		h := c.Sweep(dir, distance, p0, p1, DefaultSweepTolerance)
		if h.BlockingHit && betterHit(h, best, dir) {
			best = h
		}
	})
	return best
}

// SweepSceneMulti 返回全部阻挡结果（不过滤），供带穿透处理的移动使用
func SweepSceneMulti(c Capsule, dir Vec, distance float64, scene *Scene) []HitResult {
	var hits []HitResult
	scene.EachSegment(func(p0, p1 Vec) {
		h := c.Sweep(dir, distance, p0, p1, DefaultSweepTolerance)
		if h.BlockingHit {
			hits = append(hits, h)
		}
	})
	return hits
}

// LineSweep 无限细射线，只走线段相交路径；用于地面线检测
func LineSweep(start, dir Vec, distance float64, scene *Scene) HitResult {
	dir = dir.Normalize()
	distance = math.Max(0, distance)
	end := start.Add(dir.Mul(distance))
	best := missResult(start, end)
	if distance == 0 || dir.IsZero() {
		return best
	}
	scene.EachSegment(func(p0, p1 Vec) {
		ta, _, ok := segmentIntersect(start, end, p0, p1)
		if !ok {
			return
		}
		if best.BlockingHit && ta >= best.Time {
			return
		}
		n := Segment{A: p0, B: p1}.Normal()
		if n.Dot(dir) > 0 {
			n = n.Neg()
		}
		p := start.Add(dir.Mul(ta * distance))
		best.BlockingHit = true
		best.StartPenetrating = ta == 0
		best.Time = ta
		best.Distance = ta * distance
		best.Location = p
		best.ImpactPoint = p
		best.ImpactNormal = n
		best.Normal = n
	})
	return best
}
