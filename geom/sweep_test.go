package geom

import (
	"math"
	"testing"
)

func TestPointSegmentDistance(t *testing.T) {
	cases := []struct {
		name  string
		p     Vec
		a0    Vec
		a1    Vec
		dist  float64
		point Vec
	}{
		{"interior", V(5, 3), V(0, 0), V(10, 0), 3, V(5, 0)},
		{"clamped start", V(-4, 3), V(0, 0), V(10, 0), 5, V(0, 0)},
		{"clamped end", V(13, 4), V(0, 0), V(10, 0), 5, V(10, 0)},
		{"degenerate", V(3, 4), V(0, 0), V(0, 0), 5, V(0, 0)},
	}
	for _, tc := range cases {
		d, q := PointSegmentDistance(tc.p, tc.a0, tc.a1)
		if math.Abs(d-tc.dist) > 1e-12 || !q.ApproxEqual(tc.point) {
			t.Fatalf("%s: got (%v, %v), want (%v, %v)", tc.name, d, q, tc.dist, tc.point)
		}
	}
}

func TestSegmentShortestTestSymmetric(t *testing.T) {
	segs := [][4]Vec{
		{V(0, 0), V(10, 0), V(5, -5), V(5, 5)},    // 相交
		{V(0, 0), V(10, 0), V(0, 3), V(10, 3)},    // 平行
		{V(0, 0), V(10, 0), V(12, 1), V(20, 9)},   // 端点最近
		{V(-3, 7), V(4, -2), V(6, 6), V(9, -1)},   // 任意
		{V(1, 1), V(1, 1), V(-2, 5), V(3, 5)},     // 退化
		{V(0, 0), V(10, 10), V(10, 0), V(20, 10)}, // 平行斜线
	}
	for i, s := range segs {
		ab := SegmentShortestTest(s[0], s[1], s[2], s[3])
		ba := SegmentShortestTest(s[2], s[3], s[0], s[1])
		if math.Abs(ab.Dist-ba.Dist) > 1e-9 {
			t.Fatalf("case %d: asymmetric distance %v vs %v", i, ab.Dist, ba.Dist)
		}
		if math.Abs(ab.PA.Dist(ab.PB)-ab.Dist) > 1e-9 {
			t.Fatalf("case %d: closest points %v %v do not match distance %v", i, ab.PA, ab.PB, ab.Dist)
		}
	}
}

func TestSegmentShortestTestCrossing(t *testing.T) {
	res := SegmentShortestTest(V(0, 0), V(10, 0), V(5, -5), V(5, 5))
	if res.Dist != 0 || !res.PA.ApproxEqual(V(5, 0)) || !res.PB.ApproxEqual(V(5, 0)) {
		t.Fatalf("unexpected crossing result %+v", res)
	}
}

func TestCapsuleSweepHitsFloor(t *testing.T) {
	c := NewCapsule(V(0, 0), 15, 12)
	hit := c.Sweep(V(0, 1), 200, V(-100, 100), V(100, 100), DefaultSweepTolerance)
	if !hit.IsValidBlock() {
		t.Fatalf("expected blocking hit, got %+v", hit)
	}
	if math.Abs(hit.Distance-73) > 1e-9 {
		t.Fatalf("expected contact after 73 units, got %v", hit.Distance)
	}
	if math.Abs(hit.Time-73.0/200) > 1e-9 {
		t.Fatalf("unexpected time %v", hit.Time)
	}
	if !hit.ImpactNormal.ApproxEqual(Up) || !hit.Normal.ApproxEqual(Up) {
		t.Fatalf("expected upward normals, got %v / %v", hit.ImpactNormal, hit.Normal)
	}
	if !hit.Location.ApproxEqual(V(0, 73)) {
		t.Fatalf("unexpected location %v", hit.Location)
	}
}

func TestCapsuleSweepTimeRange(t *testing.T) {
	seg0, seg1 := V(-50, 60), V(80, 20)
	dirs := []Vec{V(1, 0), V(0, 1), V(1, 1), V(-1, 2), V(0, -1), V(3, 1)}
	for _, d := range dirs {
		for _, dist := range []float64{0, 5, 40, 300} {
			c := NewCapsule(V(0, 0), 15, 12)
			hit := c.Sweep(d, dist, seg0, seg1, DefaultSweepTolerance)
			if hit.Time < 0 || hit.Time > 1 {
				t.Fatalf("dir %v dist %v: time %v out of range", d, dist, hit.Time)
			}
			if hit.BlockingHit && hit.Time == 0 && hit.Distance > 0 {
				t.Fatalf("dir %v dist %v: zero time with travel %v", d, dist, hit.Distance)
			}
		}
	}
}

func TestCapsuleSweepStartPenetrating(t *testing.T) {
	c := NewCapsule(V(0, 0), 15, 12)
	// 线段穿过胶囊脊线右侧 5 个单位
	hit := c.Sweep(V(1, 0), 50, V(5, -50), V(5, 50), DefaultSweepTolerance)
	if !hit.BlockingHit || !hit.StartPenetrating || hit.Time != 0 {
		t.Fatalf("expected start penetration, got %+v", hit)
	}
	if math.Abs(hit.PenetrationDepth-(12+DefaultSweepTolerance-5)) > 1e-9 {
		t.Fatalf("unexpected depth %v", hit.PenetrationDepth)
	}
	if !hit.Normal.ApproxEqual(V(-1, 0)) {
		t.Fatalf("penetration normal should point from wall to capsule, got %v", hit.Normal)
	}
	if hit.IsValidBlock() {
		t.Fatalf("penetrating hit must not be a valid block")
	}
}

func TestCapsuleSweepMovingAway(t *testing.T) {
	c := NewCapsule(V(0, 0), 15, 12)
	hit := c.Sweep(V(0, -1), 100, V(-100, 100), V(100, 100), DefaultSweepTolerance)
	if hit.BlockingHit || hit.Time != 1 {
		t.Fatalf("expected miss, got %+v", hit)
	}
	if !hit.Location.ApproxEqual(V(0, -100)) {
		t.Fatalf("miss should end at the trace end, got %v", hit.Location)
	}
}

func TestSweepSceneSkipsDegeneratePolygons(t *testing.T) {
	scene := NewScene(
		Polygon{Points: []Vec{V(-10, 50), V(10, 50)}}, // 只有两个点
		Rect(-100, 100, 200, 50),
	)
	if len(scene.Polygons) != 1 {
		t.Fatalf("expected degenerate polygon to be dropped, got %d polygons", len(scene.Polygons))
	}
	hit := SweepScene(NewCapsule(V(0, 0), 15, 12), V(0, 1), 200, scene)
	if !hit.IsValidBlock() || math.Abs(hit.Distance-73) > 1e-9 {
		t.Fatalf("expected floor hit at 73, got %+v", hit)
	}
}

func TestSweepSceneCornerPrefersOpposedNormal(t *testing.T) {
	// 胶囊水平撞向台阶左上角：左侧面与顶面同时命中，应选择左侧面
	scene := NewScene(Rect(100, 90, 200, 10))
	c := NewCapsule(V(0, 70.85), 15, 12)
	hit := SweepScene(c, V(1, 0), 200, scene)
	if !hit.IsValidBlock() {
		t.Fatalf("expected hit, got %+v", hit)
	}
	if !hit.ImpactNormal.ApproxEqual(V(-1, 0)) {
		t.Fatalf("expected wall normal, got %v", hit.ImpactNormal)
	}
	all := SweepSceneMulti(c, V(1, 0), 200, scene)
	if len(all) < 2 {
		t.Fatalf("expected both corner edges in multi result, got %d", len(all))
	}
}

func TestLineSweep(t *testing.T) {
	scene := NewScene(Rect(-100, 100, 200, 50))
	hit := LineSweep(V(0, 0), V(0, 1), 150, scene)
	if !hit.IsValidBlock() || math.Abs(hit.Distance-100) > 1e-9 {
		t.Fatalf("expected hit at 100, got %+v", hit)
	}
	if !hit.ImpactNormal.ApproxEqual(Up) {
		t.Fatalf("normal should face the ray, got %v", hit.ImpactNormal)
	}
	miss := LineSweep(V(0, 0), V(0, 1), 50, scene)
	if miss.BlockingHit {
		t.Fatalf("short trace should miss, got %+v", miss)
	}
}
