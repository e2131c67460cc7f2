package geom

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
)

// Segment 有向线段
type Segment struct {
	A Vec `json:"a"`
	B Vec `json:"b"`
}

// Normal 顺时针多边形中该边的外法线
func (s Segment) Normal() Vec { return s.B.Sub(s.A).Perp().Normalize() }

// Degenerate 零长度线段
func (s Segment) Degenerate() bool { return s.B.Sub(s.A).IsZero() }

// Polygon 闭合的顺时针多边形；少于 3 个点时无效（不参与碰撞）
type Polygon struct {
	Points []Vec `json:"points"`
}

func (p Polygon) Valid() bool { return len(p.Points) >= 3 }

// EachSegment 按声明顺序遍历 (p_i, p_{i+1 mod n})
func (p Polygon) EachSegment(fn func(a, b Vec)) {
	if !p.Valid() {
		return
	}
	n := len(p.Points)
	for i := 0; i < n; i++ {
		fn(p.Points[i], p.Points[(i+1)%n])
	}
}

// Segments 返回所有边
func (p Polygon) Segments() []Segment {
	out := make([]Segment, 0, len(p.Points))
	p.EachSegment(func(a, b Vec) { out = append(out, Segment{A: a, B: b}) })
	return out
}

// Scene 场景：多边形集合（只读）
type Scene struct {
	Polygons []Polygon `json:"polygons"`
}

// NewScene 过滤掉无效多边形
func NewScene(polys ...Polygon) *Scene {
	return &Scene{Polygons: lo.Filter(polys, func(p Polygon, _ int) bool { return p.Valid() })}
}

// EachSegment 遍历场景中所有有效多边形的所有边
func (s *Scene) EachSegment(fn func(a, b Vec)) {
	if s == nil {
		return
	}
	for _, p := range s.Polygons {
		p.EachSegment(fn)
	}
}

// Rect 便捷构造顺时针矩形（屏幕坐标，y 向下）
func Rect(x, y, w, h float64) Polygon {
	return Polygon{Points: []Vec{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}}
}

// LoadScene 从 JSON 文件读取场景
func LoadScene(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	var raw Scene
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return NewScene(raw.Polygons...), nil
}

// DefaultScene 内置演示场景：地面、台阶、斜坡与陡坡
func DefaultScene() *Scene {
	return NewScene(
		Rect(-1000, 400, 3000, 200),                                // 地面
		Rect(200, 390, 80, 10),                                     // 矮台阶
		Rect(400, 370, 80, 30),                                     // 高台阶
		Polygon{Points: []Vec{{600, 400}, {800, 300}, {800, 400}}}, // 缓坡
		Polygon{Points: []Vec{{900, 400}, {950, 250}, {950, 400}}}, // 陡坡
		Rect(-1000, -200, 20, 600),                                 // 左墙
		Rect(1980, -200, 20, 600),                                  // 右墙
	)
}
