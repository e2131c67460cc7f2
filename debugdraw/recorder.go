package debugdraw

import "capsulearena/geom"

// Config 调试绘制开关，运行时通过 admin 接口修改
type Config struct {
	Enabled bool `json:"enabled"`
}

// Recorder 收集一个 Tick 内的调试图形。nil Recorder 等同于关闭
type Recorder struct {
	cfg    Config
	shapes []Shape
}

func NewRecorder(cfg Config) *Recorder {
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Enabled() bool {
	return r != nil && r.cfg.Enabled
}

func (r *Recorder) SetConfig(cfg Config) {
	if r == nil {
		return
	}
	r.cfg = cfg
	if !cfg.Enabled {
		r.shapes = r.shapes[:0]
	}
}

func (r *Recorder) add(s Shape) {
	if !r.Enabled() {
		return
	}
	r.shapes = append(r.shapes, s)
}

func (r *Recorder) Point(p geom.Vec, size float64, color string) {
	r.add(Shape{Kind: KindPoint, A: p, Size: size, Color: color})
}

func (r *Recorder) Line(a, b geom.Vec, color string) {
	r.add(Shape{Kind: KindLine, A: a, B: b, Color: color})
}

func (r *Recorder) Arrow(from, to geom.Vec, color string) {
	r.add(Shape{Kind: KindArrow, A: from, B: to, Color: color})
}

// Shapes 返回已记录图形的副本
func (r *Recorder) Shapes() []Shape {
	if r == nil || len(r.shapes) == 0 {
		return nil
	}
	out := make([]Shape, len(r.shapes))
	copy(out, r.shapes)
	return out
}

// Reset 每个 Tick 开始时清空
func (r *Recorder) Reset() {
	if r == nil {
		return
	}
	r.shapes = r.shapes[:0]
}
