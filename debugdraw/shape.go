package debugdraw

import (
	"encoding/json"
	"fmt"
	"io"

	"capsulearena/geom"
)

// Kind 调试图形种类
type Kind uint8

const (
	KindPoint Kind = iota + 1
	KindLine
	KindArrow
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindArrow:
		return "arrow"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "point":
		*k = KindPoint
	case "line":
		*k = KindLine
	case "arrow":
		*k = KindArrow
	default:
		return fmt.Errorf("debugdraw: unknown shape kind %q", s)
	}
	return nil
}

// Shape 调试图形：Kind 决定使用哪些字段。点只用 A 和 Size
type Shape struct {
	Kind  Kind     `json:"kind" msgpack:"kind"`
	A     geom.Vec `json:"a" msgpack:"a"`
	B     geom.Vec `json:"b,omitempty" msgpack:"b,omitempty"`
	Size  float64  `json:"size,omitempty" msgpack:"size,omitempty"`
	Color string   `json:"color" msgpack:"color"`
}

// Drawer 由渲染端实现
type Drawer interface {
	Point(p geom.Vec, size float64, color string)
	Line(a, b geom.Vec, color string)
	Arrow(from, to geom.Vec, color string)
}

// Dispatch 把图形逐个交给 Drawer，未知种类忽略
func Dispatch(shapes []Shape, d Drawer) {
	for _, s := range shapes {
		switch s.Kind {
		case KindPoint:
			d.Point(s.A, s.Size, s.Color)
		case KindLine:
			d.Line(s.A, s.B, s.Color)
		case KindArrow:
			d.Arrow(s.A, s.B, s.Color)
		}
	}
}

// JSONDrawer 把图形写成一行一个的 JSON，给 WebSocket 调试层使用
type JSONDrawer struct {
	enc *json.Encoder
	err error
}

func NewJSONDrawer(w io.Writer) *JSONDrawer {
	return &JSONDrawer{enc: json.NewEncoder(w)}
}

func (j *JSONDrawer) write(s Shape) {
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(s)
}

func (j *JSONDrawer) Point(p geom.Vec, size float64, color string) {
	j.write(Shape{Kind: KindPoint, A: p, Size: size, Color: color})
}

func (j *JSONDrawer) Line(a, b geom.Vec, color string) {
	j.write(Shape{Kind: KindLine, A: a, B: b, Color: color})
}

func (j *JSONDrawer) Arrow(from, to geom.Vec, color string) {
	j.write(Shape{Kind: KindArrow, A: from, B: to, Color: color})
}

// Err 第一次写入失败的错误
func (j *JSONDrawer) Err() error { return j.err }
