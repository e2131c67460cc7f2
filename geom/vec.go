package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// KindaSmall 通用浮点比较容差
const KindaSmall = 1e-4

// Up 屏幕坐标系中 +y 向下，因此"向上"是 (0,-1)
var Up = Vec{0, -1}

// Vec 二维向量（值语义，所有运算都返回新向量）
type Vec struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// V 构造向量的简写
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func fromMgl(m mgl64.Vec2) Vec { return Vec{X: m[0], Y: m[1]} }

func (v Vec) mgl() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

func (v Vec) Add(o Vec) Vec     { return fromMgl(v.mgl().Add(o.mgl())) }
func (v Vec) Sub(o Vec) Vec     { return fromMgl(v.mgl().Sub(o.mgl())) }
func (v Vec) Mul(s float64) Vec { return fromMgl(v.mgl().Mul(s)) }

// Div 除以标量；除数为 0 时返回零向量
func (v Vec) Div(s float64) Vec {
	if s == 0 {
		return Vec{}
	}
	return Vec{X: v.X / s, Y: v.Y / s}
}

func (v Vec) Neg() Vec { return Vec{X: -v.X, Y: -v.Y} }

func (v Vec) Dot(o Vec) float64 { return v.mgl().Dot(o.mgl()) }

// Cross 二维叉积（z 分量）
func (v Vec) Cross(o Vec) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vec) Len() float64    { return v.mgl().Len() }
func (v Vec) LenSqr() float64 { return v.X*v.X + v.Y*v.Y }

// Normalize 单位化；零向量返回零向量而不是 NaN
func (v Vec) Normalize() Vec {
	if v.LenSqr() < 1e-16 {
		return Vec{}
	}
	return fromMgl(v.mgl().Normalize())
}

// IsZero 长度在容差内视为零
func (v Vec) IsZero() bool { return v.LenSqr() < 1e-16 }

// Project 投影到 onto 方向上
func (v Vec) Project(onto Vec) Vec {
	d := onto.LenSqr()
	if d == 0 {
		return Vec{}
	}
	return onto.Mul(v.Dot(onto) / d)
}

// ProjectOnPlane 去掉沿 normal 的分量（normal 需为单位向量）
func (v Vec) ProjectOnPlane(normal Vec) Vec {
	return v.Sub(normal.Mul(v.Dot(normal)))
}

// Perp 顺时针多边形边的外法线方向：(dy, -dx)
func (v Vec) Perp() Vec { return Vec{X: v.Y, Y: -v.X} }

func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Len() }

func (v Vec) ApproxEqual(o Vec) bool {
	return math.Abs(v.X-o.X) <= KindaSmall && math.Abs(v.Y-o.Y) <= KindaSmall
}

// Horizontal 只保留水平分量
func (v Vec) Horizontal() Vec { return Vec{X: v.X} }

// Clamp 夹到 [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
