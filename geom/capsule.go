package geom

// Capsule 胶囊体：两个极点 A（上）/B（下）之间的线段加半径
type Capsule struct {
	center     Vec
	halfHeight float64
	radius     float64
	a, b       Vec
}

// NewCapsule 创建胶囊体并计算极点
func NewCapsule(center Vec, halfHeight, radius float64) Capsule {
	c := Capsule{halfHeight: halfHeight, radius: radius}
	c.SetCenter(center)
	return c
}

// SetCenter 修改中心并重新计算两个极点
func (c *Capsule) SetCenter(center Vec) {
	c.center = center
	c.a = center.Add(Up.Mul(c.halfHeight))
	c.b = center.Sub(Up.Mul(c.halfHeight))
}

func (c Capsule) Center() Vec              { return c.center }
func (c Capsule) HalfHeight() float64      { return c.halfHeight }
func (c Capsule) Radius() float64          { return c.radius }
func (c Capsule) A() Vec                   { return c.a }
func (c Capsule) B() Vec                   { return c.b }
func (c Capsule) Spine() (Vec, Vec)        { return c.a, c.b }
func (c Capsule) TotalHalfHeight() float64 { return c.halfHeight + c.radius }

// WithRadius 返回同中心、不同半径的副本（地面检测用的收缩胶囊）
func (c Capsule) WithRadius(r float64) Capsule {
	return NewCapsule(c.center, c.halfHeight, r)
}

// Translated 返回平移后的副本
func (c Capsule) Translated(d Vec) Capsule {
	n := c
	n.SetCenter(c.center.Add(d))
	return n
}

// IsTopHemisphere 撞击点是否高于上极点（打到头顶）
func (c Capsule) IsTopHemisphere(impactPoint Vec) bool {
	return impactPoint.Y < c.a.Y-KindaSmall
}

// InLowerHemisphere 撞击点是否严格低于下极点
func (c Capsule) InLowerHemisphere(impactPoint Vec) bool {
	return impactPoint.Y > c.b.Y+KindaSmall
}
