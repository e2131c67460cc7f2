package geom

// HitResult 一次扫掠的结果；只在当前 Tick 内有效，不做持久化
type HitResult struct {
	BlockingHit      bool    `json:"blockingHit"`
	StartPenetrating bool    `json:"startPenetrating"`
	Time             float64 `json:"time"`     // [0,1]，撞击发生在请求距离的比例
	Distance         float64 `json:"distance"` // 实际行进距离
	PenetrationDepth float64 `json:"penetrationDepth"`
	ImpactPoint      Vec     `json:"impactPoint"`
	ImpactNormal     Vec     `json:"impactNormal"`
	Location         Vec     `json:"location"` // 撞击时胶囊中心
	Normal           Vec     `json:"normal"`
	Start            Vec     `json:"start"`
	End              Vec     `json:"end"`
}

// IsValidBlock 有阻挡且不是初始穿透
func (h HitResult) IsValidBlock() bool {
	return h.BlockingHit && !h.StartPenetrating
}

// missResult 未命中：时间为 1，位置为终点
func missResult(start, end Vec) HitResult {
	return HitResult{
		Time:     1,
		Distance: end.Sub(start).Len(),
		Location: end,
		Start:    start,
		End:      end,
	}
}

// Dir 扫掠方向（单位向量）
func (h HitResult) Dir() Vec { return h.End.Sub(h.Start).Normalize() }

// TraceDist 请求的扫掠距离
func (h HitResult) TraceDist() float64 { return h.End.Sub(h.Start).Len() }
