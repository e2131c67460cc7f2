package movement

import "math"

const (
	// Gravity 重力加速度（+y 向下）
	Gravity = 980.0

	// MinFloorDist / MaxFloorDist 行走时与地面保持的间隙范围
	MinFloorDist = 1.9
	MaxFloorDist = 2.4

	// SweepEdgeRejectDistance 撞击点离胶囊边缘太近时不视为地面
	SweepEdgeRejectDistance = 0.15

	// FloorSweepShrink 地面扫掠时半径的收缩量，避免贴地即穿透
	FloorSweepShrink = 0.15

	// MaxPenetrationSlack 地面距离允许的负值（轻微嵌入）
	MaxPenetrationSlack = 0.1

	// MoveAvoidDist 撞击后沿法线保留的间隙
	MoveAvoidDist = 0.15

	// minPullbackCos 掠射角很小时限制回退距离
	minPullbackCos = 0.2

	// PenetrationPullback 最小的 MTD 回推距离
	PenetrationPullback = 0.125

	// StepForwardBias 上台阶前移时离开墙面的偏移
	StepForwardBias = 0.01

	// FallNudgeDist 刚开始下落时沿速度方向推一小段，防止马上被地面接住
	FallNudgeDist = 0.1

	// 子步进
	MaxSimulationTimeStep   = 0.05
	MaxSimulationIterations = 8
	MinTickTime             = 1e-6

	// TerminalVelocity 最大下落速度
	TerminalVelocity = 4000.0
)

// Config 角色移动参数
type Config struct {
	Radius     float64 `json:"radius"`
	HalfHeight float64 `json:"halfHeight"`

	MaxSpeed            float64 `json:"maxSpeed"`
	MaxAcceleration     float64 `json:"maxAcceleration"`
	BrakingDeceleration float64 `json:"brakingDeceleration"`
	GroundFriction      float64 `json:"groundFriction"`

	JumpVelocity         float64 `json:"jumpVelocity"`
	HoldJumpGravityScale float64 `json:"holdJumpGravityScale"`
	MaxHoldJumpTime      float64 `json:"maxHoldJumpTime"`
	GravityScale         float64 `json:"gravityScale"`
	AirControl           float64 `json:"airControl"`

	// WalkableFloorRadian 可行走坡面的最大倾角（弧度）
	WalkableFloorRadian float64 `json:"walkableFloorRadian"`
	MaxStepHeight       float64 `json:"maxStepHeight"`
}

// DefaultConfig 默认角色参数
func DefaultConfig() Config {
	return Config{
		Radius:               12,
		HalfHeight:           15,
		MaxSpeed:             300,
		MaxAcceleration:      2048,
		BrakingDeceleration:  2048,
		GroundFriction:       8,
		JumpVelocity:         420,
		HoldJumpGravityScale: 0.5,
		MaxHoldJumpTime:      0.25,
		GravityScale:         1,
		AirControl:           0.35,
		WalkableFloorRadian:  44.765 * math.Pi / 180,
		MaxStepHeight:        20,
	}
}

// WalkableFloorY 可行走坡面法线竖直分量的下限（用 cos 比较，避免 acos）
func (c Config) WalkableFloorY() float64 {
	return math.Cos(c.WalkableFloorRadian)
}
