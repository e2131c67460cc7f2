package netsync

import (
	"encoding/json"
	"fmt"
)

// Role 角色在某个 Instance 中的身份
type Role uint8

const (
	RoleAuthority  Role = iota + 1 // 服务器上的权威角色
	RoleAutonomous                 // 客户端自己控制、本地预测的角色
	RoleSimulate                   // 客户端看到的远端角色，只做插值
)

func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleAutonomous:
		return "autonomous"
	case RoleSimulate:
		return "simulate"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

type tickFunc func(p *Player, ctx *Context)

// roleTicks 每种角色一个 Tick 函数
var roleTicks = map[Role]tickFunc{
	RoleAuthority:  tickAuthority,
	RoleAutonomous: tickAutonomous,
	RoleSimulate:   tickSimulate,
}

// misuse 角色用错属于编程错误：记日志，不做任何修改
func (p *Player) misuse(ctx *Context, op string, want Role) bool {
	if p.Role == want {
		return false
	}
	ctx.logger().Warnw("role misuse", "player", p.ID, "op", op, "role", p.Role.String(), "want", want.String())
	return true
}
