package server

import (
	"errors"
	"time"

	"capsulearena/netsync"
)

// RoomConfig 房间可热更新的规则
type RoomConfig struct {
	TickMs             int     `json:"tickMs"`
	TimeScale          float64 `json:"timeScale"`
	MaxInputsPerTick   int     `json:"maxInputsPerTick"`
	SimulateDelayMinMs int     `json:"simulateDelayMinMs"`
	SimulateDelayMaxMs int     `json:"simulateDelayMaxMs"`
	SimulateDropProb   float64 `json:"simulateDropProb"`
	DebugDraw          bool    `json:"debugDraw"`
}

// DefaultRoomConfig 20 TPS，无模拟延迟
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		TickMs:           1000 / TicksPerSecond,
		TimeScale:        1,
		MaxInputsPerTick: 8,
	}
}

func (c RoomConfig) Validate() error {
	var errs []error
	if c.TickMs < 5 || c.TickMs > 1000 {
		errs = append(errs, errors.New("tickMs must be in [5,1000]"))
	}
	if c.TimeScale < 0 || c.TimeScale > 10 {
		errs = append(errs, errors.New("timeScale must be in [0,10]"))
	}
	if c.MaxInputsPerTick <= 0 {
		errs = append(errs, errors.New("maxInputsPerTick must be positive"))
	}
	if c.SimulateDelayMinMs < 0 || c.SimulateDelayMaxMs < c.SimulateDelayMinMs {
		errs = append(errs, errors.New("simulated delay must satisfy 0 <= min <= max"))
	}
	if c.SimulateDropProb < 0 || c.SimulateDropProb > 1 {
		errs = append(errs, errors.New("simulateDropProb must be in [0,1]"))
	}
	return errors.Join(errs...)
}

func (c RoomConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// conditions 把 [min,max] 延迟区间换算成 Channel 的 Lag ± LagVariance
func (c RoomConfig) conditions() netsync.Conditions {
	lo := float64(c.SimulateDelayMinMs) / 1000
	hi := float64(c.SimulateDelayMaxMs) / 1000
	return netsync.Conditions{
		Lag:         (lo + hi) / 2,
		LagVariance: (hi - lo) / 2,
		Loss:        c.SimulateDropProb,
	}
}
