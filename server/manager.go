package server

import (
	"errors"
	"sync"

	"github.com/sasha-s/go-deadlock"

	"capsulearena/geom"
	"capsulearena/movement"
)

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	mu    deadlock.RWMutex
	rooms map[string]*Room

	scene *geom.Scene
	spawn geom.Vec
	cfg   RoomConfig
}

var (
	defaultManager *RoomManager
	once           sync.Once
)

// GetRoomManager 单例房间管理器
func GetRoomManager() *RoomManager {
	once.Do(func() {
		defaultManager = NewRoomManager(geom.DefaultScene(), DefaultSpawn(), DefaultRoomConfig())
	})
	return defaultManager
}

func NewRoomManager(scene *geom.Scene, spawn geom.Vec, cfg RoomConfig) *RoomManager {
	return &RoomManager{rooms: make(map[string]*Room), scene: scene, spawn: spawn, cfg: cfg}
}

// DefaultSpawn 默认场景地面上方的出生点
func DefaultSpawn() geom.Vec {
	cfg := movement.DefaultConfig()
	return geom.V(0, 400-cfg.HalfHeight-cfg.Radius-(movement.MinFloorDist+movement.MaxFloorDist)/2)
}

// Configure 设置之后新建房间使用的场景与默认配置
func (m *RoomManager) Configure(scene *geom.Scene, spawn geom.Vec, cfg RoomConfig) error {
	if scene == nil {
		return errors.New("room manager: nil scene")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scene = scene
	m.spawn = spawn
	m.cfg = cfg
	return nil
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) *Room {
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[id]; !ok {
		r = NewRoom(id, m.scene, m.spawn, m.cfg)
		m.rooms[id] = r
		r.StartTicker()
		Log.Infow("room created", "room", id, "polygons", len(m.scene.Polygons))
	}
	return r
}

// GetRoom 只查找，不创建
func (m *RoomManager) GetRoom(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Shutdown 停止所有房间
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Stop()
		delete(m.rooms, id)
	}
}
