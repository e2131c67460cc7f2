package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"

	"capsulearena/netsync"
)

func roomFromQuery(r *http.Request) (string, *Room) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = "room-1"
	}
	return roomID, GetRoomManager().GetOrCreateRoom(roomID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID, room := roomFromQuery(r)

	type cfg struct {
		TickMs             *int     `json:"tickMs,omitempty"`
		TimeScale          *float64 `json:"timeScale,omitempty"`
		MaxInputsPerTick   *int     `json:"maxInputsPerTick,omitempty"`
		SimulateDelayMinMs *int     `json:"simulateDelayMinMs,omitempty"`
		SimulateDelayMaxMs *int     `json:"simulateDelayMaxMs,omitempty"`
		SimulateDropProb   *float64 `json:"simulateDropProb,omitempty"`
		DebugDraw          *bool    `json:"debugDraw,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, room.Config())
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		next, err := room.UpdateConfig(func(c *RoomConfig) {
			if body.TickMs != nil {
				c.TickMs = *body.TickMs
			}
			if body.TimeScale != nil {
				c.TimeScale = *body.TimeScale
			}
			if body.MaxInputsPerTick != nil {
				c.MaxInputsPerTick = *body.MaxInputsPerTick
			}
			if body.SimulateDelayMinMs != nil {
				c.SimulateDelayMinMs = *body.SimulateDelayMinMs
			}
			if body.SimulateDelayMaxMs != nil {
				c.SimulateDelayMaxMs = *body.SimulateDelayMaxMs
			}
			if body.SimulateDropProb != nil {
				c.SimulateDropProb = *body.SimulateDropProb
			}
			if body.DebugDraw != nil {
				c.DebugDraw = *body.DebugDraw
			}
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "config": next})
		Log.Infow("config updated", "room", roomID, "config", next)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID, room := roomFromQuery(r)
	st := room.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    roomID,
		"tick":    room.tickSeq.Load(),
		"metrics": room.metrics.Snapshot(),
		"status":  st,
	})
}

var (
	schemaOnce sync.Once
	schemaJSON []byte
)

// HandleSchema 线上消息（Envelope）的 JSON Schema
// GET /schema
func HandleSchema(w http.ResponseWriter, r *http.Request) {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{DoNotReference: true}
		s := reflector.Reflect(&netsync.Envelope{})
		s.Title = "capsulearena wire envelope"
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			Log.Errorw("schema", "err", err)
			return
		}
		schemaJSON = b
	})
	if schemaJSON == nil {
		http.Error(w, "schema unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(schemaJSON)
}
