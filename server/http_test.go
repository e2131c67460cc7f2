package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"capsulearena/netsync"
)

func TestAdminConfig(t *testing.T) {
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/config?room=admin-test", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleAdminConfig(rec, req)
		return rec
	}

	if rec := post(`{"timeScale": 50}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid config: status %d", rec.Code)
	}
	if rec := post(`{not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", rec.Code)
	}
	if rec := post(`{"tickMs": 40, "debugDraw": true}`); rec.Code != http.StatusOK {
		t.Fatalf("valid config: status %d %s", rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config?room=admin-test", nil))
	var cfg RoomConfig
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.TickMs != 40 || !cfg.DebugDraw || cfg.TimeScale != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	rec = httptest.NewRecorder()
	HandleAdminConfig(rec, httptest.NewRequest(http.MethodDelete, "/admin/config", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete: status %d", rec.Code)
	}
}

func TestMetricsAndSchema(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics?room=metrics-test", nil))
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if body["room"] != "metrics-test" || body["metrics"] == nil || body["status"] == nil {
		t.Fatalf("unexpected metrics body: %v", body)
	}

	rec = httptest.NewRecorder()
	HandleSchema(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "replication") {
		t.Fatalf("schema: status %d", rec.Code)
	}
}

func TestWebSocketSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=ws-test&player=alice"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	read := func() netsync.Envelope {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt != websocket.TextMessage {
			t.Fatalf("json session got message type %d", mt)
		}
		env, err := netsync.Decode(netsync.FormatJSON, data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		return env
	}

	if env := read(); env.Type != netsync.TypeWelcome || env.Welcome.PlayerID != "alice" {
		t.Fatalf("first message should be welcome, got %+v", env)
	}

	b, _ := netsync.Encode(netsync.FormatJSON, netsync.Envelope{
		Type: netsync.TypeMove,
		Move: &netsync.MoveMessage{Sequence: 1, Dt: 0.05},
	})
	if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		env := read()
		if env.Type != netsync.TypeReplication {
			continue
		}
		if m, ok := env.Replication.Find("alice"); ok && m.Sequence == 1 {
			return
		}
	}
}

func readEnvelope(ws *websocket.Conn) (netsync.Envelope, error) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return netsync.Envelope{}, err
	}
	return netsync.Decode(netsync.FormatJSON, data)
}

func TestWebSocketReconnectSameID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(HandleWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=ws-reconnect&player=bob"

	dial := func() *websocket.Conn {
		ws, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		ws.SetReadDeadline(time.Now().Add(5 * time.Second))
		env, err := readEnvelope(ws)
		if err != nil || env.Type != netsync.TypeWelcome || env.Welcome.PlayerID != "bob" {
			t.Fatalf("want welcome, got %+v %v", env, err)
		}
		return ws
	}

	first := dial()
	defer first.Close()
	second := dial()
	defer second.Close()

	// 旧连接被服务器关闭，它的读协程随之退出
	for {
		if _, err := readEnvelope(first); err != nil {
			break
		}
	}
	time.Sleep(200 * time.Millisecond)

	b, _ := netsync.Encode(netsync.FormatJSON, netsync.Envelope{
		Type: netsync.TypeMove,
		Move: &netsync.MoveMessage{Sequence: 1, Dt: 0.05},
	})
	if err := second.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		env, err := readEnvelope(second)
		if err != nil {
			t.Fatalf("new session lost: %v", err)
		}
		if env.Type != netsync.TypeReplication {
			continue
		}
		if m, ok := env.Replication.Find("bob"); ok && m.Sequence == 1 {
			return
		}
	}
}

func TestWebSocketRejectsUnknownFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws?format=xml", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}
