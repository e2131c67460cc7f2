package server

import (
	"fmt"
	"math"
	"testing"
	"time"

	"capsulearena/geom"
	"capsulearena/netsync"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r := NewRoom("test", geom.DefaultScene(), DefaultSpawn(), DefaultRoomConfig())
	r.BeginTick()
	return r
}

// fakeConn 只有发送队列，没有底层 WebSocket
func fakeConn() *ClientConn {
	return &ClientConn{send: make(chan frame, 64)}
}

func move(seq uint64) netsync.MoveMessage {
	return netsync.MoveMessage{Sequence: seq, Dt: 0.05, Acceleration: geom.V(2048, 0)}
}

func TestRoomInputBookkeeping(t *testing.T) {
	r := newTestRoom(t)
	r.JoinPlayer("p", nil, netsync.FormatJSON)
	r.OnInput(Input{PlayerID: "p", Move: move(1)})
	r.OnInput(Input{PlayerID: "p", Move: move(1)})
	r.OnInput(Input{PlayerID: "ghost", Move: move(1)})
	r.ProcessInputs()

	if _, ok := r.Players["p"]; !ok {
		t.Fatalf("player not joined")
	}
	if r.metrics.InputsAccepted != 1 || r.metrics.OldSeqIgnored != 1 {
		t.Fatalf("unexpected metrics: %+v", r.metrics.Snapshot())
	}

	r.BeginTick()
	for seq := uint64(2); seq < 12; seq++ {
		r.OnInput(Input{PlayerID: "p", Move: move(seq)})
	}
	r.ProcessInputs()
	if r.metrics.InputsAccepted != 9 || r.metrics.RateLimited != 2 {
		t.Fatalf("rate limit not applied: %+v", r.metrics.Snapshot())
	}

	if steps := r.UpdateWorld(50 * time.Millisecond); steps != 1 {
		t.Fatalf("50ms at 20 TPS: %d steps", steps)
	}
	r.BroadcastDelta(1)
	st := r.Status()
	if len(st.Players) != 1 || st.Stats["p"].Applied != 9 {
		t.Fatalf("status not published: %+v", st)
	}
	if st.Checksum == 0 || st.Tick != 2 {
		t.Fatalf("status tick=%d checksum=%d", st.Tick, st.Checksum)
	}
}

func TestRoomJoinSendsWelcomeAndReplication(t *testing.T) {
	r := newTestRoom(t)
	c := fakeConn()
	r.JoinPlayer("p", c, netsync.FormatMsgpack)
	r.ProcessInputs()

	fr := <-c.send
	env, err := netsync.Decode(fr.format, fr.data)
	if err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if env.Type != netsync.TypeWelcome || env.Welcome.PlayerID != "p" || env.Welcome.Spawn != DefaultSpawn() {
		t.Fatalf("unexpected welcome: %+v", env)
	}
	if env.Welcome.Scene == nil || len(env.Welcome.Scene.Polygons) == 0 {
		t.Fatalf("welcome without scene")
	}

	r.BeginTick()
	r.OnInput(Input{PlayerID: "p", Move: move(1)})
	r.ProcessInputs()
	r.BroadcastDelta(r.UpdateWorld(50 * time.Millisecond))

	fr = <-c.send
	env, err = netsync.Decode(fr.format, fr.data)
	if err != nil {
		t.Fatalf("decode replication: %v", err)
	}
	m, ok := env.Replication.Find("p")
	if env.Type != netsync.TypeReplication || !ok || m.Sequence != 1 {
		t.Fatalf("unexpected replication: %+v", env.Replication)
	}
}

func TestRoomDebugShapesAreBroadcast(t *testing.T) {
	r := newTestRoom(t)
	if _, err := r.UpdateConfig(func(c *RoomConfig) { c.DebugDraw = true }); err != nil {
		t.Fatalf("update: %v", err)
	}
	r.BeginTick()
	c := fakeConn()
	r.JoinPlayer("p", c, netsync.FormatJSON)
	r.OnInput(Input{PlayerID: "p", Move: move(1)})
	r.ProcessInputs()
	<-c.send // welcome

	r.BroadcastDelta(r.UpdateWorld(50 * time.Millisecond))
	if len(c.send) != 2 {
		t.Fatalf("want replication and debug frames, got %d", len(c.send))
	}
	<-c.send
	fr := <-c.send
	env, err := netsync.Decode(fr.format, fr.data)
	if err != nil || env.Type != netsync.TypeDebug || len(env.Shapes) == 0 {
		t.Fatalf("unexpected debug frame: %+v %v", env, err)
	}
}

func TestRoomLeave(t *testing.T) {
	r := newTestRoom(t)
	r.JoinPlayer("p", nil, netsync.FormatJSON)
	r.ProcessInputs()
	r.RequestLeave("p", nil)
	r.ProcessInputs()
	if _, ok := r.Players["p"]; ok {
		t.Fatalf("player still in room")
	}
	if _, ok := r.instance.Player("p"); ok {
		t.Fatalf("player still simulated")
	}
	// 离开后可以用同一个 ID 重新加入
	r.JoinPlayer("p", nil, netsync.FormatJSON)
	r.ProcessInputs()
	if _, ok := r.instance.Player("p"); !ok {
		t.Fatalf("rejoin failed")
	}
}

func TestRoomReconnectKeepsNewSession(t *testing.T) {
	r := newTestRoom(t)
	old, cur := fakeConn(), fakeConn()
	r.JoinPlayer("p", old, netsync.FormatJSON)
	r.ProcessInputs()
	r.JoinPlayer("p", cur, netsync.FormatJSON)
	r.ProcessInputs()
	if p := r.Players["p"]; p == nil || p.Conn != cur {
		t.Fatalf("player not moved to the new connection")
	}
	if old.send != nil {
		t.Fatalf("replaced connection not closed")
	}

	// 旧连接的读协程退出时带着旧连接请求离开，还可能有未读完的输入
	r.BeginTick()
	r.OnInput(Input{PlayerID: "p", Conn: old, Move: move(1)})
	r.RequestLeave("p", old)
	r.ProcessInputs()
	if p := r.Players["p"]; p == nil || p.Conn != cur {
		t.Fatalf("leave from the replaced connection removed the new session")
	}
	if _, ok := r.instance.Player("p"); !ok {
		t.Fatalf("new session no longer simulated")
	}
	if r.metrics.InputsAccepted != 0 {
		t.Fatalf("input from the replaced connection accepted: %+v", r.metrics.Snapshot())
	}

	r.OnInput(Input{PlayerID: "p", Conn: cur, Move: move(1)})
	r.ProcessInputs()
	if r.metrics.InputsAccepted != 1 {
		t.Fatalf("input from the new connection rejected: %+v", r.metrics.Snapshot())
	}
	r.RequestLeave("p", cur)
	r.ProcessInputs()
	if _, ok := r.Players["p"]; ok {
		t.Fatalf("leave from the current connection ignored")
	}
}

func TestJoinPlayerAfterStopDoesNotBlock(t *testing.T) {
	r := newTestRoom(t)
	for i := 0; i < cap(r.joinChan); i++ {
		if !r.JoinPlayer(PlayerID(fmt.Sprintf("p%d", i)), nil, netsync.FormatJSON) {
			t.Fatalf("join %d refused by a running room", i)
		}
	}
	r.Stop()

	done := make(chan bool, 1)
	go func() { done <- r.JoinPlayer("late", nil, netsync.FormatJSON) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("stopped room accepted a join")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("JoinPlayer blocked on a stopped room")
	}
	r.RequestLeave("p0", nil)
}

func TestRoomConfigAppliedOnTick(t *testing.T) {
	r := newTestRoom(t)
	if _, err := r.UpdateConfig(func(c *RoomConfig) { c.TimeScale = -1 }); err == nil {
		t.Fatalf("invalid config accepted")
	}
	if r.Config().TimeScale != 1 {
		t.Fatalf("invalid update leaked: %+v", r.Config())
	}

	if _, err := r.UpdateConfig(func(c *RoomConfig) {
		c.TickMs = 100
		c.SimulateDelayMinMs = 40
		c.SimulateDelayMaxMs = 60
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if r.instance.Interval != 0.05 {
		t.Fatalf("config applied before tick")
	}
	if !r.BeginTick() {
		t.Fatalf("interval change not reported")
	}
	if r.instance.Interval != 0.1 {
		t.Fatalf("interval=%v", r.instance.Interval)
	}
	cond := r.instance.Conditions()
	if math.Abs(cond.Lag-0.05) > 1e-12 || math.Abs(cond.LagVariance-0.01) > 1e-12 {
		t.Fatalf("conditions=%+v", cond)
	}
	if r.BeginTick() {
		t.Fatalf("unchanged config reported as changed")
	}
}

func TestRoomConfigValidate(t *testing.T) {
	if err := DefaultRoomConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []func(*RoomConfig){
		func(c *RoomConfig) { c.TickMs = 1 },
		func(c *RoomConfig) { c.TimeScale = 11 },
		func(c *RoomConfig) { c.MaxInputsPerTick = 0 },
		func(c *RoomConfig) { c.SimulateDelayMinMs = 50; c.SimulateDelayMaxMs = 10 },
		func(c *RoomConfig) { c.SimulateDropProb = 1.5 },
	}
	for i, fn := range bad {
		c := DefaultRoomConfig()
		fn(&c)
		if c.Validate() == nil {
			t.Fatalf("case %d: invalid config accepted: %+v", i, c)
		}
	}
}

func TestSafeTickRecoversPanics(t *testing.T) {
	r := newTestRoom(t)
	r.instance = nil
	r.lastTick = time.Now()
	r.safeTick(time.Now().Add(50 * time.Millisecond))
	if r.metrics.TickPanics != 1 {
		t.Fatalf("panic not recovered: %+v", r.metrics.Snapshot())
	}
}

func TestParseInput(t *testing.T) {
	if _, err := parseInput(netsync.FormatJSON, []byte(`{"type":"welcome"}`)); err == nil {
		t.Fatalf("non-move message accepted")
	}
	m, err := parseInput(netsync.FormatJSON, []byte(`{"type":"move","move":{"sequence":7,"dt":0.05}}`))
	if err != nil || m.Sequence != 7 {
		t.Fatalf("parse: %+v %v", m, err)
	}
}

func TestRoomManager(t *testing.T) {
	m := NewRoomManager(geom.DefaultScene(), DefaultSpawn(), DefaultRoomConfig())
	if err := m.Configure(nil, DefaultSpawn(), DefaultRoomConfig()); err == nil {
		t.Fatalf("nil scene accepted")
	}
	bad := DefaultRoomConfig()
	bad.TickMs = 0
	if err := m.Configure(geom.DefaultScene(), DefaultSpawn(), bad); err == nil {
		t.Fatalf("invalid config accepted")
	}

	a := m.GetOrCreateRoom("a")
	if b := m.GetOrCreateRoom("a"); a != b {
		t.Fatalf("second lookup created a new room")
	}
	if _, ok := m.GetRoom("missing"); ok {
		t.Fatalf("GetRoom created a room")
	}
	m.Shutdown()
	if _, ok := m.GetRoom("a"); ok {
		t.Fatalf("room kept after shutdown")
	}
}
