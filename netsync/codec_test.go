package netsync

import (
	"testing"

	"capsulearena/geom"
	"capsulearena/movement"
)

func TestDecodeRejectsMoveWithoutPayload(t *testing.T) {
	if _, err := Decode(FormatJSON, []byte(`{"type":"move"}`)); err == nil {
		t.Fatalf("expected error for move envelope without payload")
	}
	if _, err := Decode(FormatJSON, []byte(`{not json`)); err == nil {
		t.Fatalf("expected error for malformed json")
	}
	if _, err := Decode(FormatMsgpack, []byte{0xc1}); err == nil {
		t.Fatalf("expected error for malformed msgpack")
	}
}

func TestDecodeJSONMove(t *testing.T) {
	e, err := Decode(FormatJSON, []byte(`{"type":"move","move":{"sequence":3,"dt":0.016,"acceleration":{"x":2048,"y":0},"pressedJump":true}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Move.Sequence != 3 || !e.Move.PressedJump || e.Move.Acceleration.X != 2048 {
		t.Fatalf("unexpected move: %+v", e.Move)
	}
}

func TestMsgpackKeepsFloatBits(t *testing.T) {
	move := MoveMessage{
		ID:       "p1",
		Sequence: 42,
		Pos:      geom.V(0.1+0.2, 370.85000000000002),
		Velocity: geom.V(-1.0/3, 0),
		Mode:     movement.ModeWalking,

		JumpHoldTime: 1.0 / 60,
		Floor:        &movement.FloorResult{BlockingHit: true, WalkableFloor: true, FloorDist: 2.15},
	}
	b, err := Encode(FormatMsgpack, Envelope{Type: TypeMove, Move: &move})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := Decode(FormatMsgpack, b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if StateChecksum(*e.Move) != StateChecksum(move) {
		t.Fatalf("state changed over msgpack: %+v vs %+v", *e.Move, move)
	}
	if e.Move.Floor == nil || *e.Move.Floor != *move.Floor {
		t.Fatalf("floor lost over msgpack: %+v", e.Move.Floor)
	}
}

func TestStateChecksum(t *testing.T) {
	a := MoveMessage{Sequence: 1, Pos: geom.V(10, 20), Velocity: geom.V(1, 0), Mode: movement.ModeWalking}
	b := a
	if StateChecksum(a) != StateChecksum(b) {
		t.Fatalf("identical states must hash equal")
	}
	b.Pos.X += 1e-9
	if StateChecksum(a) == StateChecksum(b) {
		t.Fatalf("position change not detected")
	}
	b = a
	b.Mode = movement.ModeFalling
	if StateChecksum(a) == StateChecksum(b) {
		t.Fatalf("mode change not detected")
	}
	b = a
	b.JumpHoldTime = 0.1
	if StateChecksum(a) == StateChecksum(b) {
		t.Fatalf("jump hold time change not detected")
	}
	b = a
	b.Acceleration = geom.V(5, 5)
	if StateChecksum(a) != StateChecksum(b) {
		t.Fatalf("input must not affect the state checksum")
	}
}
