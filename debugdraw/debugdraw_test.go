package debugdraw

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"capsulearena/geom"
)

func TestNilRecorderIsDisabled(t *testing.T) {
	var r *Recorder
	r.Point(geom.V(1, 2), 3, "red")
	r.SetConfig(Config{Enabled: true})
	r.Reset()
	if r.Enabled() || r.Shapes() != nil {
		t.Fatalf("nil recorder should record nothing")
	}
}

func TestRecorderOnlyRecordsWhenEnabled(t *testing.T) {
	r := NewRecorder(Config{})
	r.Line(geom.V(0, 0), geom.V(1, 1), "red")
	if len(r.Shapes()) != 0 {
		t.Fatalf("disabled recorder kept shapes")
	}

	r.SetConfig(Config{Enabled: true})
	r.Line(geom.V(0, 0), geom.V(1, 1), "red")
	r.Arrow(geom.V(0, 0), geom.V(0, -5), "blue")
	shapes := r.Shapes()
	if len(shapes) != 2 || shapes[0].Kind != KindLine || shapes[1].Kind != KindArrow {
		t.Fatalf("unexpected shapes: %+v", shapes)
	}
	shapes[0].Color = "changed"
	if r.Shapes()[0].Color != "red" {
		t.Fatalf("Shapes must return a copy")
	}

	r.SetConfig(Config{})
	if len(r.Shapes()) != 0 {
		t.Fatalf("disabling should clear shapes")
	}
}

func TestDispatchToJSONDrawer(t *testing.T) {
	shapes := []Shape{
		{Kind: KindPoint, A: geom.V(1, 2), Size: 3, Color: "red"},
		{Kind: Kind(99), A: geom.V(0, 0)},
		{Kind: KindArrow, A: geom.V(0, 0), B: geom.V(4, 0), Color: "green"},
	}
	var buf bytes.Buffer
	d := NewJSONDrawer(&buf)
	Dispatch(shapes, d)
	if d.Err() != nil {
		t.Fatalf("write: %v", d.Err())
	}

	var got []Shape
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var s Shape
		if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		got = append(got, s)
	}
	if len(got) != 2 {
		t.Fatalf("unknown kind should be skipped, got %d shapes", len(got))
	}
	if got[0] != shapes[0] || got[1] != shapes[2] {
		t.Fatalf("shapes changed: %+v", got)
	}
}

func TestKindUnmarshalRejectsUnknown(t *testing.T) {
	var k Kind
	if err := json.Unmarshal([]byte(`"circle"`), &k); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
