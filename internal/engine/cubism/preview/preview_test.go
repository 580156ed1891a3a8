package preview

import (
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/pkg/math"
)

type draw struct {
	texture uint32
	mvp     [16]float32
	opacity float32
}

type recordDrawer struct {
	draws []draw
}

func (d *recordDrawer) Draw(texture uint32, mvp [16]float32, opacity float32) {
	d.draws = append(d.draws, draw{texture, mvp, opacity})
}

func newModel(t *testing.T, d Drawer) (*Engine, cubism.ModelID) {
	t.Helper()
	e := New(d)
	id, err := e.CreateModel(moc(MocVersion50))
	if err != nil {
		t.Fatalf("CreateModel: %v", err)
	}
	return e, id
}

func TestStartUpBanner(t *testing.T) {
	tests := []struct {
		level cubism.LogLevel
		lines int
	}{
		{cubism.LogVerbose, 2},
		{cubism.LogWarning, 1},
		{cubism.LogOff, 0},
	}
	for _, tt := range tests {
		var lines []string
		e := New(nil)
		fw := cubism.NewFramework(e)
		if err := fw.StartUp(func(s string) { lines = append(lines, s) }, tt.level); err != nil {
			t.Fatalf("StartUp: %v", err)
		}
		if err := fw.Initialize(); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if len(lines) != tt.lines {
			t.Errorf("level %d: %d log lines %q, want %d", tt.level, len(lines), lines, tt.lines)
		}
		if tt.lines > 0 && !strings.HasPrefix(lines[0], "Live2D Cubism SDK Core Version") {
			t.Errorf("first line = %q, want version banner", lines[0])
		}
	}
}

func TestCreateModelRejectsBadMoc(t *testing.T) {
	e := New(nil)
	if _, err := e.CreateModel([]byte("not a moc")); !errors.Is(err, ErrBadMoc) {
		t.Fatalf("CreateModel error = %v, want ErrBadMoc", err)
	}
	if e.Models() != 0 {
		t.Errorf("Models = %d after failed create, want 0", e.Models())
	}
}

func TestModelIDsAreDistinct(t *testing.T) {
	e := New(nil)
	a, _ := e.CreateModel(moc(MocVersion40))
	b, _ := e.CreateModel(moc(MocVersion40))
	if a == 0 || b == 0 || a == b {
		t.Fatalf("ids %d, %d: want distinct non-zero", a, b)
	}
	e.ReleaseModel(a)
	if e.Models() != 1 {
		t.Errorf("Models = %d, want 1", e.Models())
	}
	if err := e.CreateRenderer(a); !errors.Is(err, cubism.ErrInvalidState) {
		t.Errorf("CreateRenderer on released model = %v, want ErrInvalidState", err)
	}
}

func TestLoadOptional(t *testing.T) {
	e, id := newModel(t, nil)
	if err := e.LoadOptional(id, cubism.ResourcePhysics, []byte(`{"Version":3}`)); err != nil {
		t.Fatalf("physics: %v", err)
	}
	if err := e.LoadOptional(id, cubism.ResourcePose, []byte(`{"Groups":`)); err == nil {
		t.Fatal("expected error for truncated pose")
	}
	m := e.models[id]
	if !m.physics || m.pose {
		t.Errorf("physics=%v pose=%v, want true false", m.physics, m.pose)
	}
}

func TestBindTextureNeedsRenderer(t *testing.T) {
	e, id := newModel(t, nil)
	if err := e.BindTexture(id, 0, 5); !errors.Is(err, cubism.ErrInvalidState) {
		t.Fatalf("BindTexture before renderer = %v, want ErrInvalidState", err)
	}
	if err := e.CreateRenderer(id); err != nil {
		t.Fatal(err)
	}
	if err := e.BindTexture(id, 0, 5); err != nil {
		t.Fatalf("BindTexture: %v", err)
	}
	if err := e.BindTexture(id, -1, 6); err == nil {
		t.Error("expected error for negative index")
	}
}

func TestMotionPriority(t *testing.T) {
	e, id := newModel(t, nil)
	clip := []byte(`{"Meta":{"Duration":2.0}}`)

	normal, err := e.PlayMotion(id, clip, cubism.PriorityNormal, false)
	if err != nil || normal == 0 {
		t.Fatalf("PlayMotion normal = %d, %v", normal, err)
	}
	idle, err := e.PlayMotion(id, clip, cubism.PriorityIdle, false)
	if err != nil || idle != 0 {
		t.Errorf("idle over normal = %d, %v; want refused", idle, err)
	}
	again, _ := e.PlayMotion(id, clip, cubism.PriorityNormal, false)
	if again == 0 || again == normal {
		t.Errorf("equal priority token = %d, want new token", again)
	}

	if e.MotionFinished(id) {
		t.Fatal("MotionFinished while a clip runs")
	}

	// Once the clip ends any priority plays again.
	e.Update(id, 2.5)
	if !e.MotionFinished(id) {
		t.Fatal("motion should end after its duration")
	}
	if tok, _ := e.PlayMotion(id, clip, cubism.PriorityIdle, false); tok == 0 {
		t.Error("idle refused after motion ended")
	}
}

func TestLoopingMotionKeepsPlaying(t *testing.T) {
	e, id := newModel(t, nil)
	if _, err := e.PlayMotion(id, []byte(`{"Meta":{"Duration":1,"Loop":true}}`), cubism.PriorityIdle, false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		e.Update(id, 0.25)
	}
	m := e.models[id].motion
	if m == nil {
		t.Fatal("looping motion ended")
	}
	if m.elapsed >= m.duration {
		t.Errorf("elapsed %v not wrapped under %v", m.elapsed, m.duration)
	}
}

func TestMotionRejectsInvalidJSON(t *testing.T) {
	e, id := newModel(t, nil)
	if _, err := e.PlayMotion(id, []byte("{"), cubism.PriorityForce, false); err == nil {
		t.Fatal("expected error")
	}
	if e.models[id].motion != nil {
		t.Error("invalid clip must not replace the motion")
	}
}

func TestHitTest(t *testing.T) {
	e, id := newModel(t, nil)
	tests := []struct {
		x, y float32
		want bool
	}{
		{0, 0, true},
		{1, 1, true},
		{-1, 0.5, true},
		{1.01, 0, false},
		{0, -1.5, false},
	}
	for _, tt := range tests {
		if got := e.HitTest(id, "Body", tt.x, tt.y); got != tt.want {
			t.Errorf("HitTest(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	if e.HitTest(id+1, "Body", 0, 0) {
		t.Error("HitTest on unknown model = true")
	}
	if w, h := e.CanvasSize(id); w != 2 || h != 2 {
		t.Errorf("CanvasSize = %v x %v, want 2 x 2", w, h)
	}
}

func TestDraw(t *testing.T) {
	d := &recordDrawer{}
	e, id := newModel(t, d)

	e.Draw(id, math.Identity())
	if len(d.draws) != 0 {
		t.Fatal("drew without renderer")
	}

	_ = e.CreateRenderer(id)
	e.Draw(id, math.Identity())
	if len(d.draws) != 0 {
		t.Fatal("drew without texture 0")
	}

	_ = e.BindTexture(id, 1, 8)
	_ = e.BindTexture(id, 0, 7)
	e.SetDragPosition(id, 1, -1)
	e.Draw(id, math.Scale(2, 2, 1))

	if len(d.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(d.draws))
	}
	got := d.draws[0]
	if got.texture != 7 {
		t.Errorf("texture = %d, want 7", got.texture)
	}
	if got.opacity != 1 {
		t.Errorf("opacity = %v, want 1", got.opacity)
	}
	// Scale(2) * Translate(0.05, -0.05) puts the origin at (0.1, -0.1).
	origin := math.Mat4(got.mvp).Apply(math.Vec2{})
	if !near(origin.X, 0.1) || !near(origin.Y, -0.1) {
		t.Errorf("origin = %+v, want (0.1, -0.1)", origin)
	}
}

func TestOpacity(t *testing.T) {
	d := &recordDrawer{}
	e, id := newModel(t, d)
	_ = e.CreateRenderer(id)
	_ = e.BindTexture(id, 0, 1)

	if err := e.ApplyExpression(id, []byte(`{"Parameters":[{"Id":"ParamOpacity","Value":0.5}]}`)); err != nil {
		t.Fatal(err)
	}
	e.Draw(id, math.Identity())

	e.SetParameter(id, ParamOpacity, 3)
	e.Draw(id, math.Identity())

	e.SetParameter(id, ParamOpacity, -1)
	e.Draw(id, math.Identity())

	want := []float32{0.5, 1, 0}
	for i, w := range want {
		if d.draws[i].opacity != w {
			t.Errorf("draw %d opacity = %v, want %v", i, d.draws[i].opacity, w)
		}
	}
}

func TestDisposeClearsModels(t *testing.T) {
	var lines []string
	e := New(nil)
	_ = e.StartUp(func(s string) { lines = append(lines, s) }, cubism.LogWarning)
	_, _ = e.CreateModel(moc(MocVersion50))
	e.Dispose()
	if e.Models() != 0 {
		t.Errorf("Models = %d after Dispose", e.Models())
	}
	if len(lines) != 2 || !strings.Contains(lines[1], "1 model(s) alive") {
		t.Errorf("log = %q, want banner and leak warning", lines)
	}
}

func near(a, b float32) bool {
	d := a - b
	return d < 1e-5 && d > -1e-5
}
