package avatar

import (
	"math/rand/v2"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/puppet/internal/assets"
	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/engine/cubism/cubismtest"
	"github.com/Faultbox/puppet/internal/engine/cubism/preview"
)

func mocBlob() []byte {
	b := make([]byte, preview.HeaderSize)
	copy(b, "MOC3")
	b[4] = preview.MocVersion50
	return b
}

// newPreviewController runs a controller against the preview core.
func newPreviewController(t *testing.T, fsys fstest.MapFS) *Controller {
	t.Helper()
	eng := preview.New(nil)
	fw := cubism.NewFramework(eng)
	if err := fw.StartUp(nil, cubism.LogOff); err != nil {
		t.Fatal(err)
	}
	if err := fw.Initialize(); err != nil {
		t.Fatal(err)
	}
	am := assets.NewManager(assets.NewCache())
	am.AddRoot(fsys)
	ctl, err := New(Options{
		Framework: fw,
		Engine:    eng,
		Textures:  cubismtest.NewTextures(&cubismtest.Journal{}),
		Assets:    am,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctl
}

func previewFS(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"P/P.model3.json": {Data: []byte(`{
			"FileReferences": {
				"Moc": "P.moc3",
				"Textures": ["t0.png"],
				"Motions": {
					"Idle": [{"File": "idle.motion3.json"}],
					"Tap_Body": [{"File": "tap.motion3.json"}]
				}
			}
		}`)},
		"P/P.moc3":            {Data: mocBlob()},
		"P/t0.png":            {Data: pngBytes(t)},
		"P/idle.motion3.json": {Data: []byte(`{"Meta":{"Duration":1}}`)},
		"P/tap.motion3.json":  {Data: []byte(`{"Meta":{"Duration":2}}`)},
	}
}

func TestRefusedMotionKeepsPlaying(t *testing.T) {
	ctl := newPreviewController(t, previewFS(t))
	if err := ctl.LoadModel("P"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	if err := ctl.PlayMotion("Tap_Body", cubism.PriorityForce); err != nil {
		t.Fatalf("PlayMotion force: %v", err)
	}
	if err := ctl.PlayMotion("Idle", cubism.PriorityIdle); err != nil {
		t.Fatalf("PlayMotion idle: %v", err)
	}

	p, ok := ctl.Session().Playing()
	if !ok || p.Group != "Tap_Body" || p.Priority != cubism.PriorityForce || p.Token == 0 {
		t.Errorf("Playing = %+v, %v; want the force clip", p, ok)
	}
}

func TestFinishedMotionClearsPlaying(t *testing.T) {
	ctl := newPreviewController(t, previewFS(t))
	if err := ctl.LoadModel("P"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if err := ctl.PlayMotion("Idle", cubism.PriorityNormal); err != nil {
		t.Fatal(err)
	}

	_ = ctl.Update(0.5)
	if _, ok := ctl.Session().Playing(); !ok {
		t.Fatal("motion cleared before its duration")
	}
	_ = ctl.Update(0.6)
	if p, ok := ctl.Session().Playing(); ok {
		t.Errorf("Playing = %+v after the clip ended", p)
	}
}

func TestFinishedFlagFromEngine(t *testing.T) {
	f := newFixture(t)
	if err := f.ctl.LoadModel("A"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	_ = f.ctl.PlayMotion("Idle", cubism.PriorityIdle)

	_ = f.ctl.Update(0.016)
	if _, ok := f.ctl.Session().Playing(); !ok {
		t.Fatal("Playing cleared while the engine reports a running motion")
	}
	f.engine.Finished = true
	_ = f.ctl.Update(0.016)
	if _, ok := f.ctl.Session().Playing(); ok {
		t.Error("Playing kept after the engine reported the motion finished")
	}
	if f.logs.FilterMessage("motion finished").Len() != 1 {
		t.Error("expected one motion finished log")
	}
}

func TestUnderscoreMatchesBothWays(t *testing.T) {
	ctl := newPreviewController(t, previewFS(t))
	if err := ctl.LoadModel("P"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	for _, name := range []string{"Tap_Body", "tap_body", "TapBody", "tapbody"} {
		g, ok := ctl.Session().Motion(name)
		if !ok || g.Name != "Tap_Body" {
			t.Errorf("Motion(%q) = %v, %v; want Tap_Body", name, g, ok)
		}
	}
	if _, ok := ctl.Session().Motion("Tap"); ok {
		t.Error("Motion(Tap) matched a longer group")
	}
}

func TestReloadReadsChangedFiles(t *testing.T) {
	fsys := previewFS(t)
	ctl := newPreviewController(t, fsys)
	if err := ctl.LoadModel("P"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}

	// Drop the Idle group from the manifest and reload by the same name.
	fsys["P/P.model3.json"] = &fstest.MapFile{Data: []byte(`{
		"FileReferences": {
			"Moc": "P.moc3",
			"Textures": ["t0.png"],
			"Motions": {"Tap_Body": [{"File": "tap.motion3.json"}]}
		}
	}`)}
	if err := ctl.LoadModel("P"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := ctl.Session().Motion("Idle"); ok {
		t.Error("reload served the cached manifest")
	}
	if n := len(ctl.Session().MotionGroups()); n != 1 {
		t.Errorf("reloaded session has %d motion groups, want 1", n)
	}
}
