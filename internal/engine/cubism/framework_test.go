package cubism

import (
	"errors"
	"testing"
)

type fakeRuntime struct {
	startups    int
	inits       int
	disposes    int
	level       LogLevel
	gotCallback bool
}

func (r *fakeRuntime) StartUp(log func(string), level LogLevel) error {
	r.startups++
	r.level = level
	r.gotCallback = log != nil
	return nil
}

func (r *fakeRuntime) Initialize() error {
	r.inits++
	return nil
}

func (r *fakeRuntime) Dispose() {
	r.disposes++
}

func TestLifecycle(t *testing.T) {
	rt := &fakeRuntime{}
	fw := NewFramework(rt)

	if fw.IsStarted() || fw.IsInitialized() {
		t.Fatal("new framework should be uninitialized")
	}
	if err := fw.Initialize(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Initialize before StartUp = %v, want ErrInvalidState", err)
	}

	if err := fw.StartUp(func(string) {}, LogWarning); err != nil {
		t.Fatalf("StartUp: %v", err)
	}
	if err := fw.StartUp(nil, LogOff); err != nil {
		t.Fatalf("second StartUp: %v", err)
	}
	if rt.startups != 1 {
		t.Errorf("runtime started %d times, want 1", rt.startups)
	}
	if rt.level != LogWarning {
		t.Errorf("runtime level = %v, want LogWarning", rt.level)
	}
	if !fw.IsStarted() || fw.IsInitialized() {
		t.Error("expected started but not initialized")
	}
	if err := fw.Require("load"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Require while started = %v, want ErrInvalidState", err)
	}

	if err := fw.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !fw.IsInitialized() {
		t.Error("expected initialized")
	}
	if err := fw.Require("load"); err != nil {
		t.Errorf("Require while initialized: %v", err)
	}

	if err := fw.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if fw.State() != StateDisposed {
		t.Errorf("state = %v, want disposed", fw.State())
	}
	if fw.IsStarted() {
		t.Error("disposed framework must not report started")
	}

	// Dispose is terminal.
	if err := fw.StartUp(nil, LogOff); !errors.Is(err, ErrInvalidState) {
		t.Errorf("StartUp after Dispose = %v, want ErrInvalidState", err)
	}
	if err := fw.Initialize(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Initialize after Dispose = %v, want ErrInvalidState", err)
	}
	if err := fw.Dispose(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Dispose = %v, want ErrInvalidState", err)
	}
	if rt.disposes != 1 {
		t.Errorf("runtime disposed %d times, want 1", rt.disposes)
	}
}

func TestStartUpWithoutCallback(t *testing.T) {
	rt := &fakeRuntime{}
	fw := NewFramework(rt)
	if err := fw.StartUp(nil, LogDebug); err != nil {
		t.Fatalf("StartUp: %v", err)
	}
	if rt.level != LogOff {
		t.Errorf("level without callback = %v, want LogOff", rt.level)
	}
}

func TestDisposeWithRetainedModel(t *testing.T) {
	rt := &fakeRuntime{}
	fw := NewFramework(rt)
	_ = fw.StartUp(nil, LogOff)
	_ = fw.Initialize()

	fw.Retain()
	if err := fw.Dispose(); !errors.Is(err, ErrSessionLive) {
		t.Fatalf("Dispose with live model = %v, want ErrSessionLive", err)
	}
	fw.Drop()
	if err := fw.Dispose(); err != nil {
		t.Fatalf("Dispose after Drop: %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"verbose", LogVerbose},
		{"DEBUG", LogDebug},
		{"info", LogInfo},
		{"warning", LogWarning},
		{"error", LogError},
		{"off", LogOff},
		{"", LogWarning},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
