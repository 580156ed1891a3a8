package cubism

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrInvalidState is returned when a lifecycle or model operation runs
	// in the wrong engine state.
	ErrInvalidState = errors.New("invalid engine state")

	// ErrSessionLive is returned by Dispose while models are still retained.
	ErrSessionLive = errors.New("engine disposed with live models")
)

// State is the engine lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateStarted
	StateInitialized
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarted:
		return "started"
	case StateInitialized:
		return "initialized"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LogLevel is the engine's own log threshold.
type LogLevel int

const (
	LogVerbose LogLevel = iota
	LogDebug
	LogInfo
	LogWarning
	LogError
	LogOff
)

// ParseLogLevel converts a config string to a LogLevel. Unknown values map
// to LogWarning.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "verbose":
		return LogVerbose
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "error":
		return LogError
	case "off", "none":
		return LogOff
	default:
		return LogWarning
	}
}

// Framework gates access to the engine runtime. One Framework exists per
// process run; it is passed to every component that touches the engine.
type Framework struct {
	runtime Runtime

	mu       sync.Mutex
	state    State
	retained int
}

// NewFramework wraps runtime in an uninitialized lifecycle.
func NewFramework(runtime Runtime) *Framework {
	return &Framework{runtime: runtime}
}

// StartUp moves Uninitialized to Started. Calls after Started are no-ops.
// log may be nil.
func (f *Framework) StartUp(log func(string), level LogLevel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateStarted, StateInitialized:
		return nil
	case StateDisposed:
		return fmt.Errorf("start up after dispose: %w", ErrInvalidState)
	}

	if log == nil {
		log = func(string) {}
		level = LogOff
	}
	if err := f.runtime.StartUp(log, level); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	f.state = StateStarted
	return nil
}

// Initialize moves Started to Initialized.
func (f *Framework) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateInitialized:
		return nil
	case StateStarted:
	default:
		return fmt.Errorf("initialize in state %s: %w", f.state, ErrInvalidState)
	}

	if err := f.runtime.Initialize(); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}
	f.state = StateInitialized
	return nil
}

// Dispose moves Initialized to Disposed. It is terminal. All retained
// models must have been released first.
func (f *Framework) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateInitialized {
		return fmt.Errorf("dispose in state %s: %w", f.state, ErrInvalidState)
	}
	if f.retained > 0 {
		return fmt.Errorf("%d model(s) retained: %w", f.retained, ErrSessionLive)
	}
	f.runtime.Dispose()
	f.state = StateDisposed
	return nil
}

// State returns the current lifecycle state.
func (f *Framework) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsStarted reports whether StartUp has completed and Dispose has not run.
func (f *Framework) IsStarted() bool {
	s := f.State()
	return s == StateStarted || s == StateInitialized
}

// IsInitialized reports whether model operations are currently allowed.
func (f *Framework) IsInitialized() bool {
	return f.State() == StateInitialized
}

// Require fails with ErrInvalidState unless the engine is initialized.
func (f *Framework) Require(op string) error {
	if s := f.State(); s != StateInitialized {
		return fmt.Errorf("%s in state %s: %w", op, s, ErrInvalidState)
	}
	return nil
}

// Retain records a live model so Dispose can refuse to run under it.
func (f *Framework) Retain() {
	f.mu.Lock()
	f.retained++
	f.mu.Unlock()
}

// Drop undoes one Retain.
func (f *Framework) Drop() {
	f.mu.Lock()
	if f.retained > 0 {
		f.retained--
	}
	f.mu.Unlock()
}
