// Package cubism defines the boundary to the native animation engine.
//
// The engine is consumed only through the Engine capability set and the
// Runtime lifecycle hooks. None of it is thread-safe: every call must come
// from the goroutine that owns the graphics context.
package cubism

// ModelID is an opaque native model identifier. Zero is never valid.
type ModelID uint64

// MotionToken identifies a started motion. Zero means the engine refused it.
type MotionToken uint64

// Resource kinds accepted by LoadOptional.
type Resource int

const (
	ResourcePose Resource = iota
	ResourcePhysics
)

func (r Resource) String() string {
	switch r {
	case ResourcePose:
		return "pose"
	case ResourcePhysics:
		return "physics"
	default:
		return "unknown"
	}
}

// Motion priorities understood by the engine's motion manager.
const (
	PriorityNone   = 0
	PriorityIdle   = 1
	PriorityNormal = 2
	PriorityForce  = 3
)

// Engine is the capability set of the native animation engine.
type Engine interface {
	// CreateModel parses a model blob and returns its identifier.
	CreateModel(moc []byte) (ModelID, error)
	// LoadOptional attaches a pose or physics definition to a model.
	LoadOptional(model ModelID, kind Resource, data []byte) error
	// CreateRenderer builds the renderer bound to model.
	CreateRenderer(model ModelID) error
	// BindTexture binds an uploaded texture to slot index.
	BindTexture(model ModelID, index int, texture uint32) error
	SetParameter(model ModelID, id string, value float32)
	// PlayMotion starts a motion clip. The engine decides whether priority
	// preempts the motion currently playing.
	PlayMotion(model ModelID, clip []byte, priority int, loop bool) (MotionToken, error)
	ApplyExpression(model ModelID, data []byte) error
	SetDragPosition(model ModelID, x, y float32)
	HitTest(model ModelID, area string, x, y float32) bool
	CanvasSize(model ModelID) (width, height float32)
	Update(model ModelID, dt float32)
	// MotionFinished reports whether no motion is playing on model.
	MotionFinished(model ModelID) bool
	Draw(model ModelID, mvp [16]float32)
	ReleaseModel(model ModelID)
}

// Runtime is the process-level part of the engine: memory allocators,
// logging hooks and global tables.
type Runtime interface {
	StartUp(log func(string), level LogLevel) error
	Initialize() error
	Dispose()
}
