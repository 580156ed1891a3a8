// Package preview is a pure Go stand-in for the native animation core.
//
// It accepts real model files, checks their structure, keeps parameter
// and motion state, and draws texture 0 of a model as a flat quad. It does
// no deformation, physics or mesh rendering.
package preview

import (
	"fmt"
	stdmath "math"

	"github.com/tidwall/gjson"

	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/pkg/math"
)

// Version is reported in the startup banner.
const Version = "5.0.0"

// ParamOpacity is the parameter read as the draw alpha.
const ParamOpacity = "ParamOpacity"

// defaultMotionDuration is used for clips without Meta.Duration.
const defaultMotionDuration = 1.0

// dragOffset scales the drag position into a canvas translation.
const dragOffset = 0.05

// Drawer draws one texture over the unit canvas.
type Drawer interface {
	Draw(texture uint32, mvp [16]float32, opacity float32)
}

type motion struct {
	token    cubism.MotionToken
	priority int
	loop     bool
	duration float64
	elapsed  float64
}

type model struct {
	header   Header
	pose     bool
	physics  bool
	renderer bool
	textures map[int]uint32
	params   map[string]float32
	drag     math.Vec2
	motion   *motion
	// expression holds the parameter targets of the applied expression.
	expression map[string]float32
}

// Engine implements cubism.Engine and cubism.Runtime. Like the native
// core it is not safe for concurrent use.
type Engine struct {
	drawer Drawer
	log    func(string)
	level  cubism.LogLevel

	models     map[cubism.ModelID]*model
	nextModel  cubism.ModelID
	nextMotion cubism.MotionToken
}

var (
	_ cubism.Engine  = (*Engine)(nil)
	_ cubism.Runtime = (*Engine)(nil)
)

// New returns an engine that draws through d. d may be nil, in which
// case Draw does nothing.
func New(d Drawer) *Engine {
	return &Engine{
		drawer: d,
		log:    func(string) {},
		level:  cubism.LogOff,
		models: make(map[cubism.ModelID]*model),
	}
}

func (e *Engine) logf(level cubism.LogLevel, format string, args ...any) {
	if level < e.level {
		return
	}
	e.log(fmt.Sprintf(format, args...))
}

// StartUp stores the log sink and prints the version banner at every
// level except LogOff.
func (e *Engine) StartUp(log func(string), level cubism.LogLevel) error {
	if log != nil {
		e.log = log
	}
	e.level = level
	if level < cubism.LogOff {
		e.log(fmt.Sprintf("Live2D Cubism SDK Core Version %s (preview)", Version))
	}
	return nil
}

func (e *Engine) Initialize() error {
	e.logf(cubism.LogDebug, "[preview] framework initialized")
	return nil
}

// Dispose drops every model still registered.
func (e *Engine) Dispose() {
	if n := len(e.models); n > 0 {
		e.logf(cubism.LogWarning, "[preview] disposing with %d model(s) alive", n)
	}
	clear(e.models)
	e.logf(cubism.LogDebug, "[preview] framework disposed")
}

func (e *Engine) CreateModel(moc []byte) (cubism.ModelID, error) {
	h, err := ParseHeader(moc)
	if err != nil {
		return 0, err
	}
	e.nextModel++
	e.models[e.nextModel] = &model{
		header:   h,
		textures: make(map[int]uint32),
		params:   make(map[string]float32),
	}
	e.logf(cubism.LogDebug, "[preview] model %d created (moc3 v%d)", e.nextModel, h.Version)
	return e.nextModel, nil
}

func (e *Engine) lookup(id cubism.ModelID) (*model, error) {
	m, ok := e.models[id]
	if !ok {
		return nil, fmt.Errorf("model %d: %w", id, cubism.ErrInvalidState)
	}
	return m, nil
}

func (e *Engine) LoadOptional(id cubism.ModelID, kind cubism.Resource, data []byte) error {
	m, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%s: invalid json", kind)
	}
	switch kind {
	case cubism.ResourcePose:
		m.pose = true
	case cubism.ResourcePhysics:
		m.physics = true
	default:
		return fmt.Errorf("resource kind %d not supported", int(kind))
	}
	return nil
}

func (e *Engine) CreateRenderer(id cubism.ModelID) error {
	m, err := e.lookup(id)
	if err != nil {
		return err
	}
	m.renderer = true
	return nil
}

func (e *Engine) BindTexture(id cubism.ModelID, index int, texture uint32) error {
	m, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !m.renderer {
		return fmt.Errorf("bind texture %d before renderer: %w", index, cubism.ErrInvalidState)
	}
	if index < 0 {
		return fmt.Errorf("texture index %d out of range", index)
	}
	m.textures[index] = texture
	return nil
}

func (e *Engine) SetParameter(id cubism.ModelID, param string, value float32) {
	if m, ok := e.models[id]; ok {
		m.params[param] = value
	}
}

// PlayMotion starts clip unless a motion of higher priority is still
// running, in which case it returns a zero token.
func (e *Engine) PlayMotion(id cubism.ModelID, clip []byte, priority int, loop bool) (cubism.MotionToken, error) {
	m, err := e.lookup(id)
	if err != nil {
		return 0, err
	}
	if !gjson.ValidBytes(clip) {
		return 0, fmt.Errorf("motion: invalid json")
	}
	if m.motion != nil && m.motion.priority > priority {
		e.logf(cubism.LogDebug, "[preview] motion priority %d refused, %d playing", priority, m.motion.priority)
		return 0, nil
	}

	duration := defaultMotionDuration
	if d := gjson.GetBytes(clip, "Meta.Duration"); d.Exists() && d.Float() > 0 {
		duration = d.Float()
	}
	loop = loop || gjson.GetBytes(clip, "Meta.Loop").Bool()

	e.nextMotion++
	m.motion = &motion{token: e.nextMotion, priority: priority, loop: loop, duration: duration}
	return e.nextMotion, nil
}

// ApplyExpression applies the Parameters list of an exp3.json file.
func (e *Engine) ApplyExpression(id cubism.ModelID, data []byte) error {
	m, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("expression: invalid json")
	}
	targets := make(map[string]float32)
	gjson.GetBytes(data, "Parameters").ForEach(func(_, p gjson.Result) bool {
		if pid := p.Get("Id").String(); pid != "" {
			targets[pid] = float32(p.Get("Value").Float())
		}
		return true
	})
	m.expression = targets
	return nil
}

func (e *Engine) SetDragPosition(id cubism.ModelID, x, y float32) {
	if m, ok := e.models[id]; ok {
		m.drag = math.Vec2{X: x, Y: y}
	}
}

// HitTest treats the whole canvas as every hit area.
func (e *Engine) HitTest(id cubism.ModelID, _ string, x, y float32) bool {
	if _, ok := e.models[id]; !ok {
		return false
	}
	w, h := e.CanvasSize(id)
	return math.Vec2{X: x, Y: y}.In(math.Vec2{X: -w / 2, Y: -h / 2}, math.Vec2{X: w / 2, Y: h / 2})
}

// CanvasSize is the unit canvas the quad is drawn on.
func (e *Engine) CanvasSize(cubism.ModelID) (float32, float32) {
	return 2, 2
}

// Update advances the playing motion and ends it once it runs out.
func (e *Engine) Update(id cubism.ModelID, dt float32) {
	m, ok := e.models[id]
	if !ok || m.motion == nil {
		return
	}
	m.motion.elapsed += float64(dt)
	if m.motion.elapsed < m.motion.duration {
		return
	}
	if m.motion.loop {
		m.motion.elapsed = stdmath.Mod(m.motion.elapsed, m.motion.duration)
		return
	}
	m.motion = nil
}

// MotionFinished reports true once the last motion ended or when none was
// started.
func (e *Engine) MotionFinished(id cubism.ModelID) bool {
	m, ok := e.models[id]
	return !ok || m.motion == nil
}

func (e *Engine) opacity(m *model) float32 {
	v, ok := m.expression[ParamOpacity]
	if p, set := m.params[ParamOpacity]; set {
		v, ok = p, true
	}
	if !ok {
		return 1
	}
	return min(max(v, 0), 1)
}

// Draw renders texture 0 through mvp, shifted towards the drag position.
func (e *Engine) Draw(id cubism.ModelID, mvp [16]float32) {
	m, ok := e.models[id]
	if !ok || e.drawer == nil || !m.renderer {
		return
	}
	tex, ok := m.textures[0]
	if !ok {
		return
	}
	nudge := math.Translate(m.drag.X*dragOffset, m.drag.Y*dragOffset, 0)
	e.drawer.Draw(tex, math.Mat4(mvp).Mul(nudge), e.opacity(m))
}

func (e *Engine) ReleaseModel(id cubism.ModelID) {
	if _, ok := e.models[id]; !ok {
		e.logf(cubism.LogWarning, "[preview] release of unknown model %d", id)
		return
	}
	delete(e.models, id)
}

// Models returns the number of live models.
func (e *Engine) Models() int {
	return len(e.models)
}
