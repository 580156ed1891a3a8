// Package cubismtest provides a recording engine and texture allocator for
// tests. Both write to a shared Journal so tests can check call ordering
// across the two.
package cubismtest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/Faultbox/puppet/internal/engine/cubism"
)

// Call is one recorded engine or allocator call.
type Call struct {
	Op       string
	Model    cubism.ModelID
	Texture  uint32
	Index    int
	Kind     cubism.Resource
	Name     string
	Data     []byte
	Priority int
	Loop     bool
	X, Y     float32
	Value    float32
	MVP      [16]float32
}

func (c Call) String() string {
	switch c.Op {
	case "texture.upload", "texture.delete":
		return fmt.Sprintf("%s(%d)", c.Op, c.Texture)
	case "bind":
		return fmt.Sprintf("bind(%d,%d->%d)", c.Model, c.Index, c.Texture)
	default:
		return fmt.Sprintf("%s(%d)", c.Op, c.Model)
	}
}

// Journal is an append-only call log.
type Journal struct {
	mu    sync.Mutex
	calls []Call
}

func (j *Journal) add(c Call) {
	j.mu.Lock()
	j.calls = append(j.calls, c)
	j.mu.Unlock()
}

// Calls returns a copy of every recorded call.
func (j *Journal) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Call(nil), j.calls...)
}

// Ops returns every call whose Op equals op.
func (j *Journal) Ops(op string) []Call {
	var out []Call
	for _, c := range j.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of the first call matching pred, or -1.
func (j *Journal) Index(pred func(Call) bool) int {
	for i, c := range j.Calls() {
		if pred(c) {
			return i
		}
	}
	return -1
}

// Reset clears the log.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.calls = nil
	j.mu.Unlock()
}

// String renders the log one call per line.
func (j *Journal) String() string {
	var b strings.Builder
	for _, c := range j.Calls() {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Engine implements cubism.Engine and cubism.Runtime by recording calls.
type Engine struct {
	Journal *Journal

	// FailModel makes CreateModel fail for blobs with this content.
	FailModel []byte
	// FailOptional makes LoadOptional fail for this resource kind.
	FailOptional map[cubism.Resource]bool
	// FailRenderer makes CreateRenderer fail.
	FailRenderer bool
	// HitAreas lists the area IDs HitTest reports as hit.
	HitAreas map[string]bool
	// Finished is what MotionFinished reports.
	Finished bool

	mu     sync.Mutex
	next   cubism.ModelID
	live   map[cubism.ModelID]bool
	tokens cubism.MotionToken
}

// NewEngine creates an engine writing to j.
func NewEngine(j *Journal) *Engine {
	return &Engine{Journal: j, live: make(map[cubism.ModelID]bool)}
}

func (e *Engine) StartUp(log func(string), level cubism.LogLevel) error {
	e.Journal.add(Call{Op: "startup", Value: float32(level)})
	log("Live2D Cubism SDK Core Version 5.0.0")
	return nil
}

func (e *Engine) Initialize() error {
	e.Journal.add(Call{Op: "initialize"})
	return nil
}

func (e *Engine) Dispose() {
	e.Journal.add(Call{Op: "dispose"})
}

func (e *Engine) CreateModel(moc []byte) (cubism.ModelID, error) {
	if e.FailModel != nil && bytes.Equal(moc, e.FailModel) {
		e.Journal.add(Call{Op: "model.create.fail", Data: moc})
		return 0, errors.New("cubismtest: invalid moc")
	}
	e.mu.Lock()
	e.next++
	id := e.next
	e.live[id] = true
	e.mu.Unlock()
	e.Journal.add(Call{Op: "model.create", Model: id, Data: moc})
	return id, nil
}

func (e *Engine) LoadOptional(model cubism.ModelID, kind cubism.Resource, data []byte) error {
	e.check(model)
	e.Journal.add(Call{Op: "optional", Model: model, Kind: kind, Data: data})
	if e.FailOptional[kind] {
		return fmt.Errorf("cubismtest: %s rejected", kind)
	}
	return nil
}

func (e *Engine) CreateRenderer(model cubism.ModelID) error {
	e.check(model)
	e.Journal.add(Call{Op: "renderer", Model: model})
	if e.FailRenderer {
		return errors.New("cubismtest: renderer failed")
	}
	return nil
}

func (e *Engine) BindTexture(model cubism.ModelID, index int, texture uint32) error {
	e.check(model)
	e.Journal.add(Call{Op: "bind", Model: model, Index: index, Texture: texture})
	return nil
}

func (e *Engine) SetParameter(model cubism.ModelID, id string, value float32) {
	e.check(model)
	e.Journal.add(Call{Op: "parameter", Model: model, Name: id, Value: value})
}

func (e *Engine) PlayMotion(model cubism.ModelID, clip []byte, priority int, loop bool) (cubism.MotionToken, error) {
	e.check(model)
	e.mu.Lock()
	e.tokens++
	tok := e.tokens
	e.mu.Unlock()
	e.Journal.add(Call{Op: "motion", Model: model, Data: clip, Priority: priority, Loop: loop})
	return tok, nil
}

func (e *Engine) ApplyExpression(model cubism.ModelID, data []byte) error {
	e.check(model)
	e.Journal.add(Call{Op: "expression", Model: model, Data: data})
	return nil
}

func (e *Engine) SetDragPosition(model cubism.ModelID, x, y float32) {
	e.check(model)
	e.Journal.add(Call{Op: "drag", Model: model, X: x, Y: y})
}

func (e *Engine) HitTest(model cubism.ModelID, area string, x, y float32) bool {
	e.check(model)
	e.Journal.add(Call{Op: "hit", Model: model, Name: area, X: x, Y: y})
	return e.HitAreas[area]
}

func (e *Engine) CanvasSize(model cubism.ModelID) (float32, float32) {
	e.check(model)
	return 2, 2
}

func (e *Engine) Update(model cubism.ModelID, dt float32) {
	e.check(model)
	e.Journal.add(Call{Op: "update", Model: model, Value: dt})
}

func (e *Engine) MotionFinished(model cubism.ModelID) bool {
	e.check(model)
	return e.Finished
}

func (e *Engine) Draw(model cubism.ModelID, mvp [16]float32) {
	e.check(model)
	e.Journal.add(Call{Op: "draw", Model: model, MVP: mvp})
}

func (e *Engine) ReleaseModel(model cubism.ModelID) {
	e.check(model)
	e.mu.Lock()
	delete(e.live, model)
	e.mu.Unlock()
	e.Journal.add(Call{Op: "model.release", Model: model})
}

// Live returns the number of models created and not yet released.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// check panics when model was never created or already released, which
// is what a native engine would do by crashing.
func (e *Engine) check(model cubism.ModelID) {
	e.mu.Lock()
	ok := e.live[model]
	e.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("cubismtest: call on dead model %d", model))
	}
}

// Textures implements texture.Allocator by handing out sequential IDs.
type Textures struct {
	Journal *Journal
	// FailAt makes the n-th upload (1-based) fail. Zero disables it.
	FailAt int

	mu      sync.Mutex
	uploads int
	next    uint32
	live    map[uint32]bool
}

// NewTextures creates an allocator writing to j.
func NewTextures(j *Journal) *Textures {
	return &Textures{Journal: j, live: make(map[uint32]bool)}
}

func (t *Textures) Upload(img *image.RGBA) (uint32, error) {
	t.mu.Lock()
	t.uploads++
	if t.FailAt > 0 && t.uploads == t.FailAt {
		t.mu.Unlock()
		return 0, errors.New("cubismtest: out of texture memory")
	}
	t.next++
	id := t.next
	t.live[id] = true
	t.mu.Unlock()
	t.Journal.add(Call{Op: "texture.upload", Texture: id})
	return id, nil
}

func (t *Textures) Delete(id uint32) {
	t.mu.Lock()
	if !t.live[id] {
		t.mu.Unlock()
		panic(fmt.Sprintf("cubismtest: double delete of texture %d", id))
	}
	delete(t.live, id)
	t.mu.Unlock()
	t.Journal.add(Call{Op: "texture.delete", Texture: id})
}

// Live returns the number of textures uploaded and not deleted.
func (t *Textures) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}
