// Package command carries control requests from producers to the render
// goroutine.
//
// Producers (HTTP handlers, input polling) build Command values and enqueue
// them; the render loop drains the queue once per frame and applies them in
// order. Commands are immutable once enqueued.
package command

import "fmt"

// Kind tags a Command variant.
type Kind int

const (
	KindPlayMotion Kind = iota
	KindSetExpression
	KindSetParameter
	KindSetScale
	KindLoadModel
	KindPointerMove
	KindPointerDown
)

var kindNames = [...]string{
	KindPlayMotion:    "play_motion",
	KindSetExpression: "set_expression",
	KindSetParameter:  "set_parameter",
	KindSetScale:      "set_scale",
	KindLoadModel:     "load_model",
	KindPointerMove:   "pointer_move",
	KindPointerDown:   "pointer_down",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is one control request. The set of variants is closed.
type Command interface {
	Kind() Kind
	sealed()
}

// PlayMotion starts a random clip from a motion group.
type PlayMotion struct {
	Group    string `json:"group"`
	Priority int    `json:"priority"`
}

// SetExpression applies a named expression.
type SetExpression struct {
	Name string `json:"name"`
}

// SetParameter overrides one model parameter.
type SetParameter struct {
	ID    string  `json:"id"`
	Value float32 `json:"value"`
}

// SetScale changes the view scale.
type SetScale struct {
	Value float32 `json:"value"`
}

// LoadModel hot-swaps the whole avatar session.
type LoadModel struct {
	Name string `json:"name"`
}

// PointerMove carries a pointer position in view coordinates.
type PointerMove struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// PointerDown carries a press position in view coordinates.
type PointerDown struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (PlayMotion) Kind() Kind    { return KindPlayMotion }
func (SetExpression) Kind() Kind { return KindSetExpression }
func (SetParameter) Kind() Kind  { return KindSetParameter }
func (SetScale) Kind() Kind      { return KindSetScale }
func (LoadModel) Kind() Kind     { return KindLoadModel }
func (PointerMove) Kind() Kind   { return KindPointerMove }
func (PointerDown) Kind() Kind   { return KindPointerDown }

func (PlayMotion) sealed()    {}
func (SetExpression) sealed() {}
func (SetParameter) sealed()  {}
func (SetScale) sealed()      {}
func (LoadModel) sealed()     {}
func (PointerMove) sealed()   {}
func (PointerDown) sealed()   {}
