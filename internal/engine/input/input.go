// Package input defines the window events the frame loop consumes and the
// mapping from window pixels to view coordinates.
package input

import "github.com/Faultbox/puppet/pkg/math"

// EventType identifies an input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Keys the loop reacts to. Values match SDL scancodes.
const (
	KeyEscape = 41
	KeyF12    = 69
)

// Event is a processed window event.
type Event struct {
	Type   EventType
	Key    int
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// Source produces the events that arrived since the last call.
type Source interface {
	Poll() []Event
}

// Buffer is a Source fed by hand. It backs headless runs and tests.
type Buffer struct {
	events []Event
}

// Push queues events for the next Poll.
func (b *Buffer) Push(events ...Event) {
	b.events = append(b.events, events...)
}

// Poll returns and clears the queued events.
func (b *Buffer) Poll() []Event {
	out := b.events
	b.events = nil
	return out
}

// ToView maps a window pixel to view space. The surface centre is the
// origin, y points up, the vertical extent is [-1, 1] and the horizontal
// extent is scaled by the aspect ratio.
func ToView(x, y, width, height int) math.Vec2 {
	if width <= 0 || height <= 0 {
		return math.Vec2{}
	}
	aspect := float32(width) / float32(height)
	halfW := float32(width) / 2
	halfH := float32(height) / 2
	return math.Vec2{
		X: (float32(x)/halfW - 1) * aspect,
		Y: 1 - float32(y)/halfH,
	}
}
