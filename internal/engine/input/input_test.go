package input

import (
	"testing"

	"github.com/Faultbox/puppet/pkg/math"
)

func TestToView(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
		want       math.Vec2
	}{
		{"centre", 400, 400, 800, 800, math.Vec2{X: 0, Y: 0}},
		{"top left", 0, 0, 800, 800, math.Vec2{X: -1, Y: 1}},
		{"bottom right", 800, 800, 800, 800, math.Vec2{X: 1, Y: -1}},
		{"wide left edge", 0, 300, 1200, 600, math.Vec2{X: -2, Y: 0}},
		{"zero size", 10, 10, 0, 0, math.Vec2{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToView(tt.x, tt.y, tt.w, tt.h); got != tt.want {
				t.Errorf("ToView(%d, %d, %d, %d) = %v, want %v", tt.x, tt.y, tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestBuffer(t *testing.T) {
	var b Buffer
	if got := b.Poll(); len(got) != 0 {
		t.Fatalf("empty buffer returned %v", got)
	}
	b.Push(Event{Type: EventMouseMove, MouseX: 1}, Event{Type: EventQuit})
	got := b.Poll()
	if len(got) != 2 || got[0].Type != EventMouseMove || got[1].Type != EventQuit {
		t.Errorf("Poll = %v", got)
	}
	if len(b.Poll()) != 0 {
		t.Error("Poll should clear the buffer")
	}
}
