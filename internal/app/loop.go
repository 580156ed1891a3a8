// Package app runs the frame loop that owns the graphics context.
//
// The loop is the single consumer of the command queue. Each frame it
// turns window events into commands, drains and applies every queued
// command, advances the model by a fixed step and draws it. Only the
// status snapshot leaves this goroutine.
package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/puppet/internal/avatar"
	"github.com/Faultbox/puppet/internal/command"
	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/engine/input"
	"github.com/Faultbox/puppet/pkg/math"
)

// DefaultStep is the fixed simulation step.
const DefaultStep = 16 * time.Millisecond

// Surface is the drawable the loop renders into.
type Surface interface {
	Size() (width, height int)
	Resize(width, height int)
	Begin()
	Present()
}

// Screenshotter saves the frame that was just drawn.
type Screenshotter interface {
	Screenshot() (path string, err error)
}

// Options configures a Loop.
type Options struct {
	Queue      *command.Queue
	Controller *avatar.Controller
	Framework  *cubism.Framework
	Surface    Surface
	// Events may be nil for a loop without a window.
	Events input.Source
	// Step is the fixed update step. Defaults to DefaultStep.
	Step time.Duration
	// Pace sleeps out the rest of each step. Leave it off when the
	// surface blocks on vsync.
	Pace bool
	// Screenshot, when set, is called after drawing a frame on which F12
	// was pressed.
	Screenshot Screenshotter
	Logger     *zap.Logger
}

// Loop is the render/update consumer.
type Loop struct {
	queue   *command.Queue
	ctl     *avatar.Controller
	fw      *cubism.Framework
	surface Surface
	events  input.Source
	step    time.Duration
	pace    bool
	shot    Screenshotter
	log     *zap.Logger

	width, height int
	quit          bool
	shoot         bool
	frame         uint64
	mvp           math.Mat4

	status   atomic.Pointer[Status]
	snapshot snapshotCache
}

// New creates a loop. Queue, Controller, Framework and Surface are required.
func New(opts Options) (*Loop, error) {
	if opts.Queue == nil || opts.Controller == nil || opts.Framework == nil || opts.Surface == nil {
		return nil, errors.New("app: queue, controller, framework and surface are required")
	}
	l := &Loop{
		queue:   opts.Queue,
		ctl:     opts.Controller,
		fw:      opts.Framework,
		surface: opts.Surface,
		events:  opts.Events,
		step:    opts.Step,
		pace:    opts.Pace,
		shot:    opts.Screenshot,
		log:     opts.Logger,
		mvp:     math.Identity(),
	}
	if l.step <= 0 {
		l.step = DefaultStep
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	l.width, l.height = l.surface.Size()
	l.updateAspect()
	l.publish()
	return l, nil
}

// Status returns the snapshot published after the last frame. It is safe
// to call from any goroutine.
func (l *Loop) Status() *Status {
	return l.status.Load()
}

// MVP returns the transform used for the last draw.
func (l *Loop) MVP() math.Mat4 {
	return l.mvp
}

// Frame runs one iteration. It returns false once a quit was requested.
func (l *Loop) Frame() bool {
	if l.events != nil {
		l.handleEvents(l.events.Poll())
	}
	if l.quit {
		return false
	}

	for _, cmd := range l.queue.DrainAll() {
		if err := l.ctl.Apply(cmd); err != nil {
			l.log.Warn("command failed", zap.Stringer("kind", cmd.Kind()), zap.Error(err))
		}
	}

	view := l.ctl.View()
	l.mvp = math.View(view.Scale, view.Aspect)

	if err := l.ctl.Update(float32(l.step.Seconds())); err != nil {
		l.log.Error("update failed", zap.Error(err))
	}

	l.surface.Begin()
	if err := l.ctl.Draw(l.mvp); err != nil {
		l.log.Error("draw failed", zap.Error(err))
	}
	if l.shoot {
		l.shoot = false
		l.screenshot()
	}
	l.surface.Present()

	l.frame++
	l.publish()
	return true
}

// Run calls Frame until a quit event or until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("starting frame loop", zap.Duration("step", l.step), zap.Bool("paced", l.pace))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	fpsFrames := uint64(0)
	fpsTimer := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			l.log.Info("frame loop stopped", zap.Uint64("frames", l.frame))
			return nil
		}

		start := time.Now()
		if !l.Frame() {
			l.log.Info("quit requested", zap.Uint64("frames", l.frame))
			return nil
		}

		fpsFrames++
		if since := time.Since(fpsTimer); since >= 5*time.Second {
			l.log.Debug("fps", zap.Float64("fps", float64(fpsFrames)/since.Seconds()))
			fpsFrames = 0
			fpsTimer = time.Now()
		}

		if !l.pace {
			continue
		}
		remaining := l.step - time.Since(start)
		if remaining <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(remaining)
		} else {
			timer.Reset(remaining)
		}
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}
}

func (l *Loop) handleEvents(events []input.Event) {
	for _, e := range events {
		switch e.Type {
		case input.EventQuit:
			l.quit = true
		case input.EventKeyDown:
			switch e.Key {
			case input.KeyEscape:
				l.quit = true
			case input.KeyF12:
				l.shoot = l.shot != nil
			}
		case input.EventWindowResize:
			if e.Width <= 0 || e.Height <= 0 {
				continue
			}
			l.width, l.height = e.Width, e.Height
			l.surface.Resize(e.Width, e.Height)
			l.updateAspect()
		case input.EventMouseMove:
			p := input.ToView(e.MouseX, e.MouseY, l.width, l.height)
			l.enqueue(command.PointerMove{X: p.X, Y: p.Y})
		case input.EventMouseDown:
			p := input.ToView(e.MouseX, e.MouseY, l.width, l.height)
			l.enqueue(command.PointerDown{X: p.X, Y: p.Y})
		}
	}
}

func (l *Loop) screenshot() {
	path, err := l.shot.Screenshot()
	if err != nil {
		l.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	l.log.Info("screenshot saved", zap.String("path", path))
}

func (l *Loop) enqueue(cmd command.Command) {
	if err := l.queue.Enqueue(cmd); err != nil {
		l.log.Debug("dropping input command", zap.Stringer("kind", cmd.Kind()), zap.Error(err))
	}
}

func (l *Loop) updateAspect() {
	if l.width > 0 && l.height > 0 {
		l.ctl.SetAspect(float32(l.width) / float32(l.height))
	}
}
