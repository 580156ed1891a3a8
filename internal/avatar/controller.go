package avatar

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Faultbox/puppet/internal/assets"
	"github.com/Faultbox/puppet/internal/command"
	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/engine/texture"
	"github.com/Faultbox/puppet/internal/manifest"
)

// State is the hot-swap state of the controller.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is the presentation state that survives model swaps.
type View struct {
	Scale  float32
	Aspect float32
}

// Options configures a Controller.
type Options struct {
	Framework *cubism.Framework
	Engine    cubism.Engine
	Textures  texture.Allocator
	Assets    assets.Provider
	// Manifests defaults to a manifest.Loader over Assets.
	Manifests manifest.Source
	// Rand picks clips and expressions. Defaults to a randomly seeded PCG.
	Rand   *rand.Rand
	Logger *zap.Logger
}

// Controller applies commands to the active session and performs model
// hot-swaps.
type Controller struct {
	fw        *cubism.Framework
	engine    cubism.Engine
	textures  texture.Allocator
	assets    assets.Provider
	manifests manifest.Source
	rand      *rand.Rand
	log       *zap.Logger

	state   State
	session *Session
	view    View
	lastErr error
}

// New creates a controller in the Empty state.
func New(opts Options) (*Controller, error) {
	if opts.Framework == nil || opts.Engine == nil || opts.Textures == nil || opts.Assets == nil {
		return nil, errors.New("avatar: framework, engine, textures and assets are required")
	}
	c := &Controller{
		fw:        opts.Framework,
		engine:    opts.Engine,
		textures:  opts.Textures,
		assets:    opts.Assets,
		manifests: opts.Manifests,
		rand:      opts.Rand,
		log:       opts.Logger,
		view:      View{Scale: 1, Aspect: 1},
	}
	if c.manifests == nil {
		c.manifests = manifest.NewLoader(opts.Assets)
	}
	if c.rand == nil {
		c.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

// State returns the hot-swap state.
func (c *Controller) State() State { return c.state }

// Session returns the live session, or nil unless Ready.
func (c *Controller) Session() *Session {
	if c.state != StateReady {
		return nil
	}
	return c.session
}

// View returns the current view parameters.
func (c *Controller) View() View { return c.view }

// LastError returns the error of the most recent failed load, cleared by
// the next successful one.
func (c *Controller) LastError() error { return c.lastErr }

// SetAspect records the surface aspect ratio.
func (c *Controller) SetAspect(aspect float32) {
	if aspect > 0 && !isInvalid(aspect) {
		c.view.Aspect = aspect
	}
}

// Apply executes one command. Errors are per-command; the caller logs them
// and moves on.
func (c *Controller) Apply(cmd command.Command) error {
	switch v := cmd.(type) {
	case command.LoadModel:
		return c.LoadModel(v.Name)
	case command.SetScale:
		return c.SetScale(v.Value)
	case command.PlayMotion:
		return c.PlayMotion(v.Group, v.Priority)
	case command.SetExpression:
		return c.SetExpression(v.Name)
	case command.SetParameter:
		return c.SetParameter(v.ID, v.Value)
	case command.PointerMove:
		return c.PointerMove(v.X, v.Y)
	case command.PointerDown:
		return c.PointerDown(v.X, v.Y)
	default:
		return fmt.Errorf("avatar: unsupported command %T", cmd)
	}
}

// SetScale changes the view scale. It applies with or without a session.
func (c *Controller) SetScale(v float32) error {
	if v <= 0 || isInvalid(v) {
		return fmt.Errorf("avatar: invalid scale %v", v)
	}
	c.view.Scale = v
	return nil
}

// active returns the live session and its model for a model operation. ok
// is false when there is nothing to operate on; the command is dropped.
func (c *Controller) active(op string) (s *Session, id cubism.ModelID, ok bool, err error) {
	if err := c.fw.Require(op); err != nil {
		return nil, 0, false, err
	}
	if c.state != StateReady {
		c.log.Debug("no model loaded, dropping command", zap.String("op", op), zap.Stringer("state", c.state))
		return nil, 0, false, nil
	}
	id, err = c.session.ModelID()
	if err != nil {
		return nil, 0, false, err
	}
	return c.session, id, true, nil
}

// PlayMotion starts a random clip of group at priority. Unknown and empty
// groups are dropped without an error.
func (c *Controller) PlayMotion(group string, priority int) error {
	s, id, ok, err := c.active("play motion")
	if !ok {
		return err
	}

	g, found := s.Motion(group)
	if !found {
		c.log.Debug("dropping motion", zap.String("group", group), zap.Error(ErrUnknownMotionGroup))
		return nil
	}
	if len(g.Clips) == 0 {
		c.log.Debug("motion group has no loaded clips", zap.String("group", g.Name))
		return nil
	}

	clip := c.rand.IntN(len(g.Clips))
	token, err := c.engine.PlayMotion(id, g.Clips[clip], priority, false)
	if err != nil {
		return fmt.Errorf("playing %s[%d]: %w", g.Name, clip, err)
	}
	if token == 0 {
		c.log.Debug("motion refused by engine",
			zap.String("group", g.Name),
			zap.Int("clip", clip),
			zap.Int("priority", priority),
		)
		return nil
	}
	s.playing = Playing{Group: g.Name, Clip: clip, Priority: priority, Token: token}
	s.hasPlaying = true
	c.log.Debug("motion started",
		zap.String("group", g.Name),
		zap.Int("clip", clip),
		zap.Int("priority", priority),
	)
	return nil
}

// SetExpression applies a named expression. Unknown names are dropped.
func (c *Controller) SetExpression(name string) error {
	s, id, ok, err := c.active("set expression")
	if !ok {
		return err
	}
	e, found := s.Expression(name)
	if !found {
		c.log.Debug("dropping expression", zap.String("name", name), zap.Error(ErrUnknownExpression))
		return nil
	}
	return c.applyExpression(id, e)
}

func (c *Controller) applyExpression(id cubism.ModelID, e *Expression) error {
	if err := c.engine.ApplyExpression(id, e.Data); err != nil {
		return fmt.Errorf("applying expression %s: %w", e.Name, err)
	}
	return nil
}

// SetParameter overrides a model parameter.
func (c *Controller) SetParameter(paramID string, value float32) error {
	_, id, ok, err := c.active("set parameter")
	if !ok {
		return err
	}
	c.engine.SetParameter(id, paramID, value)
	return nil
}

// PointerMove feeds the drag target used for gaze tracking.
func (c *Controller) PointerMove(x, y float32) error {
	_, id, ok, err := c.active("pointer move")
	if !ok {
		return err
	}
	c.engine.SetDragPosition(id, x, y)
	return nil
}

// PointerDown hit-tests the model's areas in manifest order. The first hit
// plays the "Tap<Area>" motion group when the model has one, otherwise a
// random expression.
func (c *Controller) PointerDown(x, y float32) error {
	s, id, ok, err := c.active("pointer down")
	if !ok {
		return err
	}

	for _, area := range s.hitAreas {
		if !c.engine.HitTest(id, area.ID, x, y) {
			continue
		}
		c.log.Debug("hit", zap.String("area", area.Name), zap.String("id", area.ID))

		if g, found := s.Motion("Tap" + area.Name); found {
			return c.PlayMotion(g.Name, cubism.PriorityNormal)
		}
		if len(s.exprOrder) > 0 {
			return c.applyExpression(id, s.exprOrder[c.rand.IntN(len(s.exprOrder))])
		}
		return nil
	}
	return nil
}

// Update advances the model by a fixed step. It does nothing unless Ready.
func (c *Controller) Update(dt float32) error {
	if c.state != StateReady {
		return nil
	}
	id, err := c.session.ModelID()
	if err != nil {
		return err
	}
	c.engine.Update(id, dt)

	s := c.session
	if s.hasPlaying && c.engine.MotionFinished(id) {
		c.log.Debug("motion finished", zap.String("group", s.playing.Group))
		s.hasPlaying = false
	}
	return nil
}

// Draw renders the model with mvp. It does nothing unless Ready.
func (c *Controller) Draw(mvp [16]float32) error {
	if c.state != StateReady {
		return nil
	}
	id, err := c.session.ModelID()
	if err != nil {
		return err
	}
	c.engine.Draw(id, mvp)
	return nil
}

// Close tears down the live session. Call it before disposing the
// framework.
func (c *Controller) Close() error {
	return c.teardown()
}

func (c *Controller) teardown() error {
	if c.session == nil {
		c.state = StateEmpty
		return nil
	}
	name := c.session.name
	err := c.session.release()
	c.session = nil
	c.state = StateEmpty
	if err != nil {
		return fmt.Errorf("releasing %s: %w", name, err)
	}
	c.log.Debug("session released", zap.String("model", name))
	return nil
}

func isInvalid(f float32) bool {
	return math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)
}
