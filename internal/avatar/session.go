// Package avatar owns the live model session and applies control commands
// to it.
//
// Everything in this package runs on the render goroutine. The Controller
// is the only writer of the Session; nothing here is safe for concurrent
// use.
package avatar

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/handle"
	"github.com/Faultbox/puppet/internal/manifest"
)

var (
	// ErrLoadFailed wraps the cause of an aborted hot-swap.
	ErrLoadFailed = errors.New("model load failed")

	// ErrRequiredResourceMissing is returned when the moc blob or a texture
	// cannot be read.
	ErrRequiredResourceMissing = errors.New("required resource missing")

	// ErrOptionalResourceFailed marks a skipped pose, physics, motion or
	// expression file. It is logged, never returned from LoadModel.
	ErrOptionalResourceFailed = errors.New("optional resource failed")

	// ErrUnknownMotionGroup marks a play request for a group the model does
	// not define. Such requests are dropped.
	ErrUnknownMotionGroup = errors.New("unknown motion group")

	// ErrUnknownExpression marks a request for an expression the model does
	// not define. Such requests are dropped.
	ErrUnknownExpression = errors.New("unknown expression")
)

// MotionGroup holds the clips of one group that loaded successfully. It
// may be empty.
type MotionGroup struct {
	Name  string
	Clips [][]byte
}

// Expression holds one loaded expression.
type Expression struct {
	Name string
	Data []byte
}

// Playing describes the last motion the controller started.
type Playing struct {
	Group    string
	Clip     int
	Priority int
	Token    cubism.MotionToken
}

// Session is one loaded model with everything allocated for it.
type Session struct {
	name       string
	model      *handle.Handle
	textures   []*handle.Texture
	hasPose    bool
	hasPhysics bool

	motions     map[string]*MotionGroup
	looseMotion map[string]*MotionGroup // keyed without case or underscores
	motionOrder []*MotionGroup
	expressions map[string]*Expression
	exprOrder   []*Expression
	hitAreas    []manifest.HitArea

	playing    Playing
	hasPlaying bool

	diagnostics []error
}

func newSession(name string) *Session {
	return &Session{
		name:        name,
		motions:     make(map[string]*MotionGroup),
		looseMotion: make(map[string]*MotionGroup),
		expressions: make(map[string]*Expression),
	}
}

// Name returns the model name the session was loaded from.
func (s *Session) Name() string { return s.name }

// ModelID returns the native model identifier.
func (s *Session) ModelID() (cubism.ModelID, error) {
	if s.model == nil {
		return 0, fmt.Errorf("session %q has no model: %w", s.name, handle.ErrUseAfterRelease)
	}
	id, err := s.model.ID()
	return cubism.ModelID(id), err
}

// Textures returns the texture handles in bind order.
func (s *Session) Textures() []*handle.Texture {
	return append([]*handle.Texture(nil), s.textures...)
}

// HasPose reports whether a pose definition was attached.
func (s *Session) HasPose() bool { return s.hasPose }

// HasPhysics reports whether a physics definition was attached.
func (s *Session) HasPhysics() bool { return s.hasPhysics }

// MotionGroups returns the groups in manifest order.
func (s *Session) MotionGroups() []*MotionGroup {
	return append([]*MotionGroup(nil), s.motionOrder...)
}

// Expressions returns the loaded expressions in manifest order.
func (s *Session) Expressions() []*Expression {
	return append([]*Expression(nil), s.exprOrder...)
}

// HitAreas returns the hit areas in manifest order.
func (s *Session) HitAreas() []manifest.HitArea {
	return append([]manifest.HitArea(nil), s.hitAreas...)
}

// Playing returns the motion the controller started that the engine has
// not reported finished yet.
func (s *Session) Playing() (Playing, bool) {
	return s.playing, s.hasPlaying
}

// Diagnostics returns the non-fatal errors recorded while loading.
func (s *Session) Diagnostics() []error {
	return append([]error(nil), s.diagnostics...)
}

// Motion resolves a group name. Matching ignores case; as a fallback it
// also ignores underscores on both sides, so "tap_body" finds "TapBody"
// and "TapBody" finds "Tap_Body".
func (s *Session) Motion(name string) (*MotionGroup, bool) {
	key := strings.ToLower(name)
	if g, ok := s.motions[key]; ok {
		return g, true
	}
	g, ok := s.looseMotion[looseKey(key)]
	return g, ok
}

func looseKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// Expression resolves an expression name ignoring case.
func (s *Session) Expression(name string) (*Expression, bool) {
	e, ok := s.expressions[strings.ToLower(name)]
	return e, ok
}

func (s *Session) addMotionGroup(g *MotionGroup) bool {
	key := strings.ToLower(g.Name)
	if _, dup := s.motions[key]; dup {
		return false
	}
	s.motions[key] = g
	if _, taken := s.looseMotion[looseKey(key)]; !taken {
		s.looseMotion[looseKey(key)] = g
	}
	s.motionOrder = append(s.motionOrder, g)
	return true
}

func (s *Session) addExpression(e *Expression) bool {
	key := strings.ToLower(e.Name)
	if _, dup := s.expressions[key]; dup {
		return false
	}
	s.expressions[key] = e
	s.exprOrder = append(s.exprOrder, e)
	return true
}

// release frees the model handle, then every texture, then drops the
// caches. It keeps going after a failed release and reports all of them.
func (s *Session) release() error {
	var errs []error
	if s.model != nil {
		if err := s.model.Release(); err != nil {
			errs = append(errs, err)
		}
		s.model = nil
	}
	for _, t := range s.textures {
		if err := t.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	s.textures = nil
	s.motions = nil
	s.looseMotion = nil
	s.motionOrder = nil
	s.expressions = nil
	s.exprOrder = nil
	s.hasPlaying = false
	return errors.Join(errs...)
}
