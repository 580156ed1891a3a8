package avatar

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/puppet/internal/assets"
	"github.com/Faultbox/puppet/internal/engine/cubism"
	"github.com/Faultbox/puppet/internal/engine/texture"
	"github.com/Faultbox/puppet/internal/handle"
	"github.com/Faultbox/puppet/internal/manifest"
)

// LoadModel replaces the live session with the model called name.
//
// The old session is torn down completely before anything new is
// allocated. When a required step fails, everything acquired for the new
// model is released and the controller is left Empty; there is no rollback
// to the previous model.
func (c *Controller) LoadModel(name string) error {
	if err := c.fw.Require("load model"); err != nil {
		return err
	}

	start := time.Now()
	if err := c.teardown(); err != nil {
		c.log.Warn("previous session did not release cleanly", zap.Error(err))
	}
	c.state = StateLoading

	// Cached bytes live for one build only. A reload reads the files again
	// and a swapped-out model does not stay in memory.
	if p, ok := c.assets.(assets.Purger); ok {
		p.Purge()
	}

	s, err := c.build(name)
	if err != nil {
		c.state = StateEmpty
		c.lastErr = fmt.Errorf("%w: %s: %w", ErrLoadFailed, name, err)
		return c.lastErr
	}

	c.session = s
	c.state = StateReady
	c.lastErr = nil
	c.log.Info("model loaded",
		zap.String("model", name),
		zap.Int("textures", len(s.textures)),
		zap.Int("motion_groups", len(s.motionOrder)),
		zap.Int("expressions", len(s.exprOrder)),
		zap.Int("skipped", len(s.diagnostics)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// build constructs a session from the manifest of name. On failure the
// partial session is released before returning.
func (c *Controller) build(name string) (s *Session, err error) {
	m, err := c.manifests.Manifest(name)
	if err != nil {
		return nil, err
	}

	s = newSession(name)
	defer func() {
		if err != nil {
			if rerr := s.release(); rerr != nil {
				c.log.Warn("releasing partial session", zap.String("model", name), zap.Error(rerr))
			}
		}
	}()

	if err := c.loadModelHandle(s, m); err != nil {
		return nil, err
	}
	id, err := s.ModelID()
	if err != nil {
		return nil, err
	}

	s.hasPose = c.loadOptional(s, id, cubism.ResourcePose, m.Pose)
	s.hasPhysics = c.loadOptional(s, id, cubism.ResourcePhysics, m.Physics)

	if err := c.engine.CreateRenderer(id); err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	for i, p := range m.Textures {
		if err := c.loadTexture(s, id, i, p); err != nil {
			return nil, err
		}
	}

	for _, g := range m.Motions {
		c.loadMotionGroup(s, g)
	}
	for _, e := range m.Expressions {
		c.loadExpression(s, e)
	}
	s.hitAreas = append(s.hitAreas, m.HitAreas...)

	return s, nil
}

func (c *Controller) loadModelHandle(s *Session, m *manifest.Manifest) error {
	moc, err := c.required(m.Moc)
	if err != nil {
		return fmt.Errorf("moc: %w", err)
	}

	h, err := handle.Acquire("model",
		func() (uint64, error) {
			id, err := c.engine.CreateModel(moc)
			return uint64(id), err
		},
		func(id uint64) {
			c.engine.ReleaseModel(cubism.ModelID(id))
			c.fw.Drop()
		},
	)
	if err != nil {
		return err
	}
	c.fw.Retain()
	s.model = h
	return nil
}

// loadOptional attaches a pose or physics file. Failures are recorded and
// the feature is skipped.
func (c *Controller) loadOptional(s *Session, id cubism.ModelID, kind cubism.Resource, path string) bool {
	if path == "" {
		return false
	}
	data, err := c.assets.Load(path)
	if err == nil {
		err = c.engine.LoadOptional(id, kind, data)
	}
	if err != nil {
		c.skip(s, fmt.Errorf("%w: %s %s: %w", ErrOptionalResourceFailed, kind, path, err))
		return false
	}
	return true
}

func (c *Controller) loadTexture(s *Session, id cubism.ModelID, index int, path string) error {
	data, err := c.required(path)
	if err != nil {
		return fmt.Errorf("texture %d: %w", index, err)
	}
	img, err := texture.Decode(path, data)
	if err != nil {
		return fmt.Errorf("texture %d: %w", index, err)
	}

	t, err := handle.AcquireTexture(index,
		func() (uint64, error) {
			tex, err := c.textures.Upload(img)
			return uint64(tex), err
		},
		func(tex uint64) { c.textures.Delete(uint32(tex)) },
	)
	if err != nil {
		return err
	}
	// Tracked before binding so a failed bind still releases it.
	s.textures = append(s.textures, t)

	tex, err := t.ID()
	if err != nil {
		return err
	}
	if err := c.engine.BindTexture(id, index, uint32(tex)); err != nil {
		return fmt.Errorf("binding texture %d: %w", index, err)
	}
	return nil
}

func (c *Controller) loadMotionGroup(s *Session, g manifest.MotionGroup) {
	group := &MotionGroup{Name: g.Name}
	for _, p := range g.Clips {
		data, err := c.assets.Load(p)
		if err != nil {
			c.skip(s, fmt.Errorf("%w: motion %s: %w", ErrOptionalResourceFailed, p, err))
			continue
		}
		group.Clips = append(group.Clips, data)
	}
	if !s.addMotionGroup(group) {
		c.skip(s, fmt.Errorf("%w: duplicate motion group %q", ErrOptionalResourceFailed, g.Name))
	}
}

func (c *Controller) loadExpression(s *Session, e manifest.Expression) {
	data, err := c.assets.Load(e.File)
	if err != nil {
		c.skip(s, fmt.Errorf("%w: expression %s: %w", ErrOptionalResourceFailed, e.Name, err))
		return
	}
	if !s.addExpression(&Expression{Name: e.Name, Data: data}) {
		c.skip(s, fmt.Errorf("%w: duplicate expression %q", ErrOptionalResourceFailed, e.Name))
	}
}

// required reads a file the model cannot render without.
func (c *Controller) required(path string) ([]byte, error) {
	data, err := c.assets.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRequiredResourceMissing, path)
		}
		return nil, err
	}
	return data, nil
}

func (c *Controller) skip(s *Session, err error) {
	s.diagnostics = append(s.diagnostics, err)
	c.log.Warn("skipping resource", zap.String("model", s.name), zap.Error(err))
}
