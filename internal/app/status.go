package app

import "github.com/Faultbox/puppet/internal/avatar"

// Status is an immutable view of the runtime published once per frame.
type Status struct {
	Engine      string         `json:"engine"`
	State       string         `json:"state"`
	Model       string         `json:"model,omitempty"`
	Textures    int            `json:"textures"`
	Motions     []MotionStatus `json:"motions"`
	Expressions []string       `json:"expressions"`
	Playing     *PlayingStatus `json:"playing,omitempty"`
	Scale       float32        `json:"scale"`
	Aspect      float32        `json:"aspect"`
	Frame       uint64         `json:"frame"`
	Pending     int            `json:"pending"`
	Accepted    uint64         `json:"accepted"`
	Rejected    uint64         `json:"rejected"`
	LastError   string         `json:"last_error,omitempty"`
}

// MotionStatus describes one loaded motion group.
type MotionStatus struct {
	Name  string `json:"name"`
	Clips int    `json:"clips"`
}

// PlayingStatus describes the motion currently playing.
type PlayingStatus struct {
	Group    string `json:"group"`
	Clip     int    `json:"clip"`
	Priority int    `json:"priority"`
}

// snapshotCache keeps the per-session parts of the status so they are
// rebuilt only after a swap.
type snapshotCache struct {
	session     *avatar.Session
	textures    int
	motions     []MotionStatus
	expressions []string
}

func (c *snapshotCache) refresh(s *avatar.Session) {
	if c.motions != nil && s == c.session {
		return
	}
	c.session = s
	c.textures = 0
	c.motions = []MotionStatus{}
	c.expressions = []string{}
	if s == nil {
		return
	}
	c.textures = len(s.Textures())
	for _, g := range s.MotionGroups() {
		c.motions = append(c.motions, MotionStatus{Name: g.Name, Clips: len(g.Clips)})
	}
	for _, e := range s.Expressions() {
		c.expressions = append(c.expressions, e.Name)
	}
}

func (l *Loop) publish() {
	s := l.ctl.Session()
	l.snapshot.refresh(s)

	view := l.ctl.View()
	accepted, rejected := l.queue.Stats()
	st := &Status{
		Engine:      l.fw.State().String(),
		State:       l.ctl.State().String(),
		Textures:    l.snapshot.textures,
		Motions:     l.snapshot.motions,
		Expressions: l.snapshot.expressions,
		Scale:       view.Scale,
		Aspect:      view.Aspect,
		Frame:       l.frame,
		Pending:     l.queue.Len(),
		Accepted:    accepted,
		Rejected:    rejected,
	}
	if s != nil {
		st.Model = s.Name()
		if p, ok := s.Playing(); ok {
			st.Playing = &PlayingStatus{Group: p.Group, Clip: p.Clip, Priority: p.Priority}
		}
	}
	if err := l.ctl.LastError(); err != nil {
		st.LastError = err.Error()
	}
	l.status.Store(st)
}
