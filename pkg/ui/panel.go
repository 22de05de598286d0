// Package ui is the presentation layer: a status indicator with four
// visible states, activity indicators for the examiner's and candidate's
// speech, and the latest caption line.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/verbalabs/verba/pkg/session"
)

// State is a snapshot of everything the panel shows.
type State struct {
	Status           session.Status
	ExaminerSpeaking bool
	UserSpeaking     bool
	Caption          string
}

// Renderer draws a panel state.
type Renderer interface {
	Render(s State)
}

// Panel aggregates session signals into a renderable state. Register its
// hooks on a session controller and a captioner; every change re-renders.
type Panel struct {
	mu       sync.Mutex
	state    State
	renderer Renderer
}

func NewPanel(r Renderer) *Panel {
	return &Panel{
		state:    State{Status: session.StatusDisconnected},
		renderer: r,
	}
}

// Attach registers the panel on the controller's signal hooks.
func (p *Panel) Attach(c *session.Controller) {
	c.OnStatus(session.StatusListenerFunc(func(e session.StatusChange) {
		p.SetStatus(e.To)
	}))
	c.SetExaminerSpeakingListener(p.SetExaminerSpeaking)
	c.SetUserSpeakingListener(p.SetUserSpeaking)
}

func (p *Panel) SetStatus(s session.Status) {
	p.update(func(st *State) { st.Status = s })
}

func (p *Panel) SetExaminerSpeaking(on bool) {
	p.update(func(st *State) { st.ExaminerSpeaking = on })
}

func (p *Panel) SetUserSpeaking(on bool) {
	p.update(func(st *State) { st.UserSpeaking = on })
}

func (p *Panel) SetCaption(text string) {
	p.update(func(st *State) { st.Caption = text })
}

// Snapshot returns the current panel state.
func (p *Panel) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Panel) update(fn func(*State)) {
	p.mu.Lock()
	fn(&p.state)
	snapshot := p.state
	renderer := p.renderer
	p.mu.Unlock()
	if renderer != nil {
		renderer.Render(snapshot)
	}
}

// TerminalRenderer writes one status line per change.
type TerminalRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalRenderer(w io.Writer) *TerminalRenderer {
	return &TerminalRenderer{w: w}
}

func (r *TerminalRenderer) Render(s State) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(string(s.Status)))
	if s.ExaminerSpeaking {
		b.WriteString(" examiner:speaking")
	}
	if s.UserSpeaking {
		b.WriteString(" you:speaking")
	}
	if s.Caption != "" {
		fmt.Fprintf(&b, " | %s", s.Caption)
	}
	r.mu.Lock()
	fmt.Fprintln(r.w, b.String())
	r.mu.Unlock()
}
