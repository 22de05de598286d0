package session

import (
	"sync"
	"time"
)

// Status is the connection lifecycle state of an exam session.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// StatusChange represents a lifecycle transition event.
type StatusChange struct {
	From      Status
	To        Status
	Timestamp time.Time
	Reason    string
}

// StatusListener observes session lifecycle changes.
type StatusListener interface {
	OnStatusChange(event StatusChange)
}

// StatusListenerFunc adapts a function to StatusListener.
type StatusListenerFunc func(event StatusChange)

func (f StatusListenerFunc) OnStatusChange(event StatusChange) { f(event) }

// stateMachine tracks the session lifecycle. Invalid transitions are
// explicit no-ops: a stale callback arriving after teardown must not
// corrupt state.
type stateMachine struct {
	mu        sync.RWMutex
	current   Status
	listeners []StatusListener
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StatusDisconnected}
}

var validTransitions = map[Status][]Status{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusDisconnected, StatusError},
	StatusConnected:    {StatusDisconnected, StatusError},
	StatusError:        {StatusConnecting, StatusDisconnected},
}

func (m *stateMachine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *stateMachine) AddListener(l StatusListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Transition applies the change and reports whether it took effect.
func (m *stateMachine) Transition(to Status, reason string) bool {
	m.mu.Lock()
	from := m.current
	if !transitionValid(from, to) {
		m.mu.Unlock()
		return false
	}
	m.current = to
	listeners := make([]StatusListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	event := StatusChange{From: from, To: to, Timestamp: time.Now(), Reason: reason}
	for _, l := range listeners {
		l.OnStatusChange(event)
	}
	return true
}

func transitionValid(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
