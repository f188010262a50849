package hxfaces

import (
	"sync"
	"sync/atomic"
)

// PhaseEvent is passed to phase listeners.
type PhaseEvent struct {
	Phase   PhaseID
	Context *RequestContext
}

// PhaseListener observes phase boundaries. PhaseID selects the phase it
// listens to; AnyPhase listens to all of them.
//
// An error from BeforePhase stops the remaining before-listeners of that
// phase and is queued as a fault; the phase body still runs. An error from
// AfterPhase stops the remaining after-listeners.
type PhaseListener interface {
	PhaseID() PhaseID
	BeforePhase(e PhaseEvent) error
	AfterPhase(e PhaseEvent) error
}

// ListenerFuncs adapts plain functions to PhaseListener. Nil callbacks are
// no-ops. Use it by pointer so Remove can find it again.
type ListenerFuncs struct {
	Phase  PhaseID
	Before func(e PhaseEvent) error
	After  func(e PhaseEvent) error
}

func (l *ListenerFuncs) PhaseID() PhaseID { return l.Phase }

func (l *ListenerFuncs) BeforePhase(e PhaseEvent) error {
	if l.Before == nil {
		return nil
	}
	return l.Before(e)
}

func (l *ListenerFuncs) AfterPhase(e PhaseEvent) error {
	if l.After == nil {
		return nil
	}
	return l.After(e)
}

// listenerTable is an immutable snapshot: all listeners in registration
// order and the per-phase subsets.
type listenerTable struct {
	all      []PhaseListener
	perPhase [numPhases][]PhaseListener
}

func buildTable(all []PhaseListener) *listenerTable {
	t := &listenerTable{all: all}
	for _, l := range all {
		id := l.PhaseID()
		for p := RestoreView; p <= RenderResponse; p++ {
			if id == AnyPhase || id == p {
				t.perPhase[p] = append(t.perPhase[p], l)
			}
		}
	}
	return t
}

// Listeners is a registration list read without locks by running requests.
// Add and Remove publish a new snapshot; requests already in a phase keep
// the snapshot they started with.
type Listeners struct {
	mu    sync.Mutex
	table atomic.Pointer[listenerTable]
}

// Add registers listeners.
func (ls *Listeners) Add(listeners ...PhaseListener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	var cur []PhaseListener
	if t := ls.table.Load(); t != nil {
		cur = t.all
	}
	next := make([]PhaseListener, 0, len(cur)+len(listeners))
	next = append(next, cur...)
	next = append(next, listeners...)
	ls.table.Store(buildTable(next))
}

// Remove unregisters the first occurrence of l. It reports whether l was
// registered.
func (ls *Listeners) Remove(l PhaseListener) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	t := ls.table.Load()
	if t == nil {
		return false
	}
	for i, cur := range t.all {
		if cur != l {
			continue
		}
		next := make([]PhaseListener, 0, len(t.all)-1)
		next = append(next, t.all[:i]...)
		next = append(next, t.all[i+1:]...)
		ls.table.Store(buildTable(next))
		return true
	}
	return false
}

// All returns the registered listeners in registration order.
func (ls *Listeners) All() []PhaseListener {
	if t := ls.table.Load(); t != nil {
		return t.all
	}
	return nil
}

// For returns the listeners of phase in registration order.
func (ls *Listeners) For(phase PhaseID) []PhaseListener {
	t := ls.table.Load()
	if t == nil || phase <= AnyPhase || phase > RenderResponse {
		return nil
	}
	return t.perPhase[phase]
}
