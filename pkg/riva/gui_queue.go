package riva

import (
	"sync"

	"github.com/cqc-go/webcore/pkg/renderengine"
)

// EventKind names one of the GUI event queue's variants.
type EventKind int

const (
	EventActiveUpdate EventKind = iota
	EventValueUpdate
	EventEventUpdate
	EventCheckTimeout
	EventPress
	EventRelease
	EventMove
	EventHotKey
	EventRedraw
	EventSizeChange
	EventSetVisState
	EventCancelInput
	EventDispatchAction
	EventAsyncDataCallback
	EventExitLoop
)

// dedupKinds are folded into "insert only if no event of the same kind is
// already queued" to cap backlog from high-frequency periodic sources.
var dedupKinds = map[EventKind]bool{
	EventActiveUpdate: true,
	EventValueUpdate: true,
	EventEventUpdate: true,
	EventCheckTimeout: true,
}

// DispatchResult is returned to a blocked action dispatcher once the
// faux-GUI thread has handled its DispatchAction event, or once bailout
// released it early.
type DispatchResult int

const (
	DispatchOK DispatchResult = iota
	DispatchStopped
)

// Event is one entry on the GUI event queue.
type Event struct {
	Kind EventKind

	// Press/Release/Move
	Point renderengine.Point

	// HotKey
	Key string

	// SizeChange
	Size renderengine.Size

	// SetVisState
	Visible bool

	// DispatchAction: the action to run on the faux-GUI thread and the
	// channel it signals on completion (a single-fire completion signal).
	Action func() error
	Done chan DispatchResult

	// AsyncDataCallback
	Callback func()
}

// Queue is the thread-safe GUI event queue the faux-GUI thread drains.
type Queue struct {
	mu sync.Mutex
	cond *sync.Cond
	items []Event
	bailout bool
}

// NewQueue returns an empty GUI event queue.
func NewQueue()*Queue {
	q:= &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues ev, applying the dedup rule for periodic event kinds.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.bailout {
		if ev.Done != nil {
			ev.Done <- DispatchStopped
		}
		return
	}
	if dedupKinds[ev.Kind] {
		for _, existing:= range q.items {
			if existing.Kind == ev.Kind {
				q.cond.Broadcast()
				return
			}
		}
	}
	q.items = append(q.items, ev)
	q.cond.Broadcast()
}

// Pop blocks until an event is available or bailout is set, in which case
// it returns (Event{Kind: EventExitLoop}, false).
func (q *Queue) Pop()(Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.bailout {
		q.cond.Wait()
	}
	if q.bailout {
		return Event{Kind: EventExitLoop}, false
	}
	ev:= q.items[0]
	q.items = q.items[1:]
	return ev, true
}

// Bailout sets the bailout flag, wakes every blocked Pop, and signals every
// queued DispatchAction event with DispatchStopped.
func (q *Queue) Bailout(){
	q.mu.Lock()
	q.bailout = true
	pending:= q.items
	q.items = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, ev:= range pending {
		if ev.Done != nil {
			ev.Done <- DispatchStopped
		}
	}
}

// IsBailout reports whether Bailout has been called.
func (q *Queue) IsBailout()bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.bailout
}
