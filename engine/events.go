package engine

// EventKind tags a particle lifecycle event.
type EventKind uint8

const (
	EventBirth EventKind = iota
	EventDeath
)

// Event is one particle lifecycle notification. Events are queued during a
// step and drained once at its end, so listeners never observe (or mutate)
// mid-step state.
type Event struct {
	Kind       EventKind
	Slot       int32
	EmitterID  string
	SubEmitter bool // true for sub-emitter births
	Frame      int
}

// Listener receives drained events.
type Listener func(Event)

type eventQueue struct {
	pending   []Event
	listeners []Listener
}

// Subscribe registers a listener and returns an unsubscribe func.
func (q *eventQueue) Subscribe(fn Listener) func() {
	q.listeners = append(q.listeners, fn)
	idx := len(q.listeners) - 1
	return func() {
		q.listeners[idx] = nil
	}
}

func (q *eventQueue) push(ev Event) {
	if len(q.listeners) == 0 {
		return
	}
	q.pending = append(q.pending, ev)
}

// drain delivers all queued events in order and clears the queue.
func (q *eventQueue) drain() {
	for _, ev := range q.pending {
		for _, fn := range q.listeners {
			if fn != nil {
				fn(ev)
			}
		}
	}
	q.pending = q.pending[:0]
}
