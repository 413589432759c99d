// Package reservation implements the reserve/wait/release protocol that
// correlates an outbound COMMAND_LONG with its COMMAND_ACK (component C4).
// Exactly one controller may hold a given MAVLink message type at a time;
// the frame router fans matching frames out to every controller queue, and
// Wait filters down to the one the caller actually asked for.
package reservation

import (
	"sync"
	"time"

	"github.com/skylink-gs/corelink/internal/transport"
)

// queueCapacity bounds each controller's inbound queue. A full queue drops
// the newest frame silently -- the caller's Wait is always timeout-bounded,
// so a dropped ACK degrades to a timeout rather than a hang.
const queueCapacity = 32

type queued struct {
	typeName string
	frame    *transport.Frame
}

// Registry is the reservation and wait registry.
type Registry struct {
	mu       sync.Mutex
	reserved map[string]string // type name -> controller id holding it
	queues   map[string]chan queued
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reserved: make(map[string]string),
		queues:   make(map[string]chan queued),
	}
}

// Reserve claims typeName exclusively for controllerID. It fails if another
// controller already holds that type.
func (r *Registry) Reserve(typeName, controllerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.reserved[typeName]; held {
		return false
	}
	r.reserved[typeName] = controllerID
	r.ensureQueueLocked(controllerID)
	return true
}

// Release drops typeName's reservation and replaces controllerID's queue
// with a fresh, empty one. Because COMMAND_ACK is the only type this
// implementation ever reserves, discarding whatever else sits in the queue
// is harmless; a second concurrently-reserved type would need this
// revisited.
func (r *Registry) Release(typeName, controllerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if held, ok := r.reserved[typeName]; ok && held == controllerID {
		delete(r.reserved, typeName)
	}
	r.queues[controllerID] = make(chan queued, queueCapacity)
}

// IsReserved reports whether typeName currently has an owner.
func (r *Registry) IsReserved(typeName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reserved[typeName]
	return ok
}

// Dispatch fans frame out to every controller queue, provided some
// controller currently holds a reservation on frame.TypeName; queues of
// controllers that hold no reservation receive it too. It is called by the
// frame router under no
// external lock; it takes its own lock only long enough to snapshot the
// queue set.
func (r *Registry) Dispatch(frame *transport.Frame) (delivered bool) {
	r.mu.Lock()
	if _, held := r.reserved[frame.TypeName]; !held {
		r.mu.Unlock()
		return false
	}
	queues := make([]chan queued, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.Unlock()

	item := queued{typeName: frame.TypeName, frame: frame}
	for _, q := range queues {
		select {
		case q <- item:
			delivered = true
		default:
			// queue full: drop for this controller, the wait will time out
		}
	}
	return delivered
}

func (r *Registry) ensureQueueLocked(controllerID string) chan queued {
	q, ok := r.queues[controllerID]
	if !ok {
		q = make(chan queued, queueCapacity)
		r.queues[controllerID] = q
	}
	return q
}

// Predicate filters candidate frames of the reserved type; Wait drops any
// frame the predicate rejects and keeps waiting until the timeout elapses.
type Predicate func(*transport.Frame) bool

// Wait blocks until a frame of typeName satisfying predicate arrives for
// controllerID, or timeout elapses. A nil predicate accepts every frame of
// typeName.
func (r *Registry) Wait(typeName, controllerID string, timeout time.Duration, predicate Predicate) (*transport.Frame, bool) {
	r.mu.Lock()
	q := r.ensureQueueLocked(controllerID)
	r.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		inner := remaining
		if inner > 100*time.Millisecond {
			inner = 100 * time.Millisecond
		}
		select {
		case item := <-q:
			if item.typeName != typeName {
				continue
			}
			if predicate != nil && !predicate(item.frame) {
				continue
			}
			return item.frame, true
		case <-time.After(inner):
			continue
		}
	}
}
