package holder

import "sync"

// listeners is a registry of callbacks for one notification kind.
type listeners[F any] struct {
	mu     sync.RWMutex
	nextID uint64
	order  []uint64
	fns    map[uint64]F
}

func newListeners[F any]() *listeners[F] {
	return &listeners[F]{fns: make(map[uint64]F)}
}

// add registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (l *listeners[F]) add(fn F) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *listeners[F]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.fns, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the registered callbacks in registration order. Dispatch
// iterates the copy so a listener may unsubscribe while being notified.
func (l *listeners[F]) snapshot() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]F, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.fns[id])
	}
	return out
}

func (l *listeners[F]) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
