package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex serializes commits per portfolio. Validate-then-append is
// a check-then-act sequence; without this, two concurrent sells could
// both pass the sufficiency check against a stale projection.
//
// Entries are reference counted and dropped once the last holder
// unlocks, so the table does not grow with every portfolio ever
// committed to.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the mutex for one portfolio and returns its unlock func.
func (k *keyedMutex) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
