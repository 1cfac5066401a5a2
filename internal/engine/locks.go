package engine

import (
	"sync"

	"github.com/google/uuid"
)

// lockArena hands out one mutex per employee so concurrent punch attempts
// for the same person serialize, while different people proceed in
// parallel. The read-then-append window between loading today's last log
// and committing the new one must not interleave for one identity.
type lockArena struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (a *lockArena) lock(id uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	l, ok := a.locks[id]
	if !ok {
		l = &sync.Mutex{}
		a.locks[id] = l
	}
	a.mu.Unlock()

	l.Lock()
	return l
}
