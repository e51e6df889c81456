package service

import "sync"

// recordLocks serializes read-modify-write cycles per record ID. The sheet
// has no row-level transactions, so without this two writers in this
// process could each read the row and the later write would drop the
// earlier change.
type recordLocks struct {
	mu    sync.Mutex
	locks map[int]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[int]*recordLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (l *recordLocks) lock(id int) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &recordLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
