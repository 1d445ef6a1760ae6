package service

import "sync"

// TaskLocks serialises writes per task id. Services that modify the same
// tasks must share one instance.
type TaskLocks struct {
	mu    sync.Mutex
	locks map[uint]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewTaskLocks() *TaskLocks {
	return &TaskLocks{locks: make(map[uint]*keyLock)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *TaskLocks) Lock(key uint) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
