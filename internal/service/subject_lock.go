package service

import "sync"

// subjectLocks hands out one mutex per subject and forgets it once no caller
// holds or waits on it.
type subjectLocks struct {
	mu    sync.Mutex
	locks map[string]*subjectLock
}

type subjectLock struct {
	mu   sync.Mutex
	refs int
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{locks: make(map[string]*subjectLock)}
}

// Lock blocks until subject is free and returns the unlock func.
func (l *subjectLocks) Lock(subject string) func() {
	l.mu.Lock()
	lock, ok := l.locks[subject]
	if !ok {
		lock = &subjectLock{}
		l.locks[subject] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, subject)
		}
		l.mu.Unlock()
	}
}

func (l *subjectLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
