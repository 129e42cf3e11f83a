package lifecycle

import "sync"

// lockTable hands out one RWMutex per negotiation. Entries are reference
// counted and removed once no caller holds or waits on them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*negotiationLock
}

type negotiationLock struct {
	rw   sync.RWMutex
	refs int

	pairsMu sync.Mutex
	pairs   map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*negotiationLock)}
}

func (t *lockTable) acquire(negotiationID string) *negotiationLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[negotiationID]
	if !ok {
		l = &negotiationLock{pairs: make(map[string]*sync.Mutex)}
		t.locks[negotiationID] = l
	}
	l.refs++
	return l
}

func (t *lockTable) release(negotiationID string, l *negotiationLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, negotiationID)
	}
}

// lock takes the negotiation exclusively.
func (t *lockTable) lock(negotiationID string) func() {
	l := t.acquire(negotiationID)
	l.rw.Lock()
	return func() {
		l.rw.Unlock()
		t.release(negotiationID, l)
	}
}

// lockPair takes the negotiation shared and the (negotiation, resource)
// pair exclusively.
func (t *lockTable) lockPair(negotiationID, resourceID string) func() {
	l := t.acquire(negotiationID)
	l.rw.RLock()

	l.pairsMu.Lock()
	pair, ok := l.pairs[resourceID]
	if !ok {
		pair = &sync.Mutex{}
		l.pairs[resourceID] = pair
	}
	l.pairsMu.Unlock()

	pair.Lock()
	return func() {
		pair.Unlock()
		l.rw.RUnlock()
		t.release(negotiationID, l)
	}
}

// size is the number of live entries.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
