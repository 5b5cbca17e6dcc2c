package engine

import "sync"

// ticketLocks serializes logical operations per ticket id. Operations on
// different tickets proceed fully in parallel; two operations on the same
// ticket never interleave their read-modify-write cycles.
type ticketLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{m: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a ticket id, creating it on first use, and
// returns the matching unlock.
func (l *ticketLocks) lock(id string) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
