package transactions

import (
	"sort"
	"sync"
)

// stockLocks hands out one mutex per stock code. Mutexes are never removed;
// the set of stock codes in a personal ledger is small.
type stockLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newStockLocks() *stockLocks {
	return &stockLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *stockLocks) get(code string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[code]
	if !ok {
		m = &sync.Mutex{}
		l.locks[code] = m
	}
	return m
}

// lock acquires the mutexes for codes in sorted order and returns the
// matching unlock. Duplicate codes are locked once.
func (l *stockLocks) lock(codes ...string) func() {
	unique := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	sort.Strings(unique)

	held := make([]*sync.Mutex, 0, len(unique))
	for _, c := range unique {
		m := l.get(c)
		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
