package match

import "sync"

// pairLocks provides mutual exclusion keyed by an unordered user pair. The
// two-step "look up existing relation, else insert" sequence in Swipe runs
// under the pair's lock, so concurrent swipes from both sides of the same
// pair serialize while unrelated pairs proceed in parallel.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// pairKey builds an order-independent key for two user IDs.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// Lock acquires the lock for the unordered pair and returns its release
// function. Entries are reference counted and removed once unused.
func (p *pairLocks) Lock(a, b string) func() {
	key := pairKey(a, b)

	p.mu.Lock()
	entry, ok := p.locks[key]
	if !ok {
		entry = &pairLock{}
		p.locks[key] = entry
	}
	entry.refs++
	p.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		p.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
