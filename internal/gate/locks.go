package gate

import "sync"

// plateLocks serializes confirm-phase operations per normalized plate. Two
// near-simultaneous confirmations for the same plate would otherwise both read
// the pre-transition status and fire duplicate transitions.
type plateLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPlateLocks() *plateLocks {
	return &plateLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for plate and returns the unlock func. Locks are
// retained for the process lifetime; the map is bounded by the fleet size.
func (p *plateLocks) acquire(plate string) func() {
	p.mu.Lock()
	l, ok := p.locks[plate]
	if !ok {
		l = &sync.Mutex{}
		p.locks[plate] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
