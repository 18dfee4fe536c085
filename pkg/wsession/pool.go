package wsession

import "sync"

// Pool tracks sessions by variant-type key, distinguishing "reusable idle"
// entries (goroutine not running, safe to hand to a new connection) from
// "active" entries (goroutine running, owning a connection) pool
// invariant: "a session is either reusable idle or active... Pool grants
// enforce this via a typed-session lookup under lock."
type Pool struct {
	mu sync.Mutex
	idle map[string][]*Session
	active map[*Session]string
}

// NewPool returns an empty session pool.
func NewPool()*Pool {
	return &Pool{
		idle: make(map[string][]*Session),
		active: make(map[*Session]string),
	}
}

// Acquire returns an idle session previously released under key, marking it
// active, or nil if none is available. The caller must call s.Rebind before
// starting the returned session's Run goroutine.
func (p *Pool) Acquire(key string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	bucket:= p.idle[key]
	if len(bucket) == 0 {
		return nil
	}
	s:= bucket[len(bucket)-1]
	p.idle[key] = bucket[:len(bucket)-1]
	p.active[s] = key
	return s
}

// Track registers a freshly constructed, already-active session under key
// so a later Release can park it for reuse.
func (p *Pool) Track(key string, s *Session) {
	p.mu.Lock()
	p.active[s] = key
	p.mu.Unlock()
}

// Release moves an active session back to its idle bucket. Callers must
// only release a session once its Run goroutine has returned.
func (p *Pool) Release(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok:= p.active[s]
	if !ok {
		return
	}
	delete(p.active, s)
	p.idle[key] = append(p.idle[key], s)
}

// Discard drops s from the pool entirely, for sessions that should not be
// reused (e.g. ended on a protocol violation).
func (p *Pool) Discard(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, s)
}

// ActiveCount reports the number of sessions currently running, for
// metrics wiring.
func (p *Pool) ActiveCount()int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// IdleCount reports the number of reusable idle sessions parked under key.
func (p *Pool) IdleCount(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[key])
}
