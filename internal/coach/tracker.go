package coach

import "sync"

// Tracker hands out request generations per key so a caller can tell
// whether a response it just received has been superseded by a newer
// request for the same key (for example a tip for an exercise the user has
// since navigated away from). Keys are dropped once their latest request is
// released.
type Tracker struct {
	mu   sync.Mutex
	seq  uint64
	gens map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{gens: make(map[string]uint64)}
}

// Ticket identifies one request.
type Ticket struct {
	t   *Tracker
	key string
	gen uint64
}

// Begin starts a new request for key, superseding earlier ones.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	// One sequence across keys, so a key removed by Release never hands
	// out a generation an older ticket still holds.
	t.seq++
	t.gens[key] = t.seq
	return Ticket{t: t, key: key, gen: t.seq}
}

// Len reports how many keys have a request in flight.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.gens)
}

// Current reports whether no newer request for the ticket's key has begun.
func (tk Ticket) Current() bool {
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.gens[tk.key] == tk.gen
}

// Release ends the request and reports whether it was still current. The
// key is forgotten when it was.
func (tk Ticket) Release() bool {
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	if tk.t.gens[tk.key] != tk.gen {
		return false
	}
	delete(tk.t.gens, tk.key)
	return true
}
