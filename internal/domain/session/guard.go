package session

import "sync"

// flightGuard tracks in-flight operations per key so each session gets
// at most one concurrent upload and one concurrent analysis. Keys are
// released on completion, success or failure, so sequential retry always
// stays possible.
type flightGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newFlightGuard() *flightGuard {
	return &flightGuard{inFlight: make(map[string]struct{})}
}

// acquire atomically claims key. Returns false if key is already claimed.
func (g *flightGuard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.inFlight[key]; exists {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// release frees key for the next claim.
func (g *flightGuard) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

// size returns the number of claimed keys.
func (g *flightGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}
