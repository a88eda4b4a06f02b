package application

import "sync"

// EntryGuard rejects a second operation on an instance while one is still
// in flight.
type EntryGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewEntryGuard() *EntryGuard {
	return &EntryGuard{inFlight: make(map[string]bool)}
}

// Enter reports whether the instance was free; callers that get true must
// Exit when done.
func (g *EntryGuard) Enter(instanceID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[instanceID] {
		return false
	}
	g.inFlight[instanceID] = true
	return true
}

func (g *EntryGuard) Exit(instanceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, instanceID)
}
