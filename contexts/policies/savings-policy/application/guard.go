package application

import "sync"

// EntryGuard rejects re-entrant contribution/withdrawal calls for the same
// instance while one is in progress.
type EntryGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewEntryGuard() *EntryGuard {
	return &EntryGuard{inFlight: make(map[string]bool)}
}

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
