package application

import "sync"

// EntryGuard rejects re-entrant calls into mutating entry points for the
// same instance while one is in progress. The execution platform serializes
// externally-triggered operations, so the guard only ever trips on a
// callback re-entering the instance mid-operation.
type EntryGuard struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewEntryGuard() *EntryGuard {
	return &EntryGuard{inFlight: make(map[string]bool)}
}

// Enter marks the instance busy. It reports false when the instance already
// has an operation in progress.
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
