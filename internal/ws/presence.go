package ws

import "sync"

// Presence tracks which users currently have a live connection. At most one
// entry per user: a newer connection by the same user overwrites the older
// entry (last writer wins, single-device assumption).
type Presence struct {
	mu      sync.RWMutex
	entries map[string]string // userID -> connID
}

func NewPresence() *Presence {
	return &Presence{entries: make(map[string]string)}
}

// MarkOnline records userID as online via connID and reports whether an
// earlier entry was overwritten.
func (p *Presence) MarkOnline(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, replaced := p.entries[userID]
	p.entries[userID] = connID
	return replaced
}

// MarkOffline removes the entry for userID only if it still points at connID.
// A stale disconnect racing a newer connection from the same user must not
// evict the newer registration. Reports whether the entry was removed.
func (p *Presence) MarkOffline(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entries[userID] != connID {
		return false
	}
	delete(p.entries, userID)
	return true
}

// Snapshot returns the set of online users, excluding exceptUserID. It is
// sent once to a newly connecting client, before that client's own
// registration is broadcast.
func (p *Presence) Snapshot(exceptUserID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	userIDs := make([]string, 0, len(p.entries))
	for userID := range p.entries {
		if userID != exceptUserID {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs
}

// Online reports whether userID has a live connection.
func (p *Presence) Online(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[userID]
	return ok
}
