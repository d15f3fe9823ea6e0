package collab

import (
	"sort"
	"sync"
)

// PresenceManager tracks who has a document open. A user with several tabs
// counts once and leaves when the last tab closes.
type PresenceManager struct {
	mu      sync.RWMutex
	viewers map[string]*viewerEntry // userID -> viewer
}

type viewerEntry struct {
	Viewer
	conns int
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		viewers: make(map[string]*viewerEntry),
	}
}

// Join reports whether userID was not already viewing.
func (pm *PresenceManager) Join(v Viewer) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if e, ok := pm.viewers[v.UserID]; ok {
		e.conns++
		return false
	}
	pm.viewers[v.UserID] = &viewerEntry{Viewer: v, conns: 1}
	return true
}

// Leave reports whether userID's last connection closed.
func (pm *PresenceManager) Leave(userID string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	e, ok := pm.viewers[userID]
	if !ok {
		return false
	}
	e.conns--
	if e.conns > 0 {
		return false
	}
	delete(pm.viewers, userID)
	return true
}

// Viewers returns the current viewers ordered by user id.
func (pm *PresenceManager) Viewers() []Viewer {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]Viewer, 0, len(pm.viewers))
	for _, e := range pm.viewers {
		out = append(out, e.Viewer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (pm *PresenceManager) StateMessage() *Message {
	return newMessage(TypePresenceState, PresenceStatePayload{Viewers: pm.Viewers()})
}
