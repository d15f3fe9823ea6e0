package persist

import "sync"

// Session is the kind of logical activity currently allowed to touch the
// local working copy.
type Session int

const (
	SessionIdle Session = iota
	// SessionLocal covers user gestures and saves. Several local holders may
	// overlap.
	SessionLocal
	// SessionReconcile is exclusive: it applies external content.
	SessionReconcile
)

func (s Session) String() string {
	switch s {
	case SessionLocal:
		return "local"
	case SessionReconcile:
		return "reconcile"
	default:
		return "idle"
	}
}

type Reason string

const (
	ReasonDrawing   Reason = "drawing"
	ReasonSaving    Reason = "saving"
	ReasonReconcile Reason = "reconcile"
)

// Token is proof of an open session. Ending a token twice is harmless.
type Token struct {
	id      uint64
	session Session
	reason  Reason
}

func (t Token) Reason() Reason { return t.reason }

// Gate admits one kind of session at a time. Entry while a different kind is
// active is rejected, not queued.
type Gate struct {
	mu      sync.Mutex
	session Session
	holders map[uint64]Reason
	next    uint64
}

func NewGate() *Gate {
	return &Gate{holders: make(map[uint64]Reason)}
}

// Begin opens a session. A reconcile session requires the gate to be idle; a
// local session is refused only while reconciling.
func (g *Gate) Begin(session Session, reason Reason) (Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch session {
	case SessionReconcile:
		if g.session != SessionIdle {
			return Token{}, false
		}
	case SessionLocal:
		if g.session == SessionReconcile {
			return Token{}, false
		}
	default:
		return Token{}, false
	}
	g.next++
	g.holders[g.next] = reason
	g.session = session
	return Token{id: g.next, session: session, reason: reason}, true
}

func (g *Gate) End(t Token) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.holders[t.id]; !ok {
		return
	}
	delete(g.holders, t.id)
	if len(g.holders) == 0 {
		g.session = SessionIdle
	}
}

func (g *Gate) Session() Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Busy reports whether any session is open.
func (g *Gate) Busy() bool {
	return g.Session() != SessionIdle
}

// Holding reports whether a holder with the given reason is active.
func (g *Gate) Holding(reason Reason) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.holders {
		if r == reason {
			return true
		}
	}
	return false
}
