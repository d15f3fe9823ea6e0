package document

import "bytes"

// Change classifies how an incoming document differs from the local one.
type Change int

const (
	ChangeNone Change = iota
	// ChangeSoft: object counts differ by at most one. Only the viewport is applied.
	ChangeSoft
	// ChangeHard: the scene must be cleared and reloaded.
	ChangeHard
)

func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangeSoft:
		return "soft"
	case ChangeHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Compare decides the reconciliation needed to move from local to incoming.
// Both payloads must already be canonical.
func Compare(local, incoming []byte, localCount, incomingCount int) Change {
	if bytes.Equal(local, incoming) {
		return ChangeNone
	}
	diff := localCount - incomingCount
	if diff < 0 {
		diff = -diff
	}
	if diff <= 1 {
		return ChangeSoft
	}
	return ChangeHard
}
