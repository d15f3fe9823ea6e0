package persist

import (
	"bytes"
	"sync"

	"github.com/inkboard/inkboard/internal/document"
)

type Decision int

const (
	// DecisionDrop: local activity is in flight; the update is stale.
	DecisionDrop Decision = iota
	// DecisionKeep: nothing material changed.
	DecisionKeep
	// DecisionSoft: apply only the viewport.
	DecisionSoft
	// DecisionHard: clear and reload the scene.
	DecisionHard
)

func (d Decision) String() string {
	switch d {
	case DecisionDrop:
		return "drop"
	case DecisionKeep:
		return "keep"
	case DecisionSoft:
		return "soft"
	case DecisionHard:
		return "hard"
	default:
		return "unknown"
	}
}

// Decide classifies an incoming canonical payload against the local working
// copy and the last content this editor wrote. An echo of our own write is
// never applied.
func Decide(busy bool, local, written, incoming []byte, localCount, incomingCount int) Decision {
	if busy {
		return DecisionDrop
	}
	if bytes.Equal(incoming, written) {
		return DecisionKeep
	}
	switch document.Compare(local, incoming, localCount, incomingCount) {
	case document.ChangeNone:
		return DecisionKeep
	case document.ChangeSoft:
		return DecisionSoft
	default:
		return DecisionHard
	}
}

// Baseline is the content reference the store is believed to hold, updated
// on every successful write and every applied external update.
type Baseline struct {
	mu      sync.Mutex
	content []byte
}

func (b *Baseline) Set(content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = append([]byte(nil), content...)
}

func (b *Baseline) Get() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.content...)
}
