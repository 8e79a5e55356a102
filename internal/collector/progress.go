package collector

import (
	"sync"
	"time"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

// ProgressStream carries progress snapshots from a run to whoever is watching.
// Sends never block the collector: when the buffer is full the oldest snapshot is
// dropped so a slow reader always sees the most recent state.
type ProgressStream struct {
	mu     sync.Mutex
	ch     chan models.CollectionProgress
	closed bool
}

// NewProgressStream creates a stream buffering up to size snapshots
func NewProgressStream(size int) *ProgressStream {
	if size < 1 {
		size = 1
	}
	return &ProgressStream{ch: make(chan models.CollectionProgress, size)}
}

// C returns the receive side of the stream. It is closed by Close.
func (p *ProgressStream) C() <-chan models.CollectionProgress {
	return p.ch
}

// Close ends the stream. Further emits are discarded.
func (p *ProgressStream) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}

func (p *ProgressStream) emit(update models.CollectionProgress) {
	if p == nil {
		return
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	select {
	case p.ch <- update:
		return
	default:
	}

	// Buffer full: drop the stale snapshot and retry once.
	select {
	case <-p.ch:
	default:
	}
	select {
	case p.ch <- update:
	default:
	}
}
