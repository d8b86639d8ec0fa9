package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"feedback_board/internal/adapters/observability"
	"feedback_board/internal/domain"
)

type BoardConfig struct {
	WindowSize      int           // visible entries while rotating
	StaticThreshold int           // collection sizes above this rotate
	Interval        time.Duration // tick cadence while rotating
}

func (c BoardConfig) withDefaults() BoardConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 3
	}
	if c.StaticThreshold <= 0 {
		c.StaticThreshold = 6
	}
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	return c
}

// Board owns the loaded review collection and the visible window over it.
// Two states: static (collection fits, window = everything, no timer) and
// rotating (window of WindowSize entries advancing every Interval).
//
// All three mutation sources (a completed load via Replace, a successful
// submission via Prepend, a scheduler tick via Advance) serialize on one
// mutex, so a tick landing after Close or after a transition back to static
// is a no-op.
type Board struct {
	cfg BoardConfig

	mu      sync.Mutex
	reviews []domain.DisplayReview
	start   int
	state   domain.BoardState
	stop    chan struct{} // non-nil only while the ticker goroutine runs
	closed  bool
}

func NewBoard(cfg BoardConfig) *Board {
	return &Board{cfg: cfg.withDefaults(), state: domain.BoardStatic}
}

// Replace swaps in a freshly loaded collection and re-evaluates the
// threshold. The window resets to the head.
func (b *Board) Replace(reviews []domain.DisplayReview) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reviews = reviews
	b.resetLocked()
}

// Prepend puts a provisional entry at the head of the collection, ahead of
// the next authoritative reload, and re-evaluates the threshold.
func (b *Board) Prepend(r domain.DisplayReview) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reviews = append([]domain.DisplayReview{r}, b.reviews...)
	b.resetLocked()
}

// Advance moves the window start by one window width, wrapping over the
// collection. No-op unless the board is rotating.
func (b *Board) Advance() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.state != domain.BoardRotating {
		return
	}
	n := len(b.reviews)
	if n == 0 {
		return
	}
	b.start = (b.start + b.cfg.WindowSize) % n
	observability.ObserveRotation(n)
}

// Snapshot returns a point-in-time copy of the board.
func (b *Board) Snapshot() domain.BoardSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := domain.BoardSnapshot{State: b.state, Size: len(b.reviews)}
	if b.state == domain.BoardStatic {
		snap.Window = append([]domain.DisplayReview(nil), b.reviews...)
		return snap
	}
	n := len(b.reviews)
	snap.Window = make([]domain.DisplayReview, 0, b.cfg.WindowSize)
	for i := 0; i < b.cfg.WindowSize; i++ {
		snap.Window = append(snap.Window, b.reviews[(b.start+i)%n])
	}
	return snap
}

// HasReviewBy reports whether the loaded collection already holds a record
// by the given author. Best-effort: it sees only the most recent load.
func (b *Board) HasReviewBy(authorID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.reviews {
		if r.AuthorID == authorID {
			return true
		}
	}
	return false
}

// Close releases the board. Any ticker goroutine stops and later ticks are
// suppressed; the board stays readable but no longer mutates.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.stopRotationLocked()
	b.state = domain.BoardStatic
}

// resetLocked re-derives the state machine from the collection size. Always
// restarts rotation from the head so a replaced collection never carries a
// stale start index.
func (b *Board) resetLocked() {
	b.stopRotationLocked()
	b.start = 0
	if b.closed || len(b.reviews) <= b.cfg.StaticThreshold {
		b.state = domain.BoardStatic
		return
	}
	b.state = domain.BoardRotating
	b.stop = make(chan struct{})
	go b.rotate(b.stop)
	log.Debug().Int("size", len(b.reviews)).Dur("interval", b.cfg.Interval).Msg("board rotating")
}

func (b *Board) stopRotationLocked() {
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
}

func (b *Board) rotate(stop chan struct{}) {
	t := time.NewTicker(b.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			b.Advance()
		}
	}
}
