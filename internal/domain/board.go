package domain

// BoardState tells whether the visible window rotates.
type BoardState string

const (
	// BoardStatic: the collection fits on screen, the window is the whole
	// collection and no timer runs.
	BoardStatic BoardState = "static"
	// BoardRotating: the collection exceeds the threshold and a 3-wide
	// window advances on a fixed cadence.
	BoardRotating BoardState = "rotating"
)

// BoardSnapshot is a point-in-time read of a mounted board.
type BoardSnapshot struct {
	State  BoardState
	Size   int
	Window []DisplayReview
}

// Eligibility is the viewer's submission status against the most recent load.
type Eligibility struct {
	SignedIn         bool
	AlreadySubmitted bool
}

func (e Eligibility) CanSubmit() bool { return e.SignedIn && !e.AlreadySubmitted }
