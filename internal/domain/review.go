package domain

import "time"

// ReviewRecord is one submitted review as stored by the hosted backend.
type ReviewRecord struct {
	ID        string
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	RawJSON   []byte // full store payload
}

// DisplayReview joins a ReviewRecord with its author's Profile into a
// display-ready record. Recomputed on every load, never persisted.
type DisplayReview struct {
	ID               string
	AuthorID         string
	Rating           int
	Comment          string
	Date             string // calendar date of CreatedAt, fixed at load
	DisplayName      string
	Initials         string
	AvatarURL        *string
	Email            *string
	LinkedinURL      *string
	GithubURL        *string
	HasContactMethod bool
	Provisional      bool // locally synthesized, pending the next full reload
}
