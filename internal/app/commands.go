package app

import (
	"context"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"feedback_board/internal/adapters/observability"
	"feedback_board/internal/domain"
)

const minCommentLen = 50

type SubmissionInput struct {
	Rating  int
	Comment string
}

// SubmissionService validates and submits one review per viewer, then
// merges the accepted review into the mounted board ahead of the next
// authoritative reload.
type SubmissionService struct {
	store   domain.ReviewStore
	queries *BoardQueryService
	board   *Board

	inFlight atomic.Bool

	// injectable for tests
	now   func() time.Time
	newID func() string
}

func NewSubmissionService(s domain.ReviewStore, q *BoardQueryService, b *Board) *SubmissionService {
	return &SubmissionService{
		store:   s,
		queries: q,
		board:   b,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Eligibility reports the viewer's submission status against the most
// recently loaded collection. Client-side best-effort only.
func (s *SubmissionService) Eligibility(viewer domain.Viewer) domain.Eligibility {
	return domain.Eligibility{
		SignedIn:         viewer.SignedIn(),
		AlreadySubmitted: viewer.SignedIn() && s.board.HasReviewBy(viewer.ID),
	}
}

// Submit runs the precondition chain, inserts the review, and on success
// prepends a provisional entry to the board. Validation and authorization
// failures never reach the store; a store rejection mutates nothing locally.
func (s *SubmissionService) Submit(ctx context.Context, viewer domain.Viewer, in SubmissionInput) (domain.DisplayReview, error) {
	if !viewer.SignedIn() {
		observability.ObserveSubmission("unauthorized")
		return domain.DisplayReview{}, domain.ErrUnauthorized
	}
	if in.Rating < 1 || in.Rating > 5 {
		observability.ObserveSubmission("invalid")
		return domain.DisplayReview{}, domain.ErrInvalidRating
	}
	if utf8.RuneCountInString(in.Comment) < minCommentLen {
		observability.ObserveSubmission("invalid")
		return domain.DisplayReview{}, domain.ErrCommentTooShort
	}
	if s.board.HasReviewBy(viewer.ID) {
		observability.ObserveSubmission("duplicate")
		return domain.DisplayReview{}, domain.ErrAlreadySubmitted
	}

	// One outstanding insert at a time; no queueing, the caller retries.
	if !s.inFlight.CompareAndSwap(false, true) {
		return domain.DisplayReview{}, domain.ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	if _, err := s.store.InsertComment(ctx, viewer.ID, in.Rating, in.Comment); err != nil {
		observability.ObserveSubmission("rejected")
		return domain.DisplayReview{}, &domain.RejectedError{Reason: err.Error()}
	}

	entry := s.provisional(ctx, viewer, in)
	s.board.Prepend(entry)
	s.queries.InvalidateBoard(ctx)
	observability.ObserveSubmission("accepted")
	log.Info().Str("viewer", viewer.ID).Int("rating", in.Rating).Msg("review accepted")
	return entry, nil
}

// provisional synthesizes the optimistic entry: placeholder id, the
// viewer's live profile, current timestamp. Replaced by the authoritative
// row on the next full reload, never reconciled in-session.
func (s *SubmissionService) provisional(ctx context.Context, viewer domain.Viewer, in SubmissionInput) domain.DisplayReview {
	vp := s.queries.ViewerProfile(ctx, viewer)
	rec := domain.ReviewRecord{
		ID:        s.newID(),
		AuthorID:  viewer.ID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: s.now(),
	}
	entry := displayReview(rec, vp, true, viewer.EmailOrHandle)
	entry.Provisional = true
	return entry
}
