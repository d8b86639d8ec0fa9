// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"feedback_board/internal/app"
	"feedback_board/internal/domain"
)

type Handlers struct {
	Q     *app.BoardQueryService
	Sub   *app.SubmissionService
	Board *app.Board
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers, jwtSecret string) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Group(func(r chi.Router) {
		r.Use(ViewerContext(jwtSecret))
		r.Get("/v1/feedback", h.getBoard)
		r.Get("/v1/feedback/window", h.getWindow)
		r.Get("/v1/feedback/eligibility", h.getEligibility)
		r.Post("/v1/feedback", h.postReview)
		r.Post("/v1/feedback/reload", h.reload)
	})
}

// ---- response shapes ----

type reviewDTO struct {
	ID               string  `json:"id"`
	Rating           int     `json:"rating"`
	Comment          string  `json:"comment"`
	Date             string  `json:"date,omitempty"`
	DisplayName      string  `json:"display_name"`
	Initials         string  `json:"initials"`
	AvatarURL        *string `json:"avatar_url,omitempty"`
	Email            *string `json:"email,omitempty"`
	LinkedinURL      *string `json:"linkedin_url,omitempty"`
	GithubURL        *string `json:"github_url,omitempty"`
	HasContactMethod bool    `json:"has_contact_method"`
	Provisional      bool    `json:"provisional,omitempty"`
}

type boardDTO struct {
	State       string          `json:"state"`
	Size        int             `json:"size"`
	Window      []reviewDTO     `json:"window"`
	Eligibility *eligibilityDTO `json:"eligibility,omitempty"`
}

type eligibilityDTO struct {
	SignedIn         bool `json:"signed_in"`
	AlreadySubmitted bool `json:"already_submitted"`
	CanSubmit        bool `json:"can_submit"`
}

func toReviewDTO(d domain.DisplayReview) reviewDTO {
	return reviewDTO{
		ID:               d.ID,
		Rating:           d.Rating,
		Comment:          d.Comment,
		Date:             d.Date,
		DisplayName:      d.DisplayName,
		Initials:         d.Initials,
		AvatarURL:        d.AvatarURL,
		Email:            d.Email,
		LinkedinURL:      d.LinkedinURL,
		GithubURL:        d.GithubURL,
		HasContactMethod: d.HasContactMethod,
		Provisional:      d.Provisional,
	}
}

func toWindowDTO(win []domain.DisplayReview) []reviewDTO {
	out := make([]reviewDTO, 0, len(win))
	for _, d := range win {
		out = append(out, toReviewDTO(d))
	}
	return out
}

func toEligibilityDTO(e domain.Eligibility) *eligibilityDTO {
	return &eligibilityDTO{SignedIn: e.SignedIn, AlreadySubmitted: e.AlreadySubmitted, CanSubmit: e.CanSubmit()}
}

// ---- helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- handlers ----

func (h *Handlers) getBoard(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFrom(r.Context())
	snap := h.Board.Snapshot()
	resp := boardDTO{
		State:  string(snap.State),
		Size:   snap.Size,
		Window: toWindowDTO(snap.Window),
	}
	if viewer.SignedIn() {
		resp.Eligibility = toEligibilityDTO(h.Sub.Eligibility(viewer))
	}
	writeJSONWithETag(w, r, resp)
}

func (h *Handlers) getWindow(w http.ResponseWriter, r *http.Request) {
	snap := h.Board.Snapshot()
	writeJSONWithETag(w, r, toWindowDTO(snap.Window))
}

func (h *Handlers) getEligibility(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFrom(r.Context())
	if !viewer.SignedIn() {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "sign in to check eligibility")
		return
	}
	writeJSONWithETag(w, r, toEligibilityDTO(h.Sub.Eligibility(viewer)))
}

func (h *Handlers) postReview(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be JSON with rating and comment")
		return
	}

	viewer := ViewerFrom(r.Context())
	entry, err := h.Sub.Submit(r.Context(), viewer, app.SubmissionInput{Rating: in.Rating, Comment: in.Comment})
	if err != nil {
		writeSubmissionProblem(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toReviewDTO(entry)); err != nil {
		log.Error().Err(err).Msg("failed to write created review")
	}
}

func (h *Handlers) reload(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFrom(r.Context())
	h.Q.InvalidateBoard(r.Context())
	reviews, err := h.Q.LoadBoard(r.Context(), viewer)
	if err != nil {
		writeProblem(w, http.StatusBadGateway, "Store unavailable", "failed to reload feedback from the store")
		return
	}
	h.Board.Replace(reviews)
	snap := h.Board.Snapshot()
	writeJSONWithETag(w, r, boardDTO{State: string(snap.State), Size: snap.Size, Window: toWindowDTO(snap.Window)})
}

// writeSubmissionProblem maps the submission error taxonomy onto statuses.
func writeSubmissionProblem(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "sign in to leave a review")
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeProblem(w, http.StatusConflict, "Already submitted", "only one review per viewer")
	case errors.Is(err, domain.ErrSubmissionInFlight):
		writeProblem(w, http.StatusConflict, "Submission in flight", "a previous submission is still pending")
	case errors.Is(err, domain.ErrInvalidRating):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid rating", domain.ErrInvalidRating.Error())
	case errors.Is(err, domain.ErrCommentTooShort):
		writeProblem(w, http.StatusUnprocessableEntity, "Comment too short", domain.ErrCommentTooShort.Error())
	case domain.IsRejected(err):
		// surfaced verbatim: the store's reason is the viewer's message
		writeProblem(w, http.StatusBadGateway, "Store rejected review", err.Error())
	default:
		writeProblem(w, http.StatusBadGateway, "Store unavailable", "failed to submit review")
	}
}
