package app

import (
	"strings"

	"feedback_board/internal/domain"
)

// aggregateReviews joins review records with author profiles into
// display-ready entries. Records authored by the viewer use the viewer's
// live profile; everyone else resolves best-effort from the bulk profile
// fetch, falling back to the store-provided account identifier. Pure:
// same inputs always yield the same sequence, ordering preserved.
func aggregateReviews(records []domain.ReviewRecord, profiles map[string]domain.Profile,
	viewer domain.Viewer, viewerProfile domain.Profile) []domain.DisplayReview {

	out := make([]domain.DisplayReview, 0, len(records))
	for _, rec := range records {
		var p domain.Profile
		var ok bool
		fallback := ""
		if viewer.SignedIn() && rec.AuthorID == viewer.ID {
			p, ok = viewerProfile, true
			fallback = viewer.EmailOrHandle
		} else {
			p, ok = profiles[rec.AuthorID]
		}
		out = append(out, displayReview(rec, p, ok, fallback))
	}
	return out
}

func displayReview(rec domain.ReviewRecord, p domain.Profile, resolved bool, fallback string) domain.DisplayReview {
	d := domain.DisplayReview{
		ID:       rec.ID,
		AuthorID: rec.AuthorID,
		Rating:   rec.Rating,
		Comment:  rec.Comment,
	}
	if !rec.CreatedAt.IsZero() {
		d.Date = rec.CreatedAt.UTC().Format("2006-01-02")
	}
	if resolved {
		d.AvatarURL = p.AvatarURL
		d.Email = p.Email
		d.LinkedinURL = p.LinkedinURL
		d.GithubURL = p.GithubURL
		d.HasContactMethod = p.Email != nil || p.LinkedinURL != nil || p.GithubURL != nil
	}
	d.DisplayName = displayName(p, fallback)
	d.Initials = initials(p, fallback)
	return d
}

// displayName: "first last" if both present, else username, else the
// profile email, else the account identifier, else "Anonymous".
func displayName(p domain.Profile, fallback string) string {
	if p.FirstName != nil && p.LastName != nil {
		if full := strings.TrimSpace(*p.FirstName + " " + *p.LastName); full != "" {
			return full
		}
	}
	if s := deref(p.Username); s != "" {
		return s
	}
	if s := deref(p.Email); s != "" {
		return s
	}
	if fallback != "" {
		return fallback
	}
	return "Anonymous"
}

// initials follows the displayName precedence; two characters, uppercased.
func initials(p domain.Profile, fallback string) string {
	if p.FirstName != nil && p.LastName != nil && *p.FirstName != "" && *p.LastName != "" {
		return strings.ToUpper(firstRune(*p.FirstName) + firstRune(*p.LastName))
	}
	for _, s := range []string{deref(p.Username), deref(p.Email), fallback} {
		if s != "" {
			return strings.ToUpper(firstN(s, 2))
		}
	}
	return "AN"
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func firstN(s string, n int) string {
	rs := []rune(s)
	if len(rs) < n {
		return string(rs)
	}
	return string(rs[:n])
}
