package app

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"feedback_board/internal/domain"
)

/********** alias registries (single source of truth) **********/

var commentAliases = map[string][]string{
	"id":         {"id", "comment_id", "commentId"},
	"author":     {"user_id", "userId", "author_id", "authorId"},
	"rating":     {"rating", "rate", "score"},
	"comment":    {"feedback", "comment", "text", "body", "message"},
	"created_at": {"created_at", "createdAt", "inserted_at", "insertedAt"},
}

var profileAliases = map[string][]string{
	"id":       {"id", "user_id", "userId"},
	"username": {"username", "handle", "user_name"},
	"first":    {"first_name", "firstname", "firstName"},
	"last":     {"last_name", "lastname", "lastName"},
	"email":    {"email", "contact_email"},
	"avatar":   {"avatar_url", "avatarUrl", "avatar"},
	"linkedin": {"linkedin_url", "linkedinUrl", "linkedin"},
	"github":   {"github_url", "githubUrl", "github"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstIntFlexible: int from several paths (float64/int/string).
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case int64:
			x := int(v)
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstTimeFlexible: timestamp from several paths; accepts RFC3339 with or
// without fraction/zone, plus plain date.
func firstTimeFlexible(m map[string]any, paths ...string) time.Time {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, k := range paths {
		s := strings.TrimSpace(lookupStr(m, k))
		if s == "" {
			continue
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

/********** comment mapper **********/

func mapComment(row map[string]any) domain.ReviewRecord {
	var rec domain.ReviewRecord
	rec.ID = deref(firstNonEmptyAlias(row, commentAliases, "id"))
	rec.AuthorID = deref(firstNonEmptyAlias(row, commentAliases, "author"))
	if n := firstIntFlexible(row, commentAliases["rating"]...); n != nil {
		rec.Rating = *n
	}
	rec.Comment = deref(firstNonEmptyAlias(row, commentAliases, "comment"))
	rec.CreatedAt = firstTimeFlexible(row, commentAliases["created_at"]...)

	if raw, err := json.Marshal(row); err == nil {
		rec.RawJSON = raw
	} else {
		log.Error().Err(err).Str("context", "mapComment").Msg("marshal comment failed")
	}
	return rec
}

func mapComments(rows []map[string]any) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapComment(row))
	}
	return out
}

/********** profile mapper **********/

func mapProfile(row map[string]any) domain.Profile {
	return domain.Profile{
		ID:          deref(firstNonEmptyAlias(row, profileAliases, "id")),
		Username:    firstNonEmptyAlias(row, profileAliases, "username"),
		FirstName:   firstNonEmptyAlias(row, profileAliases, "first"),
		LastName:    firstNonEmptyAlias(row, profileAliases, "last"),
		Email:       firstNonEmptyAlias(row, profileAliases, "email"),
		AvatarURL:   firstNonEmptyAlias(row, profileAliases, "avatar"),
		LinkedinURL: firstNonEmptyAlias(row, profileAliases, "linkedin"),
		GithubURL:   firstNonEmptyAlias(row, profileAliases, "github"),
	}
}

// mapProfiles keys the result by profile id; rows without an id are dropped.
func mapProfiles(rows []map[string]any) map[string]domain.Profile {
	out := make(map[string]domain.Profile, len(rows))
	for _, row := range rows {
		p := mapProfile(row)
		if p.ID == "" {
			continue
		}
		out[p.ID] = p
	}
	return out
}
