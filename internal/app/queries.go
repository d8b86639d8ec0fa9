package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"feedback_board/internal/domain"
)

const boardRowsKey = "feedback:board:rows:v1"

// boardRows is the raw store snapshot the board is derived from. Cached as
// one unit so the comment/profile join never mixes two loads.
type boardRows struct {
	Comments []map[string]any
	Profiles []map[string]any
}

type BoardQueryService struct {
	store    domain.ReviewStore
	cache    domain.Cache
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewBoardQueryService(s domain.ReviewStore, c domain.Cache, ttl time.Duration) *BoardQueryService {
	return &BoardQueryService{store: s, cache: c, cacheTTL: ttl}
}

// LoadBoard fetches the review collection and the viewer's own profile as a
// single in-flight pair, then derives the display collection. A read failure
// on the comments is ErrStoreUnavailable; profile resolution is best-effort.
func (s *BoardQueryService) LoadBoard(ctx context.Context, viewer domain.Viewer) ([]domain.DisplayReview, error) {
	var (
		rows boardRows
		vp   domain.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.loadRows(gctx)
		return err
	})
	g.Go(func() error {
		vp = s.ViewerProfile(gctx, viewer)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := mapComments(rows.Comments)
	profiles := mapProfiles(rows.Profiles)
	return aggregateReviews(records, profiles, viewer, vp), nil
}

// ViewerProfile resolves the viewer's live profile. A missing row is not an
// error: fallback identity fields come from the auth token.
func (s *BoardQueryService) ViewerProfile(ctx context.Context, viewer domain.Viewer) domain.Profile {
	p := domain.Profile{ID: viewer.ID}
	if !viewer.SignedIn() {
		return p
	}
	row, err := s.store.GetProfile(ctx, viewer.ID)
	if err != nil {
		low := strings.ToLower(err.Error())
		if !errors.Is(err, domain.ErrNotFound) && !strings.Contains(low, "not found") {
			log.Warn().Err(err).Str("viewer", viewer.ID).Msg("viewer profile load failed; using token identity")
		}
	} else {
		p = mapProfile(row)
		p.ID = viewer.ID
	}
	if p.Email == nil && viewer.EmailOrHandle != "" {
		p.Email = ptrStr(viewer.EmailOrHandle)
	}
	return p
}

// InvalidateBoard drops the cached store snapshot (used after inserts).
func (s *BoardQueryService) InvalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, boardRowsKey)
}

func (s *BoardQueryService) loadRows(ctx context.Context) (boardRows, error) {
	var rows boardRows
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, boardRowsKey, &rows); ok {
			return rows, nil
		}
	}

	// Collapse concurrent cache misses into one outstanding store fetch.
	v, err, _ := s.sf.Do(boardRowsKey, func() (any, error) {
		comments, err := s.store.ListComments(ctx)
		if err != nil {
			return boardRows{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}

		ids := authorIDs(comments)
		profiles, err := s.store.ListProfiles(ctx, ids)
		if err != nil {
			// Best-effort join: names degrade to fallbacks, the board still loads.
			log.Warn().Err(err).Int("authors", len(ids)).Msg("profile bulk fetch failed")
			profiles = nil
		}

		out := boardRows{Comments: comments, Profiles: profiles}
		if s.cache != nil {
			// copy slices to avoid aliasing the cached value
			cp := boardRows{
				Comments: append([]map[string]any(nil), out.Comments...),
				Profiles: append([]map[string]any(nil), out.Profiles...),
			}
			// optional size guard
			if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
				_ = s.cache.Set(ctx, boardRowsKey, cp, int(s.cacheTTL.Seconds()))
			}
		}
		return out, nil
	})
	if err != nil {
		return boardRows{}, err
	}
	return v.(boardRows), nil
}

// authorIDs collects distinct author ids in input order.
func authorIDs(comments []map[string]any) []string {
	seen := make(map[string]struct{}, len(comments))
	out := make([]string, 0, len(comments))
	for _, row := range comments {
		id := deref(firstNonEmptyAlias(row, commentAliases, "author"))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
