package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	httpserver "feedback_board/internal/adapters/http_server"
	"feedback_board/internal/app"
	"feedback_board/internal/domain"
)

// ---- fakes ----

type stubStore struct {
	comments  []map[string]any
	profiles  []map[string]any
	insertErr error
}

func (s *stubStore) ListComments(ctx context.Context) ([]map[string]any, error) {
	return s.comments, nil
}

func (s *stubStore) GetProfile(ctx context.Context, id string) (map[string]any, error) {
	for _, p := range s.profiles {
		if p["id"] == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubStore) ListProfiles(ctx context.Context, ids []string) ([]map[string]any, error) {
	return s.profiles, nil
}

func (s *stubStore) InsertComment(ctx context.Context, authorID string, rating int, comment string) (map[string]any, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	return map[string]any{"id": "stored-1", "user_id": authorID, "rating": rating, "feedback": comment}, nil
}

func stubComments(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, map[string]any{
			"id": fmt.Sprintf("c%d", i), "user_id": fmt.Sprintf("u%d", i),
			"rating": 5, "feedback": "a review body long enough to be realistic for this board",
			"created_at": fmt.Sprintf("2024-04-%02dT00:00:00Z", i),
		})
	}
	return out
}

func newTestServer(t *testing.T, store *stubStore) (*httptest.Server, *app.Board) {
	t.Helper()
	q := app.NewBoardQueryService(store, nil, time.Minute)
	board := app.NewBoard(app.BoardConfig{Interval: time.Hour})
	t.Cleanup(board.Close)
	sub := app.NewSubmissionService(store, q, board)

	if reviews, err := q.LoadBoard(context.Background(), domain.Viewer{}); err == nil {
		board.Replace(reviews)
	}

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, Sub: sub, Board: board}, testSecret)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, board
}

func bearerFor(t *testing.T, id, email string) string {
	t.Helper()
	return "Bearer " + signToken(t, testSecret, jwt.MapClaims{
		"sub": id, "email": email, "exp": time.Now().Add(time.Hour).Unix(),
	})
}

func getJSON(t *testing.T, ts *httptest.Server, path, auth string, out any) *http.Response {
	t.Helper()
	req, _ := http.NewRequest("GET", ts.URL+path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func postReview(t *testing.T, ts *httptest.Server, auth string, rating int, comment string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"rating": rating, "comment": comment})
	req, _ := http.NewRequest("POST", ts.URL+"/v1/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type boardResp struct {
	State       string `json:"state"`
	Size        int    `json:"size"`
	Window      []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Provisional bool   `json:"provisional"`
	} `json:"window"`
	Eligibility *struct {
		SignedIn         bool `json:"signed_in"`
		AlreadySubmitted bool `json:"already_submitted"`
		CanSubmit        bool `json:"can_submit"`
	} `json:"eligibility"`
}

const validComment = "this is a comment that clearly exceeds the fifty character minimum for reviews"

// ---- tests ----

func TestGetBoard_StaticCollection(t *testing.T) {
	ts, _ := newTestServer(t, &stubStore{comments: stubComments(4)})

	var out boardResp
	resp := getJSON(t, ts, "/v1/feedback", "", &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.State != "static" || out.Size != 4 || len(out.Window) != 4 {
		t.Fatalf("board = %+v", out)
	}
	if out.Eligibility != nil {
		t.Fatalf("no eligibility expected for signed-out viewers")
	}
}

func TestGetBoard_RotatingCollection(t *testing.T) {
	ts, _ := newTestServer(t, &stubStore{comments: stubComments(8)})

	var out boardResp
	getJSON(t, ts, "/v1/feedback", "", &out)
	if out.State != "rotating" || len(out.Window) != 3 {
		t.Fatalf("board = %+v", out)
	}
}

func TestGetBoard_ETag(t *testing.T) {
	ts, _ := newTestServer(t, &stubStore{comments: stubComments(4)})

	resp := getJSON(t, ts, "/v1/feedback", "", nil)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequest("GET", ts.URL+"/v1/feedback", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", resp2.StatusCode)
	}
}

func TestPostReview_Unauthenticated(t *testing.T) {
	store := &stubStore{comments: stubComments(2)}
	ts, board := newTestServer(t, store)

	resp := postReview(t, ts, "", 5, validComment)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if snap := board.Snapshot(); snap.Size != 2 {
		t.Fatalf("board mutated on auth failure")
	}
}

func TestPostReview_ValidationStatuses(t *testing.T) {
	ts, _ := newTestServer(t, &stubStore{comments: stubComments(2)})
	auth := bearerFor(t, "me", "me@example.com")

	if resp := postReview(t, ts, auth, 9, validComment); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad rating: status = %d, want 422", resp.StatusCode)
	}
	if resp := postReview(t, ts, auth, 3, "too short"); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("short comment: status = %d, want 422", resp.StatusCode)
	}
}

func TestPostReview_SuccessThenDuplicate(t *testing.T) {
	store := &stubStore{
		comments: stubComments(2),
		profiles: []map[string]any{{"id": "me", "first_name": "Mary", "last_name": "Shelley"}},
	}
	ts, board := newTestServer(t, store)
	auth := bearerFor(t, "me", "mary@example.com")

	resp := postReview(t, ts, auth, 5, validComment)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		DisplayName string `json:"display_name"`
		Provisional bool   `json:"provisional"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.DisplayName != "Mary Shelley" || !created.Provisional {
		t.Fatalf("created = %+v", created)
	}
	if snap := board.Snapshot(); snap.Size != 3 || !snap.Window[0].Provisional {
		t.Fatalf("provisional entry not at the head")
	}

	// one review per viewer
	if resp := postReview(t, ts, auth, 4, validComment); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: status = %d, want 409", resp.StatusCode)
	}
}

func TestPostReview_StoreRejection(t *testing.T) {
	store := &stubStore{
		comments:  stubComments(2),
		insertErr: fmt.Errorf("row level security policy violation"),
	}
	ts, board := newTestServer(t, store)
	auth := bearerFor(t, "me", "me@example.com")

	resp := postReview(t, ts, auth, 5, validComment)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if snap := board.Snapshot(); snap.Size != 2 {
		t.Fatalf("board mutated on store rejection")
	}
}

func TestEligibility(t *testing.T) {
	store := &stubStore{comments: []map[string]any{{
		"id": "c1", "user_id": "me", "rating": 5,
		"feedback": "the viewer already wrote this review some time ago", "created_at": "2024-01-01T00:00:00Z",
	}}}
	ts, _ := newTestServer(t, store)

	if resp := getJSON(t, ts, "/v1/feedback/eligibility", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("signed out: status = %d, want 401", resp.StatusCode)
	}

	var elig struct {
		SignedIn         bool `json:"signed_in"`
		AlreadySubmitted bool `json:"already_submitted"`
		CanSubmit        bool `json:"can_submit"`
	}
	getJSON(t, ts, "/v1/feedback/eligibility", bearerFor(t, "me", "me@example.com"), &elig)
	if !elig.SignedIn || !elig.AlreadySubmitted || elig.CanSubmit {
		t.Fatalf("eligibility = %+v", elig)
	}
}

func TestReload_ReplacesProvisional(t *testing.T) {
	store := &stubStore{comments: stubComments(2)}
	ts, board := newTestServer(t, store)
	auth := bearerFor(t, "me", "me@example.com")

	if resp := postReview(t, ts, auth, 5, validComment); resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit failed")
	}
	if snap := board.Snapshot(); snap.Size != 3 {
		t.Fatalf("provisional missing")
	}

	// the store now holds the authoritative row
	store.comments = append([]map[string]any{{
		"id": "stored-1", "user_id": "me", "rating": 5,
		"feedback": validComment, "created_at": "2024-05-05T00:00:00Z",
	}}, store.comments...)

	req, _ := http.NewRequest("POST", ts.URL+"/v1/feedback/reload", nil)
	req.Header.Set("Authorization", auth)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d", resp.StatusCode)
	}

	snap := board.Snapshot()
	if snap.Size != 3 || snap.Window[0].ID != "stored-1" || snap.Window[0].Provisional {
		t.Fatalf("authoritative row should replace the provisional one: %+v", snap.Window[0])
	}
}
