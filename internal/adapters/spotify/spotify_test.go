package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlist/moodlist/internal/domain"
)

// fakeClock lets tests move token expiry deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// catalogServer stubs both the token endpoint and the API surface.
type catalogServer struct {
	srv *httptest.Server

	mu         sync.Mutex
	tokenCalls int
	lastQuery  map[string]string

	tokenStatus  int
	searchStatus int
	searchItems  []map[string]any
	recommended  []map[string]any
	genres       []string
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	cs := &catalogServer{
		tokenStatus:  http.StatusOK,
		searchStatus: http.StatusOK,
	}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token":
			cs.mu.Lock()
			cs.tokenCalls++
			status := cs.tokenStatus
			cs.mu.Unlock()

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok, "token exchange must use basic auth")
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "client-secret", pass)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
		case "/search":
			cs.recordQuery(r)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			cs.mu.Lock()
			status := cs.searchStatus
			items := cs.searchItems
			cs.mu.Unlock()
			if status != http.StatusOK {
				w.WriteHeader(status)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": items}})
		case "/recommendations":
			cs.recordQuery(r)
			cs.mu.Lock()
			tracks := cs.recommended
			cs.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"tracks": tracks})
		case "/recommendations/available-genre-seeds":
			cs.mu.Lock()
			genres := cs.genres
			cs.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"genres": genres})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *catalogServer) recordQuery(r *http.Request) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lastQuery = map[string]string{}
	for key, values := range r.URL.Query() {
		cs.lastQuery[key] = values[0]
	}
}

func (cs *catalogServer) client(clock *fakeClock) *Client {
	cfg := Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      cs.srv.URL + "/api/token",
		BaseURL:      cs.srv.URL,
		Market:       "US",
		HTTPClient:   cs.srv.Client(),
		RateLimit:    1000,
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	return NewClient(cfg)
}

func apiTrack(id, name, artist string) map[string]any {
	return map[string]any{
		"id":          id,
		"name":        name,
		"duration_ms": 201000,
		"preview_url": "https://preview.example/" + id,
		"artists":     []map[string]any{{"name": artist}},
		"album": map[string]any{
			"name":   "Album",
			"images": []map[string]any{{"url": "https://img.example/" + id}},
		},
	}
}

func testMoodSpec() *domain.MoodSpec {
	return &domain.MoodSpec{
		Genres:       []string{"pop", "indie"},
		AudioTargets: map[string]float64{"energy": 0.8, "tempo": 128},
		SearchTerms:  []string{"summer", "road trip"},
	}
}

// -- Tests ---------------------------------------------------------------------

func TestSearchTracks_Success(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchItems = []map[string]any{
		apiTrack("t1", "Song One", "Artist A"),
		apiTrack("t2", "Song Two", "Artist B"),
		apiTrack("t3", "Song Three", "Artist C"),
	}
	client := cs.client(nil)

	tracks, err := client.SearchTracks(context.Background(), testMoodSpec(), 3)

	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "t1", tracks[0].CatalogID)
	assert.Equal(t, "Song One", tracks[0].Title)
	assert.Equal(t, "Artist A", tracks[0].Artist)
	assert.Equal(t, 201000, tracks[0].DurationMs)
	assert.Equal(t, "https://img.example/t1", tracks[0].ImageURL)

	assert.Contains(t, cs.lastQuery["q"], "summer road trip")
	assert.Contains(t, cs.lastQuery["q"], "genre:pop")
	assert.Contains(t, cs.lastQuery["q"], "genre:indie")
	assert.Equal(t, "track", cs.lastQuery["type"])
	assert.Equal(t, "3", cs.lastQuery["limit"])
	assert.Equal(t, "US", cs.lastQuery["market"])
}

func TestSearchTracks_DropsRecordsMissingTitleOrArtist(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchItems = []map[string]any{
		apiTrack("t1", "Good", "Artist"),
		apiTrack("t2", "", "Artist"),
		{"id": "t3", "name": "No Artist", "artists": []map[string]any{}},
		apiTrack("t4", "Also Good", "Artist"),
	}
	client := cs.client(nil)

	tracks, err := client.SearchTracks(context.Background(), testMoodSpec(), 10)

	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "t1", tracks[0].CatalogID)
	assert.Equal(t, "t4", tracks[1].CatalogID)
}

func TestSearchTracks_NeverExceedsLimit(t *testing.T) {
	cs := newCatalogServer(t)
	for i := 0; i < 10; i++ {
		cs.searchItems = append(cs.searchItems, apiTrack("t", "Song", "Artist"))
	}
	client := cs.client(nil)

	tracks, err := client.SearchTracks(context.Background(), testMoodSpec(), 4)
	require.NoError(t, err)
	assert.Len(t, tracks, 4)
}

func TestSearchTracks_EmptyResultIsNotAnError(t *testing.T) {
	cs := newCatalogServer(t)
	client := cs.client(nil)

	tracks, err := client.SearchTracks(context.Background(), testMoodSpec(), 5)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestSearchTracks_LimitValidation(t *testing.T) {
	cs := newCatalogServer(t)
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = client.SearchTracks(context.Background(), testMoodSpec(), 101)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTokenCachedAcrossRequests(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchItems = []map[string]any{apiTrack("t1", "Song", "Artist")}
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 1)
	require.NoError(t, err)
	_, err = client.SearchTracks(context.Background(), testMoodSpec(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, cs.tokenCalls, "second request reuses the cached token")
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchItems = []map[string]any{apiTrack("t1", "Song", "Artist")}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	client := cs.client(clock)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.tokenCalls)

	// still inside the declared expiry
	clock.Advance(30 * time.Minute)
	_, err = client.SearchTracks(context.Background(), testMoodSpec(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cs.tokenCalls)

	// past expires_in (minus skew): must be refetched
	clock.Advance(time.Hour)
	_, err = client.SearchTracks(context.Background(), testMoodSpec(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, cs.tokenCalls)
}

func TestTokenExchangeFailure(t *testing.T) {
	cs := newCatalogServer(t)
	cs.tokenStatus = http.StatusBadRequest
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 5)

	var authErr *domain.CatalogAuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestSearchTracks_UnauthorizedMapsToAuthError(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchStatus = http.StatusUnauthorized
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 5)

	var authErr *domain.CatalogAuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestSearchTracks_RateLimited(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchStatus = http.StatusTooManyRequests
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 5)

	var queryErr *domain.CatalogQueryError
	require.ErrorAs(t, err, &queryErr)
	assert.True(t, queryErr.RateLimited)
}

func TestSearchTracks_ServerErrorMapsToQueryError(t *testing.T) {
	cs := newCatalogServer(t)
	cs.searchStatus = http.StatusInternalServerError
	client := cs.client(nil)

	_, err := client.SearchTracks(context.Background(), testMoodSpec(), 5)

	var queryErr *domain.CatalogQueryError
	require.ErrorAs(t, err, &queryErr)
	assert.False(t, queryErr.RateLimited)
}

func TestRecommend_SeedsAndTargets(t *testing.T) {
	cs := newCatalogServer(t)
	cs.recommended = []map[string]any{apiTrack("r1", "Rec One", "Artist")}
	client := cs.client(nil)

	spec := &domain.MoodSpec{
		Genres:       []string{"g1", "g2", "g3", "g4", "g5", "g6", "g7"},
		AudioTargets: map[string]float64{"energy": 0.75, "tempo": 120},
	}
	tracks, err := client.Recommend(context.Background(), spec, []string{"s1", "s2"}, 10)

	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "r1", tracks[0].CatalogID)

	assert.Equal(t, "g1,g2,g3,g4,g5", cs.lastQuery["seed_genres"], "genre seeds capped at five")
	assert.Equal(t, "s1,s2", cs.lastQuery["seed_tracks"])
	assert.Equal(t, "0.75", cs.lastQuery["target_energy"])
	assert.Equal(t, "120", cs.lastQuery["target_tempo"])
	assert.Equal(t, "10", cs.lastQuery["limit"])
}

func TestAvailableGenres(t *testing.T) {
	cs := newCatalogServer(t)
	cs.genres = []string{"acoustic", "afrobeat", "blues"}
	client := cs.client(nil)

	genres, err := client.AvailableGenres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acoustic", "afrobeat", "blues"}, genres)
}
