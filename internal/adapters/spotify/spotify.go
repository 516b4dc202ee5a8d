package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/moodlist/moodlist/internal/domain"
)

const (
	defaultAuthURL = "https://accounts.spotify.com/api/token"
	defaultBaseURL = "https://api.spotify.com/v1"

	maxSeeds = 5
	maxLimit = 100

	// tokenSkew expires cached tokens slightly early so a token never goes
	// stale mid-request.
	tokenSkew = 30 * time.Second

	genreCacheKey = "spotify:genre_seeds"
	genreCacheTTL = 24 * time.Hour
)

// Config carries the catalog client's credentials and injectable
// collaborators. Zero-valued fields fall back to production defaults; Now is
// injectable so token expiry is deterministically testable.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	BaseURL      string
	Market       string
	HTTPClient   *http.Client
	Redis        *redis.Client
	Now          func() time.Time
	RateLimit    float64 // requests per second against the catalog API
}

// Client implements ports.Catalog against the Spotify Web API using the
// client-credentials flow. The bearer token is cached process-wide and
// refreshed only once its declared expiry has passed; concurrent refreshes
// on an expired cache are duplicate work, not a correctness hazard.
type Client struct {
	clientID     string
	clientSecret string
	authURL      string
	baseURL      string
	market       string
	client       *http.Client
	rdb          *redis.Client
	now          func() time.Time
	limiter      *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a catalog client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Market == "" {
		cfg.Market = "US"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authURL:      cfg.AuthURL,
		baseURL:      cfg.BaseURL,
		market:       cfg.Market,
		client:       cfg.HTTPClient,
		rdb:          cfg.Redis,
		now:          cfg.Now,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
	}
}

// -- API response types (internal) --------------------------------------------

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Tracks struct {
		Items []trackData `json:"items"`
	} `json:"tracks"`
}

type recommendationsResponse struct {
	Tracks []trackData `json:"tracks"`
}

type genreSeedsResponse struct {
	Genres []string `json:"genres"`
}

type trackData struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

// -- Catalog implementation -----------------------------------------------------

// SearchTracks combines the spec's free-text terms with genre qualifiers and
// runs one track search. Records missing a title or artist are dropped; an
// empty result set is returned as an empty slice, not an error.
func (c *Client) SearchTracks(ctx context.Context, spec *domain.MoodSpec, limit int) ([]domain.Track, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	q := strings.Join(spec.SearchTerms, " ")
	for _, g := range spec.Genres {
		q += " genre:" + g
	}

	params := url.Values{}
	params.Set("q", strings.TrimSpace(q))
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("market", c.market)

	body, err := c.doGet(ctx, c.baseURL+"/search", params)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.CatalogQueryError{Err: fmt.Errorf("failed to parse search response: %w", err)}
	}

	return normalizeTracks(resp.Tracks.Items, limit), nil
}

// Recommend asks the catalog's recommendation engine for tracks, seeded by
// up to five genres and five example tracks, with the spec's audio targets
// as target feature values.
func (c *Client) Recommend(ctx context.Context, spec *domain.MoodSpec, seedTracks []string, limit int) ([]domain.Track, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("market", c.market)
	if len(spec.Genres) > 0 {
		params.Set("seed_genres", strings.Join(capSeeds(spec.Genres), ","))
	}
	if len(seedTracks) > 0 {
		params.Set("seed_tracks", strings.Join(capSeeds(seedTracks), ","))
	}
	for name, value := range spec.AudioTargets {
		params.Set("target_"+name, strconv.FormatFloat(value, 'f', -1, 64))
	}

	body, err := c.doGet(ctx, c.baseURL+"/recommendations", params)
	if err != nil {
		return nil, err
	}

	var resp recommendationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.CatalogQueryError{Err: fmt.Errorf("failed to parse recommendations response: %w", err)}
	}

	return normalizeTracks(resp.Tracks, limit), nil
}

// AvailableGenres lists the catalog's genre seeds. The listing is nearly
// static, so it is cached in Redis with a TTL when a Redis client is
// configured; cache failures fall through to the catalog.
func (c *Client) AvailableGenres(ctx context.Context) ([]string, error) {
	if c.rdb != nil {
		if cached, err := c.rdb.Get(ctx, genreCacheKey).Bytes(); err == nil {
			var genres []string
			if json.Unmarshal(cached, &genres) == nil {
				return genres, nil
			}
		}
	}

	body, err := c.doGet(ctx, c.baseURL+"/recommendations/available-genre-seeds", url.Values{})
	if err != nil {
		return nil, err
	}

	var resp genreSeedsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.CatalogQueryError{Err: fmt.Errorf("failed to parse genre seeds response: %w", err)}
	}

	if c.rdb != nil {
		if encoded, err := json.Marshal(resp.Genres); err == nil {
			c.rdb.Set(ctx, genreCacheKey, encoded, genreCacheTTL)
		}
	}

	return resp.Genres, nil
}

// -- Token cache --------------------------------------------------------------

// bearer returns a valid access token, exchanging client credentials only
// when the cached token is absent or past its declared expiry.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	token, expiry, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token, c.tokenExpiry = token, expiry
	c.mu.Unlock()
	return token, nil
}

func (c *Client) exchange(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", time.Time{}, &domain.CatalogAuthError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &domain.CatalogAuthError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, &domain.CatalogAuthError{Err: fmt.Errorf("token endpoint returned status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, &domain.CatalogAuthError{Err: fmt.Errorf("failed to parse token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, &domain.CatalogAuthError{Err: fmt.Errorf("token response missing access_token")}
	}

	expiry := c.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	return tr.AccessToken, expiry, nil
}

// -- HTTP helpers ----------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &domain.CatalogQueryError{Err: err}
	}

	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.CatalogQueryError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.CatalogQueryError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &domain.CatalogAuthError{Err: fmt.Errorf("catalog returned status %d", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &domain.CatalogQueryError{RateLimited: true, Err: fmt.Errorf("catalog returned status %d", resp.StatusCode)}
	default:
		return nil, &domain.CatalogQueryError{Err: fmt.Errorf("catalog returned status %d", resp.StatusCode)}
	}
}

// -- Helpers -----------------------------------------------------------------------

func checkLimit(limit int) error {
	if limit <= 0 || limit > maxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, maxLimit)
	}
	return nil
}

func capSeeds(seeds []string) []string {
	if len(seeds) > maxSeeds {
		return seeds[:maxSeeds]
	}
	return seeds
}

// normalizeTracks converts upstream records to the canonical Track shape.
// Records missing a title or artist are dropped rather than propagated;
// image and preview URLs are optional.
func normalizeTracks(items []trackData, limit int) []domain.Track {
	tracks := make([]domain.Track, 0, len(items))
	for _, item := range items {
		if len(tracks) == limit {
			break
		}
		t, ok := normalizeTrack(item)
		if !ok {
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks
}

func normalizeTrack(item trackData) (domain.Track, bool) {
	names := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	artist := strings.Join(names, ", ")

	if item.Name == "" || artist == "" {
		return domain.Track{}, false
	}

	track := domain.Track{
		CatalogID:  item.ID,
		Title:      item.Name,
		Artist:     artist,
		Album:      item.Album.Name,
		DurationMs: item.DurationMs,
		PreviewURL: item.PreviewURL,
	}
	if len(item.Album.Images) > 0 {
		track.ImageURL = item.Album.Images[0].URL
	}
	if track.DurationMs < 0 {
		track.DurationMs = 0
	}
	return track, true
}
