package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/moodlist/moodlist/internal/domain"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent"

	maxHintCount = 100
	minGenres    = 1
	maxGenres    = 3

	// trackSampleBudget bounds the human-readable track list embedded in the
	// describe prompt so prompt size cannot grow with playlist size.
	trackSampleBudget = 200
)

// unitFeatures are the audio targets constrained to [0,1]. Tempo is the one
// named feature outside the unit interval and is validated as BPM.
var unitFeatures = map[string]bool{
	"energy":           true,
	"valence":          true,
	"danceability":     true,
	"acousticness":     true,
	"instrumentalness": true,
	"liveness":         true,
	"speechiness":      true,
}

const maxTempoBPM = 300

// Client implements ports.MoodAnalyzer against the Gemini generateContent
// endpoint. The API key travels in the query string and is never logged.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Gemini client. baseURL and client may be zero values;
// the production endpoint and http.DefaultClient are used.
func NewClient(apiKey, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}
}

// -- API request/response types (internal) -----------------------------------

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// moodPayload is the JSON shape the analysis prompt instructs the model to
// produce.
type moodPayload struct {
	Genres        []string           `json:"genres"`
	AudioFeatures map[string]float64 `json:"audioFeatures"`
	SearchTerms   []string           `json:"searchTerms"`
	PlaylistName  string             `json:"playlistName"`
	Description   string             `json:"description"`
}

// -- MoodAnalyzer implementation ----------------------------------------------

// AnalyzeMood sends one generation request and strictly extracts a MoodSpec
// from the response. Every failure mode (unreachable upstream, no JSON in
// the text, malformed JSON, out-of-range fields) yields a
// *domain.MoodParseError; a partial spec is never returned. The call is not
// retried here.
func (c *Client) AnalyzeMood(ctx context.Context, moodText string, hints domain.MoodHints) (*domain.MoodSpec, error) {
	moodText = strings.TrimSpace(moodText)
	if moodText == "" {
		return nil, fmt.Errorf("%w: mood text is required", domain.ErrInvalidInput)
	}
	if hints.Count < 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
	}
	if hints.Count > maxHintCount {
		hints.Count = maxHintCount
	}

	raw, err := c.generate(ctx, analysisPrompt(moodText, hints))
	if err != nil {
		return nil, &domain.MoodParseError{Reason: domain.ParseReasonUpstream, Err: err}
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, &domain.MoodParseError{Reason: domain.ParseReasonNoJSON, RawText: raw}
	}

	var payload moodPayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return nil, &domain.MoodParseError{Reason: domain.ParseReasonInvalidJSON, RawText: raw, Err: err}
	}

	spec, err := specFromPayload(payload)
	if err != nil {
		return nil, &domain.MoodParseError{Reason: domain.ParseReasonInvalidSpec, RawText: raw, Err: err}
	}
	return spec, nil
}

// DescribePlaylist asks the model for a friendlier description of the final
// track list. The sample embedded in the prompt is truncated to a fixed
// character budget.
func (c *Client) DescribePlaylist(ctx context.Context, moodPrompt string, tracks []domain.Track) (string, error) {
	sample := trackSample(tracks)

	prompt := fmt.Sprintf(`Create a creative and engaging playlist description for a mood-based playlist.

Original mood prompt: %q
Sample tracks: %s

Write a 2-3 sentence description that captures the mood and vibe of this playlist.
Make it engaging and personal, as if you're describing it to a friend.`, moodPrompt, sample)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return "", &domain.MoodParseError{Reason: domain.ParseReasonUpstream, Err: err}
	}
	return strings.TrimSpace(raw), nil
}

// -- Prompt construction -------------------------------------------------------

func analysisPrompt(moodText string, hints domain.MoodHints) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a music mood analyzer. Analyze the following mood description and provide a JSON response with music parameters.

Mood: %q
`, moodText)

	if hints.Genre != "" {
		fmt.Fprintf(&b, "\nPrefer genres close to %q.\n", hints.Genre)
	}
	if hints.Count > 0 {
		fmt.Fprintf(&b, "\nThe playlist will contain about %d tracks.\n", hints.Count)
	}

	b.WriteString(`
Respond with a JSON object of this exact shape:
{
  "genres": ["genre1", "genre2"],
  "audioFeatures": {
    "energy": 0.7,
    "valence": 0.8,
    "danceability": 0.6,
    "tempo": 120
  },
  "searchTerms": ["keyword1", "keyword2"],
  "playlistName": "Generated playlist name",
  "description": "Brief description of the mood and playlist"
}

Use 1-3 genres. Audio feature values other than tempo are on a 0-1 scale;
tempo is BPM. Only respond with valid JSON, no additional text.`)

	return b.String()
}

func trackSample(tracks []domain.Track) string {
	parts := make([]string, 0, len(tracks))
	for _, t := range tracks {
		parts = append(parts, fmt.Sprintf("%s by %s", t.Title, t.Artist))
	}
	sample := strings.Join(parts, ", ")
	if len(sample) > trackSampleBudget {
		cut := trackSampleBudget
		for cut > 0 && !utf8.RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut] + "..."
	}
	return sample
}

// -- Validation ----------------------------------------------------------------

func specFromPayload(p moodPayload) (*domain.MoodSpec, error) {
	genres := make([]string, 0, len(p.Genres))
	for _, g := range p.Genres {
		g = strings.TrimSpace(g)
		if g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) < minGenres {
		return nil, fmt.Errorf("no genres in response")
	}
	if len(genres) > maxGenres {
		genres = genres[:maxGenres]
	}

	targets := make(map[string]float64, len(p.AudioFeatures))
	for name, value := range p.AudioFeatures {
		switch {
		case unitFeatures[name]:
			if value < 0 || value > 1 {
				return nil, fmt.Errorf("audio feature %q out of range: %v", name, value)
			}
			targets[name] = value
		case name == "tempo":
			if value <= 0 || value > maxTempoBPM {
				return nil, fmt.Errorf("tempo out of range: %v", value)
			}
			targets[name] = value
		default:
			// unknown feature names are dropped, not propagated
		}
	}

	terms := make([]string, 0, len(p.SearchTerms))
	for _, s := range p.SearchTerms {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}

	return &domain.MoodSpec{
		Genres:               genres,
		AudioTargets:         targets,
		SearchTerms:          terms,
		SuggestedName:        strings.TrimSpace(p.PlaylistName),
		SuggestedDescription: strings.TrimSpace(p.Description),
	}, nil
}

// -- HTTP ------------------------------------------------------------------------

// generate performs a single generateContent call and returns the raw text
// of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("text generation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text generation service returned status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("failed to parse generation response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generation response has no candidates")
	}

	return gr.Candidates[0].Content.Parts[0].Text, nil
}
