package domain

import "time"

// Role is the permission level granted to a playlist collaborator.
type Role string

const (
	RoleView  Role = "view"
	RoleEdit  Role = "edit"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known collaborator roles.
func (r Role) Valid() bool {
	switch r {
	case RoleView, RoleEdit, RoleAdmin:
		return true
	}
	return false
}

// MoodSpec is the structured result of analyzing a free-text mood prompt.
// It is only ever produced by a successful parse: Genres is non-empty and
// every AudioTargets value lies within its feature's domain.
type MoodSpec struct {
	Genres               []string           `json:"genres"`
	AudioTargets         map[string]float64 `json:"audio_targets"`
	SearchTerms          []string           `json:"search_terms"`
	SuggestedName        string             `json:"suggested_name"`
	SuggestedDescription string             `json:"suggested_description"`
}

// Track is a catalog track normalized to the shape this service stores.
// Tracks are immutable once resolved; equality is by CatalogID.
type Track struct {
	CatalogID  string `json:"catalog_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMs int    `json:"duration_ms"`
	ImageURL   string `json:"image_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Collaborator grants a non-owner user a role on a playlist. A user appears
// at most once in a playlist's collaborator set, and the owner never does.
type Collaborator struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Playlist is the persisted, shareable result of a mood generation plus all
// social state attached to it afterwards.
type Playlist struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	MoodPrompt        string         `json:"mood_prompt"`
	OwnerID           string         `json:"owner_id"`
	Tracks            []Track        `json:"tracks"`
	SpotifyPlaylistID string         `json:"spotify_playlist_id,omitempty"`
	IsPublic          bool           `json:"is_public"`
	IsCollaborative   bool           `json:"is_collaborative"`
	Collaborators     []Collaborator `json:"collaborators"`
	Tags              []string       `json:"tags"`
	LikeCount         int            `json:"like_count"`
	LikedBy           []string       `json:"liked_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CollaboratorRole returns the role granted to userID, if any.
func (p *Playlist) CollaboratorRole(userID string) (Role, bool) {
	for _, c := range p.Collaborators {
		if c.UserID == userID {
			return c.Role, true
		}
	}
	return "", false
}

// HasLiked reports whether userID is in the playlist's likedBy set.
func (p *Playlist) HasLiked(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// ToggleLike flips userID's like on the playlist and returns the new state.
// It is its own inverse and keeps LikeCount equal to len(LikedBy).
func (p *Playlist) ToggleLike(userID string) LikeResult {
	if p.HasLiked(userID) {
		kept := p.LikedBy[:0]
		for _, id := range p.LikedBy {
			if id != userID {
				kept = append(kept, id)
			}
		}
		p.LikedBy = kept
		if p.LikeCount > 0 {
			p.LikeCount--
		}
		return LikeResult{Liked: false, LikeCount: p.LikeCount}
	}

	p.LikedBy = append(p.LikedBy, userID)
	p.LikeCount++
	return LikeResult{Liked: true, LikeCount: p.LikeCount}
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Preferences are the user directory's per-user generation defaults.
type Preferences struct {
	DefaultGenres         []string `json:"default_genres"`
	DefaultPlaylistLength int      `json:"default_playlist_length"`
	AllowExplicit         bool     `json:"allow_explicit"`
}

// User is the slice of the external user directory this service consumes.
type User struct {
	ID            string      `json:"id"`
	DisplayName   string      `json:"display_name"`
	SpotifyLinked bool        `json:"spotify_linked"`
	Preferences   Preferences `json:"preferences"`
}

// MoodHints are the optional caller-supplied constraints for mood analysis.
type MoodHints struct {
	Genre string
	Count int
}

// ResolveMode selects how a MoodSpec is turned into tracks: free-text
// catalog search or the catalog's own seeded recommendation engine.
type ResolveMode string

const (
	ResolveSearch    ResolveMode = "search"
	ResolveRecommend ResolveMode = "recommend"
)

// GenerateRequest asks the service to synthesize and persist a playlist
// from a mood prompt.
type GenerateRequest struct {
	MoodPrompt string      `json:"mood_prompt" binding:"required"`
	Genre      string      `json:"genre,omitempty"`
	Count      int         `json:"count,omitempty"`
	Mode       ResolveMode `json:"mode,omitempty"`
	Describe   bool        `json:"describe,omitempty"`
}

// PlaylistUpdate is a partial update of a playlist's mutable fields. Nil
// fields are left untouched; ownerId and collaborators are never updatable
// through this type.
type PlaylistUpdate struct {
	Name            *string   `json:"name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	IsPublic        *bool     `json:"is_public,omitempty"`
	IsCollaborative *bool     `json:"is_collaborative,omitempty"`
	Tracks          *[]Track  `json:"tracks,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u PlaylistUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Tags == nil &&
		u.IsPublic == nil && u.IsCollaborative == nil && u.Tracks == nil
}

// CollaboratorRequest adds a user to a playlist's collaborator set.
type CollaboratorRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   Role   `json:"role,omitempty"`
}

// PlaylistPage is one page of a playlist listing.
type PlaylistPage struct {
	Playlists  []Playlist `json:"playlists"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
}
