package ports

import (
	"context"

	"github.com/moodlist/moodlist/internal/domain"
)

// MoodAnalyzer turns free-form mood text into structured music parameters
// via an external text-generation service.
type MoodAnalyzer interface {
	// AnalyzeMood sends one generation request and strictly parses the
	// response into a MoodSpec. It never returns a partial spec: any
	// transport or extraction failure yields a *domain.MoodParseError.
	AnalyzeMood(ctx context.Context, moodText string, hints domain.MoodHints) (*domain.MoodSpec, error)

	// DescribePlaylist produces a friendlier playlist description from the
	// prompt and a sample of the resolved tracks.
	DescribePlaylist(ctx context.Context, moodPrompt string, tracks []domain.Track) (string, error)
}

// Catalog is the external music search/recommendation provider. Both query
// modes are equivalent capabilities; callers pick one.
type Catalog interface {
	// SearchTracks runs a free-text search combining the spec's search terms
	// with genre qualifiers. At most limit tracks are returned; an empty
	// result is not an error.
	SearchTracks(ctx context.Context, spec *domain.MoodSpec, limit int) ([]domain.Track, error)

	// Recommend asks the catalog's own engine for tracks, seeded by the
	// spec's genres (and optionally example track IDs) with the spec's audio
	// targets as target features.
	Recommend(ctx context.Context, spec *domain.MoodSpec, seedTracks []string, limit int) ([]domain.Track, error)

	// AvailableGenres lists the catalog's recognized genre seeds.
	AvailableGenres(ctx context.Context) ([]string, error)
}

// PlaylistStore is durable keyed storage for playlists. ToggleLike and
// AddCollaborator must be atomic conditional updates; Update is
// last-write-wins.
type PlaylistStore interface {
	Create(ctx context.Context, p *domain.Playlist) (*domain.Playlist, error)
	GetByID(ctx context.Context, id string) (*domain.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.Playlist, int, error)
	ListPublic(ctx context.Context, tag string, page, limit int) ([]domain.Playlist, int, error)
	Update(ctx context.Context, id string, update domain.PlaylistUpdate) (*domain.Playlist, error)
	AddCollaborator(ctx context.Context, id string, c domain.Collaborator) (*domain.Playlist, error)
	ToggleLike(ctx context.Context, id, userID string) (*domain.LikeResult, error)
	Delete(ctx context.Context, id string) error
}

// UserDirectory resolves user identities managed outside this service.
type UserDirectory interface {
	// Lookup returns the user for the given identity id, or
	// domain.ErrUnknownUser if the directory does not know it.
	Lookup(ctx context.Context, userID string) (*domain.User, error)
}

// PlaylistService is the driving port: the mood-to-playlist pipeline plus
// every guarded operation on persisted playlists.
type PlaylistService interface {
	GeneratePlaylist(ctx context.Context, ownerID string, req domain.GenerateRequest) (*domain.Playlist, error)
	GetPlaylist(ctx context.Context, actor, id string) (*domain.Playlist, error)
	ListMyPlaylists(ctx context.Context, actor string, page, limit int) (*domain.PlaylistPage, error)
	ListPublicPlaylists(ctx context.Context, tag string, page, limit int) (*domain.PlaylistPage, error)
	UpdatePlaylist(ctx context.Context, actor, id string, update domain.PlaylistUpdate) (*domain.Playlist, error)
	AddCollaborator(ctx context.Context, actor, id, targetUserID string, role domain.Role) (*domain.Playlist, error)
	ToggleLike(ctx context.Context, actor, id string) (*domain.LikeResult, error)
	DeletePlaylist(ctx context.Context, actor, id string) error
	AvailableGenres(ctx context.Context) ([]string, error)
}
