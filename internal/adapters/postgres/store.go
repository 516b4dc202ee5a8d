package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moodlist/moodlist/internal/domain"
)

const playlistColumns = `id, name, description, mood_prompt, owner_id, tracks,
	spotify_playlist_id, is_public, is_collaborative, collaborators, tags,
	like_count, liked_by, created_at, updated_at`

// Store implements ports.PlaylistStore on Postgres. Like toggles and
// collaborator inserts are single conditional UPDATE statements so they stay
// atomic under concurrent requests; field updates are last-write-wins.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate creates the playlists table if it does not exist. Idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS playlists (
			id                  UUID PRIMARY KEY,
			name                TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			mood_prompt         TEXT NOT NULL,
			owner_id            TEXT NOT NULL,
			tracks              JSONB NOT NULL DEFAULT '[]',
			spotify_playlist_id TEXT NOT NULL DEFAULT '',
			is_public           BOOLEAN NOT NULL DEFAULT FALSE,
			is_collaborative    BOOLEAN NOT NULL DEFAULT FALSE,
			collaborators       JSONB NOT NULL DEFAULT '[]',
			tags                TEXT[] NOT NULL DEFAULT '{}',
			like_count          INT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
			liked_by            TEXT[] NOT NULL DEFAULT '{}',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_playlists_owner_created ON playlists (owner_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_playlists_public_likes ON playlists (is_public, like_count DESC);
		CREATE INDEX IF NOT EXISTS idx_playlists_tags ON playlists USING GIN (tags);
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate playlists table: %w", err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, p *domain.Playlist) (*domain.Playlist, error) {
	tracksJSON, err := json.Marshal(emptyIfNilTracks(p.Tracks))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracks: %w", err)
	}
	collabJSON, err := json.Marshal(emptyIfNilCollaborators(p.Collaborators))
	if err != nil {
		return nil, fmt.Errorf("failed to encode collaborators: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	row := s.db.QueryRow(ctx, `
		INSERT INTO playlists (id, name, description, mood_prompt, owner_id, tracks,
			spotify_playlist_id, is_public, is_collaborative, collaborators, tags,
			like_count, liked_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, '{}', $12, $12)
		RETURNING `+playlistColumns,
		id, p.Name, p.Description, p.MoodPrompt, p.OwnerID, tracksJSON,
		p.SpotifyPlaylistID, p.IsPublic, p.IsCollaborative, collabJSON,
		emptyIfNilStrings(p.Tags), now,
	)
	return scanPlaylist(row)
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Playlist, error) {
	row := s.db.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id)
	return scanPlaylist(row)
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]domain.Playlist, int, error) {
	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM playlists WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count playlists: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		ownerID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	playlists, err := collectPlaylists(rows)
	return playlists, total, err
}

func (s *Store) ListPublic(ctx context.Context, tag string, page, limit int) ([]domain.Playlist, int, error) {
	var total int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM playlists WHERE is_public AND ($1 = '' OR $1 = ANY(tags))`,
		tag,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count public playlists: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE is_public AND ($1 = '' OR $1 = ANY(tags))
		ORDER BY like_count DESC, created_at DESC
		LIMIT $2 OFFSET $3`,
		tag, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list public playlists: %w", err)
	}
	defer rows.Close()

	playlists, err := collectPlaylists(rows)
	return playlists, total, err
}

// Update writes the update's non-nil fields. Last write wins; ownerId and
// collaborators are not reachable through this statement.
func (s *Store) Update(ctx context.Context, id string, update domain.PlaylistUpdate) (*domain.Playlist, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Tags != nil {
		add("tags", *update.Tags)
	}
	if update.IsPublic != nil {
		add("is_public", *update.IsPublic)
	}
	if update.IsCollaborative != nil {
		add("is_collaborative", *update.IsCollaborative)
	}
	if update.Tracks != nil {
		tracksJSON, err := json.Marshal(*update.Tracks)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tracks: %w", err)
		}
		add("tracks", tracksJSON)
	}

	query := fmt.Sprintf(`UPDATE playlists SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), playlistColumns)
	return scanPlaylist(s.db.QueryRow(ctx, query, args...))
}

// AddCollaborator appends the collaborator in one conditional UPDATE: the
// row only changes when the user is not already present, so concurrent adds
// of the same user cannot produce duplicates.
func (s *Store) AddCollaborator(ctx context.Context, id string, c domain.Collaborator) (*domain.Playlist, error) {
	collabJSON, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collaborator: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE playlists
		SET collaborators = collaborators || $2::jsonb, updated_at = now()
		WHERE id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM jsonb_array_elements(collaborators) elem
			WHERE elem->>'user_id' = $3
		  )
		RETURNING `+playlistColumns,
		id, collabJSON, c.UserID,
	)

	p, err := scanPlaylist(row)
	if errors.Is(err, domain.ErrNotFound) {
		// Disambiguate: the guard matched nothing either because the playlist
		// is gone or because the user is already a collaborator.
		var exists bool
		if checkErr := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return nil, fmt.Errorf("failed to check playlist existence: %w", checkErr)
		}
		if exists {
			return nil, domain.ErrDuplicateCollaborator
		}
		return nil, domain.ErrNotFound
	}
	return p, err
}

// ToggleLike flips userID's membership of liked_by and adjusts like_count in
// a single UPDATE, so concurrent toggles never lose increments. The CASE
// expressions read the pre-update row; RETURNING reads the post-update row.
func (s *Store) ToggleLike(ctx context.Context, id, userID string) (*domain.LikeResult, error) {
	var result domain.LikeResult
	err := s.db.QueryRow(ctx, `
		UPDATE playlists
		SET liked_by = CASE
				WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2)
				ELSE array_append(liked_by, $2)
			END,
			like_count = CASE
				WHEN $2 = ANY(liked_by) THEN GREATEST(like_count - 1, 0)
				ELSE like_count + 1
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING $2 = ANY(liked_by), like_count`,
		id, userID,
	).Scan(&result.Liked, &result.LikeCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}
	return &result, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// -- Row scanning ---------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row rowScanner) (*domain.Playlist, error) {
	var (
		p          domain.Playlist
		tracksJSON []byte
		collabJSON []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.MoodPrompt, &p.OwnerID, &tracksJSON,
		&p.SpotifyPlaylistID, &p.IsPublic, &p.IsCollaborative, &collabJSON,
		&p.Tags, &p.LikeCount, &p.LikedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if err := json.Unmarshal(tracksJSON, &p.Tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}
	if err := json.Unmarshal(collabJSON, &p.Collaborators); err != nil {
		return nil, fmt.Errorf("failed to decode collaborators: %w", err)
	}
	return &p, nil
}

func collectPlaylists(rows pgx.Rows) ([]domain.Playlist, error) {
	var playlists []domain.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist rows: %w", err)
	}
	return playlists, nil
}

func emptyIfNilTracks(tracks []domain.Track) []domain.Track {
	if tracks == nil {
		return []domain.Track{}
	}
	return tracks
}

func emptyIfNilCollaborators(collaborators []domain.Collaborator) []domain.Collaborator {
	if collaborators == nil {
		return []domain.Collaborator{}
	}
	return collaborators
}

func emptyIfNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
