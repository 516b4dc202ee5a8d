package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/moodlist/moodlist/internal/domain"
	"github.com/moodlist/moodlist/internal/ports"
)

const (
	defaultTrackCount = 20
	maxTrackCount     = 100
	defaultPageLimit  = 10
	maxPageLimit      = 50
)

// Service implements ports.PlaylistService: the mood-to-playlist synthesis
// pipeline plus guarded CRUD and social state on persisted playlists.
type Service struct {
	analyzer  ports.MoodAnalyzer
	catalog   ports.Catalog
	store     ports.PlaylistStore
	directory ports.UserDirectory
	logger    *log.Logger
}

// NewService wires the service with its driven ports.
func NewService(analyzer ports.MoodAnalyzer, catalog ports.Catalog, store ports.PlaylistStore, directory ports.UserDirectory, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		analyzer:  analyzer,
		catalog:   catalog,
		store:     store,
		directory: directory,
		logger:    logger,
	}
}

// GeneratePlaylist runs the full pipeline: analyze the mood prompt, resolve
// tracks from the catalog, assemble a draft, and persist it. The optional
// describe step is best-effort; its failure never fails the generation.
func (s *Service) GeneratePlaylist(ctx context.Context, ownerID string, req domain.GenerateRequest) (*domain.Playlist, error) {
	moodPrompt := strings.TrimSpace(req.MoodPrompt)
	if moodPrompt == "" {
		return nil, fmt.Errorf("%w: mood prompt is required", domain.ErrInvalidInput)
	}
	if req.Count < 0 {
		return nil, fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
	}

	count := req.Count
	if count == 0 {
		count = s.preferredCount(ctx, ownerID)
	}
	if count > maxTrackCount {
		count = maxTrackCount
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ResolveSearch
	}
	if mode != domain.ResolveSearch && mode != domain.ResolveRecommend {
		return nil, fmt.Errorf("%w: unknown resolve mode %q", domain.ErrInvalidInput, req.Mode)
	}

	spec, err := s.analyzer.AnalyzeMood(ctx, moodPrompt, domain.MoodHints{Genre: req.Genre, Count: count})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mood analyzed", "genres", spec.Genres, "terms", len(spec.SearchTerms))

	var tracks []domain.Track
	switch mode {
	case domain.ResolveSearch:
		tracks, err = s.catalog.SearchTracks(ctx, spec, count)
	case domain.ResolveRecommend:
		tracks, err = s.catalog.Recommend(ctx, spec, nil, count)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("tracks resolved", "mode", mode, "count", len(tracks))

	draft := assembleDraft(spec, tracks, moodPrompt, ownerID)

	if req.Describe {
		desc, derr := s.analyzer.DescribePlaylist(ctx, moodPrompt, tracks)
		if derr != nil {
			s.logger.Warn("describe step failed, keeping analyzer description", "err", derr)
		} else if desc != "" {
			draft.Description = desc
		}
	}

	created, err := s.store.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to persist playlist: %w", err)
	}
	s.logger.Info("playlist created", "id", created.ID, "owner", ownerID, "tracks", len(created.Tracks))
	return created, nil
}

// preferredCount asks the user directory for the owner's default playlist
// length. Best-effort: any lookup failure falls back to the global default.
func (s *Service) preferredCount(ctx context.Context, ownerID string) int {
	if s.directory == nil {
		return defaultTrackCount
	}
	user, err := s.directory.Lookup(ctx, ownerID)
	if err != nil || user.Preferences.DefaultPlaylistLength <= 0 {
		return defaultTrackCount
	}
	return user.Preferences.DefaultPlaylistLength
}

// GetPlaylist returns a playlist if the actor may read it.
func (s *Service) GetPlaylist(ctx context.Context, actor, id string) (*domain.Playlist, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(actor, p) {
		return nil, domain.ErrPermissionDenied
	}
	return p, nil
}

// ListMyPlaylists returns the actor's own playlists, newest first.
func (s *Service) ListMyPlaylists(ctx context.Context, actor string, page, limit int) (*domain.PlaylistPage, error) {
	page, limit = clampPage(page, limit)
	playlists, total, err := s.store.ListByOwner(ctx, actor, page, limit)
	if err != nil {
		return nil, err
	}
	return buildPage(playlists, total, page, limit), nil
}

// ListPublicPlaylists returns public playlists, most liked first, optionally
// filtered by tag. No actor gate: public listings are readable by anyone.
func (s *Service) ListPublicPlaylists(ctx context.Context, tag string, page, limit int) (*domain.PlaylistPage, error) {
	page, limit = clampPage(page, limit)
	playlists, total, err := s.store.ListPublic(ctx, strings.ToLower(strings.TrimSpace(tag)), page, limit)
	if err != nil {
		return nil, err
	}
	return buildPage(playlists, total, page, limit), nil
}

// UpdatePlaylist applies a partial update to the playlist's mutable fields.
// Owner and collaborators with edit or admin may update; last write wins.
func (s *Service) UpdatePlaylist(ctx context.Context, actor, id string, update domain.PlaylistUpdate) (*domain.Playlist, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: update contains no fields", domain.ErrInvalidInput)
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor, p) {
		return nil, domain.ErrPermissionDenied
	}

	updated, err := s.store.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("playlist updated", "id", id, "actor", actor)
	return updated, nil
}

// AddCollaborator grants targetUserID a role on the playlist. Owner-only;
// the target must resolve in the user directory and must not already be a
// collaborator (or the owner).
func (s *Service) AddCollaborator(ctx context.Context, actor, id, targetUserID string, role domain.Role) (*domain.Playlist, error) {
	if targetUserID == "" {
		return nil, fmt.Errorf("%w: collaborator user id is required", domain.ErrInvalidInput)
	}
	if role == "" {
		role = domain.RoleView
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanManageCollaborators(actor, p) {
		return nil, domain.ErrPermissionDenied
	}
	if targetUserID == p.OwnerID {
		return nil, fmt.Errorf("%w: owner cannot be a collaborator", domain.ErrInvalidInput)
	}
	if _, ok := p.CollaboratorRole(targetUserID); ok {
		return nil, domain.ErrDuplicateCollaborator
	}

	if _, err := s.directory.Lookup(ctx, targetUserID); err != nil {
		return nil, err
	}

	updated, err := s.store.AddCollaborator(ctx, id, domain.Collaborator{UserID: targetUserID, Role: role})
	if err != nil {
		return nil, err
	}
	s.logger.Info("collaborator added", "playlist", id, "user", targetUserID, "role", role)
	return updated, nil
}

// ToggleLike flips the actor's like on a playlist they can read. The store
// performs the toggle as one atomic conditional update so concurrent
// toggles never lose increments.
func (s *Service) ToggleLike(ctx context.Context, actor, id string) (*domain.LikeResult, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(actor, p) {
		return nil, domain.ErrPermissionDenied
	}
	return s.store.ToggleLike(ctx, id, actor)
}

// DeletePlaylist removes a playlist. Owner-only.
func (s *Service) DeletePlaylist(ctx context.Context, actor, id string) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(actor, p) {
		return domain.ErrPermissionDenied
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("playlist deleted", "id", id, "owner", actor)
	return nil
}

// AvailableGenres lists the catalog's genre seeds.
func (s *Service) AvailableGenres(ctx context.Context) ([]string, error) {
	return s.catalog.AvailableGenres(ctx)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func buildPage(playlists []domain.Playlist, total, page, limit int) *domain.PlaylistPage {
	totalPages := (total + limit - 1) / limit
	return &domain.PlaylistPage{
		Playlists:  playlists,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	}
}
