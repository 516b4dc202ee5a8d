package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moodlist/moodlist/internal/domain"
	"github.com/moodlist/moodlist/internal/ports"
)

// actorHeader carries the authenticated user's identity, set by an upstream
// gateway. Identity verification itself is outside this service.
const actorHeader = "X-User-ID"

// Handler holds the HTTP handlers for the playlist API.
type Handler struct {
	service ports.PlaylistService
}

// NewHandler creates a new HTTP handler with the given playlist service.
func NewHandler(service ports.PlaylistService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up all API routes on the given Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.GET("/genres", h.AvailableGenres)
		api.GET("/playlists/public", h.ListPublicPlaylists)

		api.POST("/playlists/generate", h.GeneratePlaylist)
		api.GET("/playlists/my", h.ListMyPlaylists)
		api.GET("/playlists/:id", h.GetPlaylist)
		api.PATCH("/playlists/:id", h.UpdatePlaylist)
		api.DELETE("/playlists/:id", h.DeletePlaylist)
		api.POST("/playlists/:id/collaborators", h.AddCollaborator)
		api.POST("/playlists/:id/like", h.ToggleLike)
	}
}

// Health returns a simple health check response.
//
//	@Summary		Health check
//	@Description	Returns the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GeneratePlaylist synthesizes and persists a playlist from a mood prompt.
//
//	@Summary		Generate a playlist from a mood
//	@Description	Analyzes the mood prompt, resolves tracks from the catalog (free-text
//	@Description	search or seeded recommendations), and persists the result for the actor.
//	@Tags			playlists
//	@Accept			json
//	@Produce		json
//	@Param			X-User-ID	header		string					true	"Actor user id"
//	@Param			request		body		domain.GenerateRequest	true	"Mood prompt plus optional hints"
//	@Success		201			{object}	domain.Playlist
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		502			{object}	ErrorResponse
//	@Router			/api/v1/playlists/generate [post]
func (h *Handler) GeneratePlaylist(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req domain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	playlist, err := h.service.GeneratePlaylist(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, playlist)
}

// GetPlaylist returns one playlist if the actor may read it.
//
//	@Summary	Get playlist
//	@Tags		playlists
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"Actor user id"
//	@Param		id			path		string	true	"Playlist id"
//	@Success	200			{object}	domain.Playlist
//	@Failure	403			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/v1/playlists/{id} [get]
func (h *Handler) GetPlaylist(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	playlist, err := h.service.GetPlaylist(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// ListMyPlaylists returns the actor's playlists, newest first.
//
//	@Summary	List own playlists
//	@Tags		playlists
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"Actor user id"
//	@Param		page		query		int		false	"Page number (1-based)"
//	@Param		limit		query		int		false	"Page size"
//	@Success	200			{object}	domain.PlaylistPage
//	@Router		/api/v1/playlists/my [get]
func (h *Handler) ListMyPlaylists(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	page, limit := pagination(c)
	result, err := h.service.ListMyPlaylists(c.Request.Context(), actor, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPublicPlaylists returns public playlists, most liked first.
//
//	@Summary	List public playlists
//	@Tags		playlists
//	@Produce	json
//	@Param		page	query		int		false	"Page number (1-based)"
//	@Param		limit	query		int		false	"Page size"
//	@Param		tag		query		string	false	"Filter by tag"
//	@Success	200		{object}	domain.PlaylistPage
//	@Router		/api/v1/playlists/public [get]
func (h *Handler) ListPublicPlaylists(c *gin.Context) {
	page, limit := pagination(c)
	result, err := h.service.ListPublicPlaylists(c.Request.Context(), c.Query("tag"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdatePlaylist applies a partial update to a playlist's mutable fields.
//
//	@Summary	Update playlist
//	@Tags		playlists
//	@Accept		json
//	@Produce	json
//	@Param		X-User-ID	header		string					true	"Actor user id"
//	@Param		id			path		string					true	"Playlist id"
//	@Param		request		body		domain.PlaylistUpdate	true	"Fields to update"
//	@Success	200			{object}	domain.Playlist
//	@Failure	403			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/v1/playlists/{id} [patch]
func (h *Handler) UpdatePlaylist(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var update domain.PlaylistUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	playlist, err := h.service.UpdatePlaylist(c.Request.Context(), actor, c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// AddCollaborator grants a user a role on the playlist. Owner only.
//
//	@Summary	Add collaborator
//	@Tags		playlists
//	@Accept		json
//	@Produce	json
//	@Param		X-User-ID	header		string						true	"Actor user id"
//	@Param		id			path		string						true	"Playlist id"
//	@Param		request		body		domain.CollaboratorRequest	true	"Collaborator user id and role"
//	@Success	200			{object}	domain.Playlist
//	@Failure	403			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Failure	409			{object}	ErrorResponse
//	@Router		/api/v1/playlists/{id}/collaborators [post]
func (h *Handler) AddCollaborator(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req domain.CollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "bad_request",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	playlist, err := h.service.AddCollaborator(c.Request.Context(), actor, c.Param("id"), req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// ToggleLike flips the actor's like on a playlist.
//
//	@Summary	Like or unlike playlist
//	@Tags		playlists
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"Actor user id"
//	@Param		id			path		string	true	"Playlist id"
//	@Success	200			{object}	domain.LikeResult
//	@Failure	403			{object}	ErrorResponse
//	@Failure	404			{object}	ErrorResponse
//	@Router		/api/v1/playlists/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	result, err := h.service.ToggleLike(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeletePlaylist removes a playlist. Owner only.
//
//	@Summary	Delete playlist
//	@Tags		playlists
//	@Produce	json
//	@Param		X-User-ID	header	string	true	"Actor user id"
//	@Param		id			path	string	true	"Playlist id"
//	@Success	204
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/v1/playlists/{id} [delete]
func (h *Handler) DeletePlaylist(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.service.DeletePlaylist(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AvailableGenres lists the catalog's genre seeds.
//
//	@Summary	List catalog genres
//	@Tags		catalog
//	@Produce	json
//	@Success	200	{object}	map[string][]string
//	@Failure	502	{object}	ErrorResponse
//	@Router		/api/v1/genres [get]
func (h *Handler) AvailableGenres(c *gin.Context) {
	genres, err := h.service.AvailableGenres(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres})
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps core error categories to status codes. Upstream
// diagnostic text stays out of responses; callers get the category and a
// generic message only.
func respondError(c *gin.Context, err error) {
	var (
		parseErr *domain.MoodParseError
		authErr  *domain.CatalogAuthError
		queryErr *domain.CatalogQueryError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
	case errors.Is(err, domain.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "you do not have permission for this playlist"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "playlist not found"})
	case errors.Is(err, domain.ErrUnknownUser):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user_not_found", Message: "user not found"})
	case errors.Is(err, domain.ErrDuplicateCollaborator):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "duplicate_collaborator", Message: "user is already a collaborator"})
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "mood_analysis_failed", Message: "failed to analyze mood"})
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "catalog_auth_failed", Message: "failed to authenticate with the music catalog"})
	case errors.As(err, &queryErr):
		if queryErr.RateLimited {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog_rate_limited", Message: "music catalog is rate limiting requests"})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "catalog_query_failed", Message: "failed to query the music catalog"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "internal error"})
	}
}

// requireActor reads the actor identity header, failing the request with 401
// when it is absent.
func requireActor(c *gin.Context) (string, bool) {
	actor := c.GetHeader(actorHeader)
	if actor == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: actorHeader + " header is required",
		})
		return "", false
	}
	return actor, true
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}
