package app

import "github.com/moodlist/moodlist/internal/domain"

// Access decisions for playlists, centralized so every route applies the
// same table. All functions are pure and evaluated fresh per request;
// ownership is distinct from collaboration and is the sole gate for
// collaborator management and deletion.

// CanRead permits the owner, anyone on a public playlist, and any
// collaborator regardless of role.
func CanRead(actor string, p *domain.Playlist) bool {
	if actor == p.OwnerID || p.IsPublic {
		return true
	}
	_, ok := p.CollaboratorRole(actor)
	return ok
}

// CanEdit permits the owner and collaborators holding edit or admin.
func CanEdit(actor string, p *domain.Playlist) bool {
	if actor == p.OwnerID {
		return true
	}
	role, ok := p.CollaboratorRole(actor)
	return ok && (role == domain.RoleEdit || role == domain.RoleAdmin)
}

// CanManageCollaborators permits only the owner. Admin collaborators cannot
// add or remove other collaborators.
func CanManageCollaborators(actor string, p *domain.Playlist) bool {
	return actor == p.OwnerID
}

// CanDelete permits only the owner.
func CanDelete(actor string, p *domain.Playlist) bool {
	return actor == p.OwnerID
}
