package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moodlist/moodlist/internal/domain"
)

func privatePlaylist(owner string, collaborators ...domain.Collaborator) *domain.Playlist {
	return &domain.Playlist{
		ID:            "pl-1",
		OwnerID:       owner,
		IsPublic:      false,
		Collaborators: collaborators,
	}
}

func TestCanRead(t *testing.T) {
	p := privatePlaylist("u1", domain.Collaborator{UserID: "u2", Role: domain.RoleView})

	assert.True(t, CanRead("u1", p), "owner can read")
	assert.True(t, CanRead("u2", p), "view collaborator can read")
	assert.False(t, CanRead("u3", p), "stranger cannot read private playlist")

	p.IsPublic = true
	assert.True(t, CanRead("u3", p), "anyone can read public playlist")
}

func TestCanEdit(t *testing.T) {
	p := privatePlaylist("u1",
		domain.Collaborator{UserID: "u2", Role: domain.RoleView},
		domain.Collaborator{UserID: "u3", Role: domain.RoleEdit},
		domain.Collaborator{UserID: "u4", Role: domain.RoleAdmin},
	)

	assert.True(t, CanEdit("u1", p))
	assert.False(t, CanEdit("u2", p), "view role cannot edit")
	assert.True(t, CanEdit("u3", p))
	assert.True(t, CanEdit("u4", p))
	assert.False(t, CanEdit("u5", p))

	// public visibility grants reads, never edits
	p.IsPublic = true
	assert.False(t, CanEdit("u5", p))
}

func TestRoleMonotonicity(t *testing.T) {
	// every role can do what the role below it can; only the owner deletes
	// or manages collaborators
	p := privatePlaylist("owner",
		domain.Collaborator{UserID: "viewer", Role: domain.RoleView},
		domain.Collaborator{UserID: "editor", Role: domain.RoleEdit},
		domain.Collaborator{UserID: "admin", Role: domain.RoleAdmin},
	)

	for _, actor := range []string{"viewer", "editor", "admin"} {
		assert.True(t, CanRead(actor, p), actor)
		assert.False(t, CanDelete(actor, p), actor)
		assert.False(t, CanManageCollaborators(actor, p), actor)
	}
	assert.False(t, CanEdit("viewer", p))
	assert.True(t, CanEdit("editor", p))
	assert.True(t, CanEdit("admin", p))

	assert.True(t, CanDelete("owner", p))
	assert.True(t, CanManageCollaborators("owner", p))
}

func TestPrivatePlaylistGrantFlow(t *testing.T) {
	p := privatePlaylist("u1")
	assert.False(t, CanRead("u2", p))

	p.Collaborators = append(p.Collaborators, domain.Collaborator{UserID: "u2", Role: domain.RoleView})
	assert.True(t, CanRead("u2", p))
	assert.False(t, CanEdit("u2", p))
}
