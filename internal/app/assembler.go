package app

import (
	"strings"
	"unicode/utf8"

	"github.com/moodlist/moodlist/internal/domain"
)

const maxDerivedNameLen = 60

// assembleDraft combines an analyzed mood and its resolved tracks into a
// playlist ready for persistence. Pure: tracks are kept in the order given,
// duplicates included (repeated tracks are an intentional upstream
// suggestion; dropping them would be a presentation concern).
func assembleDraft(spec *domain.MoodSpec, tracks []domain.Track, moodPrompt, ownerID string) *domain.Playlist {
	name := strings.TrimSpace(spec.SuggestedName)
	if name == "" {
		name = deriveName(moodPrompt)
	}

	return &domain.Playlist{
		Name:          name,
		Description:   strings.TrimSpace(spec.SuggestedDescription),
		MoodPrompt:    moodPrompt,
		OwnerID:       ownerID,
		Tracks:        tracks,
		Tags:          tagsFromGenres(spec.Genres),
		Collaborators: []domain.Collaborator{},
		LikedBy:       []string{},
	}
}

// deriveName builds a fallback playlist name from the mood prompt when the
// analyzer did not suggest one. The cut lands on a rune boundary so the name
// stays valid UTF-8.
func deriveName(moodPrompt string) string {
	name := strings.Join(strings.Fields(moodPrompt), " ")
	if len(name) > maxDerivedNameLen {
		cut := maxDerivedNameLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	if name == "" {
		return "Mood Mix"
	}
	return name + " Mix"
}

// tagsFromGenres lowercases and deduplicates the spec's genres into tags.
func tagsFromGenres(genres []string) []string {
	tags := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		tag := strings.ToLower(strings.TrimSpace(g))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
