package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodlist/moodlist/internal/domain"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/user-1", r.URL.Path)
		w.Write([]byte(`{
			"id": "user-1",
			"display_name": "Casey",
			"spotify_linked": true,
			"preferences": {
				"default_genres": ["jazz"],
				"default_playlist_length": 15,
				"allow_explicit": false
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	user, err := client.Lookup(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "Casey", user.DisplayName)
	assert.True(t, user.SpotifyLinked)
	assert.Equal(t, 15, user.Preferences.DefaultPlaylistLength)
	assert.Equal(t, []string{"jazz"}, user.Preferences.DefaultGenres)
}

func TestLookup_FillsMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "Casey"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	user, err := client.Lookup(context.Background(), "user-2")

	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)
}

func TestLookup_UnknownUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrUnknownUser)
}

func TestLookup_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "user-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUnknownUser)
}

func TestLookup_EscapesUserID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"id": "a/b"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Lookup(context.Background(), "a/b")

	require.NoError(t, err)
	assert.Equal(t, "/users/a%2Fb", gotPath)
}
