package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/moodlist/moodlist/internal/domain"
)

// Client implements ports.UserDirectory against the external identity
// service's read API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a directory client. If client is nil, http.DefaultClient
// is used.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Lookup resolves a user by identity id. A directory 404 maps to
// domain.ErrUnknownUser.
func (c *Client) Lookup(ctx context.Context, userID string) (*domain.User, error) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrUnknownUser
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user directory response: %w", err)
	}
	if user.ID == "" {
		user.ID = userID
	}
	return &user, nil
}
