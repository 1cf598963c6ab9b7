package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
)

// User carries the fields used to enrich order views. The order core
// performs no authentication beyond owner-match on cancel.
type User struct {
	ID    string `json:"userId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Client talks to the identity service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	url := fmt.Sprintf("%s/api/users/%s", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, err, "build user request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindUpstream, err, "identity: fetch user %s", userID)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return User{}, apperr.New(apperr.KindNotFound, "user %s not found", userID)
	case resp.StatusCode != http.StatusOK:
		return User{}, apperr.New(apperr.KindUpstream, "identity: fetch user %s: status %d", userID, resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, apperr.Wrap(apperr.KindUpstream, err, "identity: decode user %s", userID)
	}
	if u.ID == "" {
		u.ID = userID
	}
	return u, nil
}
