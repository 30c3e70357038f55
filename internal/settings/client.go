// Package settings talks to the speed-preference collaborator: an HTTP
// endpoint returning [{key,value}] pairs for ballSpeed/paddleSpeed. It also
// ships a handler implementing that same interface on top of local storage,
// so a single binary works without an external account service.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Preferences holds a user's speed overrides. Nil means "no preference".
type Preferences struct {
	BallSpeed   *float64
	PaddleSpeed *float64
}

// Pair is the wire shape of one setting.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Client fetches preferences over HTTP with bearer auth.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the given base URL (the "/api/settings"
// path is appended).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the user's preferences. Unknown keys and unparseable
// values are skipped; any transport or status failure is returned to the
// caller, who treats it as "no preferences".
func (c *Client) Fetch(ctx context.Context, token string) (Preferences, error) {
	var prefs Preferences

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/settings", nil)
	if err != nil {
		return prefs, fmt.Errorf("settings: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return prefs, fmt.Errorf("settings: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return prefs, fmt.Errorf("settings: unexpected status %d", resp.StatusCode)
	}

	var pairs []Pair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return prefs, fmt.Errorf("settings: decode response: %w", err)
	}
	return fromPairs(pairs), nil
}

func fromPairs(pairs []Pair) Preferences {
	var prefs Preferences
	for _, p := range pairs {
		v, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			continue
		}
		switch p.Key {
		case "ballSpeed":
			prefs.BallSpeed = &v
		case "paddleSpeed":
			prefs.PaddleSpeed = &v
		}
	}
	return prefs
}
