package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// searchResponse mirrors the fields of GET /api/search that are checked.
type searchResponse struct {
	Success  bool            `json:"success"`
	Hub      string          `json:"hub"`
	Total    int             `json:"total"`
	Listings []listingResult `json:"listings"`
	Error    string          `json:"error"`
}

type listingResult struct {
	ID         string `json:"id"`
	MatchScore int    `json:"matchScore"`
}

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.http.Do(req)
}

func (c *client) search(ctx context.Context, sc searchCase) (searchResponse, error) {
	var out searchResponse
	resp, err := c.get(ctx, "/api/search?"+sc.values().Encode())
	if err != nil {
		return out, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: decode: %w", ErrBadResponse, err)
	}
	return out, nil
}
