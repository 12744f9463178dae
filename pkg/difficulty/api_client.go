package difficulty

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://mempool.space/api/v1"

// Client fetches the Bitcoin network difficulty history.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new difficulty API client. The base URL can be
// overridden with MEMPOOL_API_URL.
func NewClient() *Client {
	baseURL := os.Getenv("MEMPOOL_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return NewClientWithBaseURL(baseURL)
}

// NewClientWithBaseURL creates a client against an explicit base URL.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type hashrateResponse struct {
	Difficulty []difficultyPoint `json:"difficulty"`
}

type difficultyPoint struct {
	Time       int64   `json:"time"`
	Difficulty float64 `json:"difficulty"`
}

// DifficultyForDate returns the network difficulty in effect at the end of
// the given date ("2006-01-02"). The difficulty changes at most every two
// weeks, so the most recent adjustment at or before the date applies.
func (c *Client) DifficultyForDate(ctx context.Context, date string) (float64, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	endOfDay := day.AddDate(0, 0, 1).Unix()

	url := fmt.Sprintf("%s/mining/hashrate/all", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var result hashrateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	var found float64
	var ok bool
	for _, p := range result.Difficulty {
		if p.Time <= endOfDay {
			found = p.Difficulty
			ok = true
		}
	}
	if !ok {
		return 0, fmt.Errorf("no difficulty value available for %s", date)
	}
	return found, nil
}
