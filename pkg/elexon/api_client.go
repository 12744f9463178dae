package elexon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "https://data.elexon.co.uk/bmrs/api/v1"

// TransientError marks a fetch failure that is worth retrying: transport
// errors and 5xx responses. Anything else (bad request, empty data) is not
// transient.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// CurtailmentEntry is one accepted bid volume for a BM unit in a single
// settlement period, as returned by the settlement API.
type CurtailmentEntry struct {
	SettlementDate   string  `json:"settlementDate"`
	SettlementPeriod int     `json:"settlementPeriod"`
	BmUnit           string  `json:"bmUnit"`
	LeadPartyName    string  `json:"leadPartyName"`
	Volume           float64 `json:"volume"`
	Cashflow         float64 `json:"cashflow"`
}

type periodResponse struct {
	Data []CurtailmentEntry `json:"data"`
}

// Client represents a settlement data API client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new settlement API client. The base URL can be
// overridden with ELEXON_API_URL.
func NewClient() *Client {
	baseURL := os.Getenv("ELEXON_API_URL")
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

// FetchPeriod retrieves accepted bid volumes for one (date, period). An
// empty data set or a 404 is a legitimate no-data outcome and returns
// (nil, nil); transport failures and server errors return *TransientError.
func (c *Client) FetchPeriod(ctx context.Context, date string, period int) ([]CurtailmentEntry, error) {
	url := fmt.Sprintf("%s/balancing/settlement/acceptance/volumes/all/bid/%s/%d?format=json",
		c.baseURL, date, period)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &TransientError{Err: fmt.Errorf("API request failed with status code: %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	var result periodResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, nil
	}
	return result.Data, nil
}
