package difficulty

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func difficultyServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mining/hashrate/all", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Adjustments on 2025-02-10 and 2025-03-10.
		w.Write([]byte(`{"difficulty":[
			{"time":1739145600,"difficulty":1.0e14},
			{"time":1741564800,"difficulty":1.1e14}
		]}`))
	}))
}

func TestDifficultyForDatePicksLatestAdjustment(t *testing.T) {
	server := difficultyServer(t)
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)

	// Between the two adjustments the earlier value applies.
	value, err := client.DifficultyForDate(context.Background(), "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1.0e14, value)

	// After the second adjustment the newer value applies.
	value, err = client.DifficultyForDate(context.Background(), "2025-03-20")
	require.NoError(t, err)
	assert.Equal(t, 1.1e14, value)
}

func TestDifficultyForDateBeforeHistory(t *testing.T) {
	server := difficultyServer(t)
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.DifficultyForDate(context.Background(), "2020-01-01")
	assert.Error(t, err)
}

func TestDifficultyForDateInvalidDate(t *testing.T) {
	client := NewClientWithBaseURL("http://localhost:0")
	_, err := client.DifficultyForDate(context.Background(), "01/03/2025")
	assert.Error(t, err)
}

func TestDifficultyForDateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.DifficultyForDate(context.Background(), "2025-03-01")
	assert.Error(t, err)
}
