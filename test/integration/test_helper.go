package integration

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// BaseURL points at a running API server. Override with GRIDSETTLE_TEST_URL
// when the server is not on the default port.
var BaseURL = "http://localhost:8080"

var serverAvailable bool

func TestMain(m *testing.M) {
	if url := os.Getenv("GRIDSETTLE_TEST_URL"); url != "" {
		BaseURL = url
	}

	// Give a freshly started server a moment to come up.
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 5; i++ {
		resp, err := client.Get(BaseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				serverAvailable = true
				break
			}
		}
		time.Sleep(time.Second)
	}

	os.Exit(m.Run())
}

func requireServer(t *testing.T) {
	t.Helper()
	if !serverAvailable {
		t.Skipf("API server not reachable at %s, skipping integration test", BaseURL)
	}
}

func apiURL(format string, args ...interface{}) string {
	return BaseURL + fmt.Sprintf(format, args...)
}
