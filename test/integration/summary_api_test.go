package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summaryRow struct {
	MinerModel   string  `json:"miner_model"`
	TotalVolume  float64 `json:"total_volume"`
	TotalPayment float64 `json:"total_payment"`
	TotalBitcoin float64 `json:"total_bitcoin"`
}

func TestSummaryAPI(t *testing.T) {
	requireServer(t)

	t.Run("Daily Summary Not Found", func(t *testing.T) {
		resp, err := http.Get(apiURL("/summary/daily/1999-01-01"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Monthly Summary Not Found", func(t *testing.T) {
		resp, err := http.Get(apiURL("/summary/monthly/1999-01"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Yearly Summary Not Found", func(t *testing.T) {
		resp, err := http.Get(apiURL("/summary/yearly/1999"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Daily Summary After Recompute", func(t *testing.T) {
		// Summaries only exist once a recompute has run for the date.
		resp, err := http.Get(apiURL("/summary/daily/2025-03-01"))
		require.NoError(t, err)
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			t.Skip("no summary for test date, run a recompute first")
		}
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rows []summaryRow
		err = json.NewDecoder(resp.Body).Decode(&rows)
		require.NoError(t, err)
		require.NotEmpty(t, rows)

		for _, row := range rows {
			assert.NotEmpty(t, row.MinerModel)
			// Curtailment volume and payment are stored as negative values.
			assert.LessOrEqual(t, row.TotalVolume, 0.0)
			assert.LessOrEqual(t, row.TotalPayment, 0.0)
			assert.GreaterOrEqual(t, row.TotalBitcoin, 0.0)
		}
	})
}
