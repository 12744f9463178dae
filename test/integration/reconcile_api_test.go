package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileRequest struct {
	Action    string `json:"action"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
	Async     bool   `json:"async,omitempty"`
}

type dateReport struct {
	Date            string   `json:"date"`
	Action          string   `json:"action"`
	FinalState      string   `json:"final_state"`
	States          []string `json:"states"`
	MissingPeriods  []int    `json:"missing_periods"`
	RecordsIngested int      `json:"records_ingested"`
}

func TestReconcileAPI(t *testing.T) {
	requireServer(t)

	const testDate = "2025-03-01"

	t.Run("Validate Date", func(t *testing.T) {
		req := reconcileRequest{Action: "validate", StartDate: testDate}
		payload, err := json.Marshal(req)
		require.NoError(t, err)

		resp, err := http.Post(apiURL("/reconcile/run"), "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var report dateReport
		err = json.NewDecoder(resp.Body).Decode(&report)
		require.NoError(t, err)
		assert.Equal(t, testDate, report.Date)
		assert.Equal(t, "validate", report.Action)
		assert.NotEmpty(t, report.States)
	})

	t.Run("Reject Unknown Action", func(t *testing.T) {
		req := reconcileRequest{Action: "rebuild-everything", StartDate: testDate}
		payload, err := json.Marshal(req)
		require.NoError(t, err)

		resp, err := http.Post(apiURL("/reconcile/run"), "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Reject Malformed Date", func(t *testing.T) {
		req := reconcileRequest{Action: "validate", StartDate: "01/03/2025"}
		payload, err := json.Marshal(req)
		require.NoError(t, err)

		resp, err := http.Post(apiURL("/reconcile/run"), "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("List Runs", func(t *testing.T) {
		resp, err := http.Get(apiURL("/reconcile/runs?limit=10"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var runs []map[string]interface{}
		err = json.NewDecoder(resp.Body).Decode(&runs)
		require.NoError(t, err)
		// The validate run above must have been persisted.
		assert.NotEmpty(t, runs)
	})

	t.Run("Get Runs By Date", func(t *testing.T) {
		resp, err := http.Get(apiURL("/reconcile/runs/%s", testDate))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Get Runs For Unknown Date", func(t *testing.T) {
		resp, err := http.Get(apiURL("/reconcile/runs/1999-01-01"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Audit Range", func(t *testing.T) {
		req := map[string]string{"start_date": testDate}
		payload, err := json.Marshal(req)
		require.NoError(t, err)

		resp, err := http.Post(apiURL("/audit"), "application/json", bytes.NewBuffer(payload))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Count         int                      `json:"count"`
			Discrepancies []map[string]interface{} `json:"discrepancies"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		require.NoError(t, err)
		assert.Len(t, result.Discrepancies, result.Count)
	})
}

func TestCurtailmentGridAPI(t *testing.T) {
	requireServer(t)

	resp, err := http.Get(apiURL("/curtailment/2025-03-01/grid"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var grid struct {
		Date     string `json:"date"`
		Present  []int  `json:"present"`
		Missing  []int  `json:"missing"`
		Complete bool   `json:"complete"`
	}
	err = json.NewDecoder(resp.Body).Decode(&grid)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", grid.Date)
	assert.Len(t, append(grid.Present, grid.Missing...), 48)
	assert.Equal(t, len(grid.Missing) == 0, grid.Complete)
}
