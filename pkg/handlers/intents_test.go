package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentsHandlerList(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
		"query":     "SELECT 1",
		"projectId": projectID,
		"question":  "how many products are there",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.doJSON(t, http.MethodGet, "/context/intents/"+projectID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Intents []struct {
			SQL      string `json:"sql"`
			Question string `json:"question"`
			Success  bool   `json:"success"`
		} `json:"intents"`
	}
	decode(t, rec, &response)
	require.Len(t, response.Intents, 1)
	assert.Equal(t, "SELECT 1", response.Intents[0].SQL)
	assert.Equal(t, "how many products are there", response.Intents[0].Question)
	assert.True(t, response.Intents[0].Success)
}

func TestIntentsHandlerListLimit(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	for _, query := range []string{"SELECT 1", "SELECT 2", "SELECT 3"} {
		rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
			"query":     query,
			"projectId": projectID,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.doJSON(t, http.MethodGet, "/context/intents/"+projectID+"?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Intents []struct {
			SQL string `json:"sql"`
		} `json:"intents"`
	}
	decode(t, rec, &response)
	require.Len(t, response.Intents, 2)
	// Newest first.
	assert.Equal(t, "SELECT 3", response.Intents[0].SQL)
}

func TestIntentsHandlerInvalidLimit(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	rec := s.doJSON(t, http.MethodGet, "/context/intents/"+projectID+"?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntentsHandlerStats(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	for _, query := range []string{"SELECT 1", "SELECT 2"} {
		rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
			"query":     query,
			"projectId": projectID,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.doJSON(t, http.MethodGet, "/context/intents/"+projectID+"/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		TotalQueries int     `json:"totalQueries"`
		SuccessRate  float64 `json:"successRate"`
		WindowHours  int     `json:"windowHours"`
	}
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.TotalQueries)
	assert.InDelta(t, 100.0, stats.SuccessRate, 0.01)
	assert.Equal(t, 24, stats.WindowHours)
}
