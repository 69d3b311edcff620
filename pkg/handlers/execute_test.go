package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlhaven/sqlhaven-engine/pkg/adapters/datasource"
)

func TestExecuteHandlerSelect(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	s.engine.result = &datasource.ExecuteResult{
		HasRows:  true,
		Columns:  []string{"id", "name"},
		Rows:     []map[string]any{{"id": int64(1), "name": "widget"}},
		RowCount: 1,
	}

	rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
		"query":     "SELECT id, name FROM products",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response struct {
		Success   bool             `json:"success"`
		QueryType string           `json:"queryType"`
		Engine    string           `json:"engine"`
		Columns   []string         `json:"columns"`
		Results   []map[string]any `json:"results"`
		RowCount  int              `json:"rowCount"`
	}
	decode(t, rec, &response)
	assert.True(t, response.Success)
	assert.Equal(t, "Select", response.QueryType)
	assert.Equal(t, "mysql", response.Engine)
	assert.Equal(t, []string{"id", "name"}, response.Columns)
	require.Len(t, response.Results, 1)
	assert.Equal(t, 1, response.RowCount)
}

func TestExecuteHandlerWrite(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	s.engine.result = &datasource.ExecuteResult{AffectedRows: 3}

	rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
		"query":     "UPDATE products SET price = 1",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Success      bool   `json:"success"`
		QueryType    string `json:"queryType"`
		AffectedRows int64  `json:"affectedRows"`
		Message      string `json:"message"`
	}
	decode(t, rec, &response)
	assert.True(t, response.Success)
	assert.Equal(t, "Query", response.QueryType)
	assert.Equal(t, int64(3), response.AffectedRows)
	assert.NotEmpty(t, response.Message)
}

func TestExecuteHandlerUnknownEngine(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/execute/oracle", map[string]any{
		"query": "SELECT 1",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response struct {
		Error string `json:"error"`
	}
	decode(t, rec, &response)
	assert.Equal(t, "validation_error", response.Error)
}

func TestExecuteHandlerDialectMismatch(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	rec := s.doJSON(t, http.MethodPost, "/execute/postgres", map[string]any{
		"query":     "SELECT 1",
		"projectId": projectID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteHandlerInvalidProjectID(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
		"query":     "SELECT 1",
		"projectId": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExecuteHandlerBackendRejection(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	s.engine.execErr = errors.New("Unknown column 'nope' in 'field list'")

	rec := s.doJSON(t, http.MethodPost, "/execute/mysql", map[string]any{
		"query":     "SELECT nope FROM products",
		"projectId": projectID,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var response struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	decode(t, rec, &response)
	assert.Equal(t, "execution_error", response.Error)
	assert.Contains(t, response.Message, "Unknown column")
}

func TestExecuteHandlerUnconfiguredBackend(t *testing.T) {
	s := newTestServer(t)

	// Ad-hoc statement against a dialect with no registered factory.
	rec := s.doJSON(t, http.MethodPost, "/execute/trino", map[string]any{
		"query": "SELECT 1",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var response struct {
		Error string `json:"error"`
	}
	decode(t, rec, &response)
	assert.Equal(t, "backend_unavailable", response.Error)
}
