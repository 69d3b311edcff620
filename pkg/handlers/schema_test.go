package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
	sqlutil "github.com/sqlhaven/sqlhaven-engine/pkg/sql"
)

func TestSchemaHandlerGetReturnsNullBeforeDiscovery(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	rec := s.doJSON(t, http.MethodGet, "/projects/"+projectID+"/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Schema json.RawMessage `json:"schema"`
	}
	decode(t, rec, &response)
	assert.Equal(t, "null", string(response.Schema))
}

func TestSchemaHandlerDiscover(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	id, err := uuid.Parse(projectID)
	require.NoError(t, err)
	physical, err := sqlutil.IsolatedName(id, "orders")
	require.NoError(t, err)
	s.engine.tables = []models.TableSchema{
		{Name: physical, Columns: []models.ColumnSchema{{Name: "id", Type: "int"}}},
	}

	rec := s.doJSON(t, http.MethodPost, "/projects/"+projectID+"/schema/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response struct {
		Schema struct {
			Tables []struct {
				Name       string `json:"name"`
				EntityName string `json:"entityName"`
			} `json:"tables"`
			Discovered bool `json:"isDiscovered"`
		} `json:"schema"`
	}
	decode(t, rec, &response)
	require.Len(t, response.Schema.Tables, 1)
	assert.Equal(t, "orders", response.Schema.Tables[0].Name)
	assert.Equal(t, "Order", response.Schema.Tables[0].EntityName)
	assert.True(t, response.Schema.Discovered)

	// Now the cached snapshot is visible to plain GET.
	rec = s.doJSON(t, http.MethodGet, "/projects/"+projectID+"/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &response)
	require.Len(t, response.Schema.Tables, 1)
}

func TestSchemaHandlerForceRefresh(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	rec := s.doJSON(t, http.MethodPost, "/projects/"+projectID+"/schema/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	id, err := uuid.Parse(projectID)
	require.NoError(t, err)
	physical, err := sqlutil.IsolatedName(id, "customers")
	require.NoError(t, err)
	s.engine.tables = []models.TableSchema{{Name: physical}}

	// Without forceRefresh the cached empty snapshot is served.
	rec = s.doJSON(t, http.MethodPost, "/projects/"+projectID+"/schema/discover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var response struct {
		Schema struct {
			Tables []struct {
				Name string `json:"name"`
			} `json:"tables"`
		} `json:"schema"`
	}
	decode(t, rec, &response)
	assert.Empty(t, response.Schema.Tables)

	rec = s.doJSON(t, http.MethodPost, "/projects/"+projectID+"/schema/discover?forceRefresh=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &response)
	require.Len(t, response.Schema.Tables, 1)
	assert.Equal(t, "customers", response.Schema.Tables[0].Name)
}

func TestSchemaHandlerUnknownProject(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, http.MethodGet, "/projects/"+uuid.NewString()+"/schema", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
