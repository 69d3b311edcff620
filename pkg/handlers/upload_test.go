package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartCSV(t *testing.T, projectID, tableName, csv string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)

	require.NoError(t, writer.WriteField("projectId", projectID))
	if tableName != "" {
		require.NoError(t, writer.WriteField("tableName", tableName))
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestUploadHandlerCSV(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	body, contentType := multipartCSV(t, projectID, "products",
		"name,price\nwidget,9.99\ngadget,19.99\n")

	req := httptest.NewRequest(http.MethodPost, "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result struct {
		TableName         string `json:"table_name"`
		RowsLoaded        int    `json:"rows_loaded"`
		SchemaInvalidated bool   `json:"schema_invalidated"`
		Columns           []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
	}
	decode(t, rec, &result)
	assert.Equal(t, "products", result.TableName)
	assert.Equal(t, 2, result.RowsLoaded)
	assert.True(t, result.SchemaInvalidated)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "name", result.Columns[0].Name)
}

func TestUploadHandlerMissingFile(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("projectId", projectID))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-csv", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerInvalidProjectID(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartCSV(t, "not-a-uuid", "", "a\n1\n")

	req := httptest.NewRequest(http.MethodPost, "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHandlerMalformedCSV(t *testing.T) {
	s := newTestServer(t)
	projectID := s.createProject(t, "sales")

	body, contentType := multipartCSV(t, projectID, "", "a,b\n1\n")

	req := httptest.NewRequest(http.MethodPost, "/upload-csv", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
