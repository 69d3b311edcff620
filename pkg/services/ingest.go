package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlhaven/sqlhaven-engine/pkg/apperrors"
	"github.com/sqlhaven/sqlhaven-engine/pkg/models"
)

// insertBatchSize bounds the rows packed into one INSERT statement.
const insertBatchSize = 500

// IngestColumn is one inferred column of an uploaded CSV.
type IngestColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IngestResult reports what the CSV upload created.
type IngestResult struct {
	TableName         string         `json:"table_name"`
	Columns           []IngestColumn `json:"columns"`
	RowsLoaded        int            `json:"rows_loaded"`
	SchemaInvalidated bool           `json:"schema_invalidated"`
}

// IngestService loads CSV files into project tables. Column types are
// inferred from the data; the table is created and filled through the
// execution pipeline so isolation rewriting and the intent ledger apply.
type IngestService interface {
	UploadCSV(ctx context.Context, projectID uuid.UUID, tableName string, r io.Reader) (*IngestResult, error)
}

type ingestService struct {
	projects  ProjectService
	execution ExecutionService
	logger    *zap.Logger
}

// NewIngestService creates a new CSV ingest service.
func NewIngestService(projects ProjectService, execution ExecutionService, logger *zap.Logger) IngestService {
	return &ingestService{
		projects:  projects,
		execution: execution,
		logger:    logger.Named("ingest-service"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) UploadCSV(ctx context.Context, projectID uuid.UUID, tableName string, r io.Reader) (*IngestResult, error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: csv file is empty", apperrors.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", apperrors.ErrValidation, err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		col := sanitizeColumnName(name)
		if col == "" {
			col = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = col
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv row: %v", apperrors.ErrValidation, err)
		}
		if len(record) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d",
				apperrors.ErrValidation, len(records)+2, len(record), len(columns))
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv file has no data rows", apperrors.ErrValidation)
	}

	types := inferColumnTypes(columns, records)

	if tableName == "" {
		tableName = "uploaded_data"
	}
	tableName = sanitizeColumnName(tableName)
	if tableName == "" {
		return nil, fmt.Errorf("%w: invalid table name", apperrors.ErrValidation)
	}

	if err := s.createTable(ctx, project.ID, project.Dialect, tableName, columns, types); err != nil {
		return nil, err
	}

	loaded, err := s.insertRows(ctx, project.ID, project.Dialect, tableName, columns, types, records)
	if err != nil {
		return nil, err
	}

	ingestColumns := make([]IngestColumn, len(columns))
	for i := range columns {
		ingestColumns[i] = IngestColumn{Name: columns[i], Type: types[i]}
	}

	s.logger.Info("Loaded CSV into project table",
		zap.String("project_id", projectID.String()),
		zap.String("table", tableName),
		zap.Int("rows", loaded))
	return &IngestResult{
		TableName:         tableName,
		Columns:           ingestColumns,
		RowsLoaded:        loaded,
		SchemaInvalidated: true,
	}, nil
}

func (s *ingestService) createTable(ctx context.Context, projectID uuid.UUID, dialect models.Dialect, tableName string, columns, types []string) error {
	defs := make([]string, len(columns))
	for i := range columns {
		defs[i] = fmt.Sprintf("%s %s", columns[i], types[i])
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(defs, ", "))
	_, err := s.execution.Execute(ctx, dialect, &ExecuteRequest{
		ProjectID: &projectID,
		SQL:       createSQL,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}
	return nil
}

func (s *ingestService) insertRows(ctx context.Context, projectID uuid.UUID, dialect models.Dialect, tableName string, columns, types []string, records [][]string) (int, error) {
	loaded := 0
	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		for _, record := range records[start:end] {
			fields := make([]string, len(record))
			for i, field := range record {
				fields[i] = sqlLiteral(field, types[i])
			}
			values = append(values, "("+strings.Join(fields, ", ")+")")
		}

		insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			tableName, strings.Join(columns, ", "), strings.Join(values, ", "))
		if _, err := s.execution.Execute(ctx, dialect, &ExecuteRequest{
			ProjectID: &projectID,
			SQL:       insertSQL,
		}); err != nil {
			return loaded, fmt.Errorf("insert rows into %s: %w", tableName, err)
		}
		loaded += end - start
	}
	return loaded, nil
}

var columnNamePattern = regexp.MustCompile(`[^a-z0-9_]+`)

// sanitizeColumnName folds a CSV header into a safe SQL identifier.
func sanitizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = columnNamePattern.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c_" + s
	}
	return s
}

// inferColumnTypes picks INT, DOUBLE, or VARCHAR(255) per column. A column
// is numeric only when every non-empty value parses.
func inferColumnTypes(columns []string, records [][]string) []string {
	types := make([]string, len(columns))
	for i := range columns {
		allInt := true
		allFloat := true
		sawValue := false

		for _, record := range records {
			value := strings.TrimSpace(record[i])
			if value == "" {
				continue
			}
			sawValue = true
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				allFloat = false
			}
		}

		switch {
		case sawValue && allInt:
			types[i] = "INT"
		case sawValue && allFloat:
			types[i] = "DOUBLE"
		default:
			types[i] = "VARCHAR(255)"
		}
	}
	return types
}

// sqlLiteral renders one CSV field as a SQL literal. Empty fields become
// NULL; strings get single-quote escaping.
func sqlLiteral(value, columnType string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "NULL"
	}
	if columnType == "INT" || columnType == "DOUBLE" {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
