package models

import "time"

// ColumnSchema describes a single column of a discovered table.
type ColumnSchema struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Key      string  `json:"key,omitempty"`
	Default  *string `json:"default,omitempty"`
}

// TableSchema describes one logical table owned by a project.
// Name is the logical table name with the isolation prefix already stripped.
type TableSchema struct {
	Name       string         `json:"name"`
	EntityName string         `json:"entityName,omitempty"`
	Columns    []ColumnSchema `json:"columns"`
}

// SchemaSnapshot is the per-project cached table/column metadata.
// A refresh replaces the whole snapshot atomically; a partially updated
// snapshot is never observable.
type SchemaSnapshot struct {
	Tables     []TableSchema `json:"tables"`
	LastSynced time.Time     `json:"lastSynced"`
	Discovered bool          `json:"isDiscovered"`
}

// Table returns the schema for the named logical table, or nil.
func (s *SchemaSnapshot) Table(name string) *TableSchema {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
