package store

import (
	"errors"
	"fmt"
	"time"
)

// Schema versions:
// 1 - plans, scan reports, calibration results
const CurrentSchemaVersion = 1

const schemaKey = prefixMeta + "__schema__"

// ErrSchemaTooNew means the database was written by a newer release.
var ErrSchemaTooNew = errors.New("store schema is newer than this build")

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetSchema returns the stored schema, or nil if none was written.
func (s *Store) GetSchema() *Schema {
	var schema Schema
	if err := s.getJSON([]byte(schemaKey), &schema); err != nil {
		return nil
	}
	return &schema
}

// SetSchema stores the schema version.
func (s *Store) SetSchema(schema *Schema) error {
	return s.putJSON([]byte(schemaKey), schema)
}

func (s *Store) ensureSchema() error {
	schema := s.GetSchema()
	switch {
	case schema == nil:
		return s.SetSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()})
	case schema.Version > CurrentSchemaVersion:
		return fmt.Errorf("%w: version %d, supported %d", ErrSchemaTooNew, schema.Version, CurrentSchemaVersion)
	}
	return nil
}
