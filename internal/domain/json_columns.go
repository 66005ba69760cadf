package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SourceEntry records one ingestion source that reported an IP.
type SourceEntry struct {
	Source  string    `json:"source" bson:"source"`
	Updated time.Time `json:"updated" bson:"updated"`
}

// SourceList is the provenance trail of an IP record, stored as a JSON column.
type SourceList []SourceEntry

func (s SourceList) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}

	data, err := json.Marshal([]SourceEntry(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *SourceList) Scan(value any) error {
	data, err := columnBytes("domain.SourceList", value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}

	var parsed []SourceEntry
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (SourceList) GormDataType() string {
	return "json"
}

func (SourceList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

// JSONObject holds an opaque document. A nil JSONObject is stored as NULL so
// that "field exists" checks behave like they do on a document store.
type JSONObject map[string]any

func (o JSONObject) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}

	data, err := json.Marshal(map[string]any(o))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (o *JSONObject) Scan(value any) error {
	data, err := columnBytes("domain.JSONObject", value)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*o = nil
		return nil
	}

	parsed := map[string]any{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*o = parsed
	return nil
}

func (JSONObject) GormDataType() string {
	return "json"
}

func (JSONObject) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	return jsonColumnType(db)
}

func columnBytes(typeName string, value any) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %T", typeName, value)
	}
}
