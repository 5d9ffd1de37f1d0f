package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BaseModel carries the numeric primary key and audit timestamps.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;column:id" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// JSONData stores an arbitrary JSON document in a text column. Unlike a map
// type it keeps strings, arrays and scalars as the client sent them.
type JSONData json.RawMessage

// NewJSONData encodes v. A nil v or empty raw message stays nil.
func NewJSONData(v any) (JSONData, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("invalid JSON data")
		}
		return JSONData(raw), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON data: %w", err)
	}
	return JSONData(b), nil
}

// IsNull reports whether the document is absent or JSON null.
func (j JSONData) IsNull() bool {
	return len(j) == 0 || bytes.Equal(bytes.TrimSpace(j), []byte("null"))
}

// Value implements the driver.Valuer interface
func (j JSONData) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONData) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONData(nil), v...)
	case string:
		*j = JSONData(v)
	default:
		return fmt.Errorf("failed to scan JSON data: unsupported type %T", value)
	}
	return nil
}

// MarshalJSON emits null for an empty document.
func (j JSONData) MarshalJSON() ([]byte, error) {
	if j.IsNull() {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONData) UnmarshalJSON(data []byte) error {
	*j = append(JSONData(nil), data...)
	return nil
}

// Decode unmarshals the document into v.
func (j JSONData) Decode(v any) error {
	if j.IsNull() {
		return nil
	}
	return json.Unmarshal(j, v)
}
